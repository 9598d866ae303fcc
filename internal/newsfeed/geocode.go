package newsfeed

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marais/streetrisk/internal/httputil"
	"github.com/marais/streetrisk/internal/metrics"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org/search"

// Geocoder resolves place names to coordinates via Nominatim.
// Nominatim's usage policy requires an identifying User-Agent and at most
// one request per second; the worker's article loop stays well under that.
type Geocoder struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewGeocoder(userAgent string) *Geocoder {
	return &Geocoder{
		baseURL:   defaultNominatimURL,
		userAgent: userAgent,
		client:    httputil.NewClientWithTimeout(10 * time.Second),
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a location name. ok is false when the name is unknown;
// transient upstream failures are retried briefly, then reported as errors.
func (g *Geocoder) Geocode(name string) (lat, lon float64, ok bool, err error) {
	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "json")
	params.Set("limit", "1")

	var body []byte
	operation := func() error {
		req, err := http.NewRequest(http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", g.userAgent)

		resp, err := g.client.Do(req)
		if err != nil {
			return fmt.Errorf("geocode: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("geocode rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("geocode: status %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read geocode body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, bo); err != nil {
		metrics.GeocodeCallsTotal.WithLabelValues("error").Inc()
		return 0, 0, false, err
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		metrics.GeocodeCallsTotal.WithLabelValues("error").Inc()
		return 0, 0, false, fmt.Errorf("unmarshal geocode response: %w", err)
	}
	if len(results) == 0 {
		metrics.GeocodeCallsTotal.WithLabelValues("no_match").Inc()
		return 0, 0, false, nil
	}

	lat, err = strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse geocode lat: %w", err)
	}
	lon, err = strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parse geocode lon: %w", err)
	}
	metrics.GeocodeCallsTotal.WithLabelValues("ok").Inc()
	return lat, lon, true, nil
}
