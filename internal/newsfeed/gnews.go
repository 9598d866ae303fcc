// Package newsfeed maintains the rolling corpus of geolocated crime news:
// it polls the GNews API, filters for crime reporting, resolves mentioned
// localities to coordinates, and prunes stale articles.
package newsfeed

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marais/streetrisk/internal/httputil"
	"github.com/marais/streetrisk/internal/metrics"
)

const defaultGNewsURL = "https://gnews.io/api/v4/search"

// GNewsClient fetches recent city news from the GNews search API.
type GNewsClient struct {
	apiKey   string
	baseURL  string
	query    string
	language string
	country  string
	client   *http.Client
}

func NewGNewsClient(apiKey, query, language, country string) *GNewsClient {
	return &GNewsClient{
		apiKey:   apiKey,
		baseURL:  defaultGNewsURL,
		query:    query,
		language: language,
		country:  country,
		client:   httputil.NewClientWithTimeout(15 * time.Second),
	}
}

type gnewsResponse struct {
	TotalArticles int            `json:"totalArticles"`
	Articles      []GNewsArticle `json:"articles"`
}

// GNewsArticle is the wire shape of one feed entry.
type GNewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"` // e.g. 2026-08-27T10:30:00Z
}

// FetchArticles retrieves the latest articles for the configured query,
// retrying transient upstream failures with exponential backoff.
func (g *GNewsClient) FetchArticles() ([]GNewsArticle, error) {
	params := url.Values{}
	params.Set("q", g.query)
	params.Set("lang", g.language)
	params.Set("country", g.country)
	params.Set("max", "100")
	params.Set("apikey", g.apiKey)

	reqURL := g.baseURL + "?" + params.Encode()

	var body []byte
	operation := func() error {
		resp, err := g.client.Get(reqURL)
		if err != nil {
			return fmt.Errorf("fetch news: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
			return backoff.Permanent(fmt.Errorf("fetch news: auth failure, status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("fetch news: status %d: %s", resp.StatusCode, string(b))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, bo); err != nil {
		metrics.NewsFetchesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var data gnewsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.NewsFetchesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("unmarshal news response: %w", err)
	}
	metrics.NewsFetchesTotal.WithLabelValues("ok").Inc()

	return data.Articles, nil
}

// parsePublishedAt accepts the GNews timestamp format, falling back to now
// for malformed values so one bad article does not block ingestion.
func parsePublishedAt(s string, now time.Time) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return now
}
