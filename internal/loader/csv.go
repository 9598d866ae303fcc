package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/marais/streetrisk/internal/models"
)

// Sink receives parsed rows; satisfied by *store.Store.
type Sink interface {
	BulkInsertCrimeEvents(ctx context.Context, events []models.CrimeEvent) error
}

// expected header columns, matched case-insensitively by name so the
// historical export can reorder or append columns without breaking us.
var requiredColumns = []string{
	"state", "district", "year", "crime_type", "count",
	"days", "hour_of_day", "minute", "latitude", "longitude",
}

// LoadCSV parses a historical crime export and bulk-inserts every usable
// row in one transaction. Rows without coordinates are skipped, not
// fatal: the source data has plenty of incidents that were never
// geolocated and they contribute nothing to radius queries.
func LoadCSV(ctx context.Context, sink Sink, r io.Reader) (loaded, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return 0, 0, fmt.Errorf("read header: %w", err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return 0, 0, err
	}

	var events []models.CrimeEvent
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("loader: line %d: %v", line, err)
			skipped++
			continue
		}

		ev, ok := parseRow(record, cols)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}

	if len(events) == 0 {
		return 0, skipped, fmt.Errorf("no usable rows in CSV (%d skipped)", skipped)
	}
	if err := sink.BulkInsertCrimeEvents(ctx, events); err != nil {
		return 0, skipped, fmt.Errorf("bulk insert: %w", err)
	}
	log.Printf("loader: inserted %d crime events, skipped %d rows", len(events), skipped)
	return len(events), skipped, nil
}

func columnIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q in CSV header", name)
		}
	}
	return cols, nil
}

func parseRow(record []string, cols map[string]int) (models.CrimeEvent, bool) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	lat, latErr := strconv.ParseFloat(field("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(field("longitude"), 64)
	if latErr != nil || lonErr != nil || (lat == 0 && lon == 0) {
		return models.CrimeEvent{}, false
	}

	ev := models.CrimeEvent{
		State:     field("state"),
		District:  field("district"),
		CrimeType: field("crime_type"),
		Day:       field("days"),
		Latitude:  lat,
		Longitude: lon,
	}
	ev.Year, _ = strconv.Atoi(field("year"))
	ev.Count, _ = strconv.ParseFloat(field("count"), 64)
	ev.HourOfDay, _ = strconv.Atoi(field("hour_of_day"))
	ev.Minute, _ = strconv.Atoi(field("minute"))

	if i, ok := cols["street_name"]; ok && i < len(record) {
		if s := strings.TrimSpace(record[i]); s != "" {
			ev.StreetName.String = s
			ev.StreetName.Valid = true
		}
	}
	return ev, true
}
