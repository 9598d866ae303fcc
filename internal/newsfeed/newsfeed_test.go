package newsfeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marais/streetrisk/internal/models"
)

func TestIsCrimeRelated(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"robbery headline", "Armed robbery at Indiranagar ATM kiosk", true},
		{"case insensitive", "POLICE make ARREST after chain snatching", true},
		{"multi-word keyword", "Rise in domestic violence complaints", true},
		{"benign news", "New metro line opens to commuters", false},
		{"empty", "", false},
		{"keyword inside word", "The describer mentioned nothing", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCrimeRelated(tt.text); got != tt.want {
				t.Errorf("IsCrimeRelated(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestGazetteerExtract(t *testing.T) {
	g := NewBengaluruGazetteer()

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{
			"specific area",
			"Theft reported in Koramangala on Friday night",
			"Koramangala, Bengaluru, Karnataka, India",
			true,
		},
		{
			"case insensitive area",
			"chain snatching near hsr layout signal",
			"HSR Layout, Bengaluru, Karnataka, India",
			true,
		},
		{
			"city only fallback",
			"Bengaluru police arrest three in fraud case",
			"Bengaluru, Karnataka, India",
			true,
		},
		{
			"legacy city spelling",
			"Bangalore sees spike in cybercrime",
			"Bengaluru, Karnataka, India",
			true,
		},
		{
			"no city mention",
			"Mumbai police bust smuggling ring",
			"",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := g.Extract(tt.text)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Extract(%q) = %q, %v; want %q, %v", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParsePublishedAt(t *testing.T) {
	now := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	got := parsePublishedAt("2026-08-26T10:30:00Z", now)
	want := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if got := parsePublishedAt("garbage", now); !got.Equal(now) {
		t.Errorf("malformed timestamp: got %v, want fallback %v", got, now)
	}
}

type fakeSink struct {
	inserted []models.NewsArticle
	seen     map[string]bool
	pruneErr error
	prunedAt time.Time
}

func (f *fakeSink) InsertArticle(ctx context.Context, a models.NewsArticle) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[a.URL] {
		return false, nil
	}
	f.seen[a.URL] = true
	f.inserted = append(f.inserted, a)
	return true, nil
}

func (f *fakeSink) PruneArticles(ctx context.Context, olderThan time.Time) (int64, error) {
	f.prunedAt = olderThan
	return 0, f.pruneErr
}

type fakeFeed struct {
	articles []GNewsArticle
	err      error
}

func (f *fakeFeed) FetchArticles() ([]GNewsArticle, error) {
	return f.articles, f.err
}

type fakeGeocoder struct {
	calls int
	fail  bool
}

func (f *fakeGeocoder) Geocode(name string) (float64, float64, bool, error) {
	f.calls++
	if f.fail {
		return 0, 0, false, errors.New("nominatim down")
	}
	return 12.9352, 77.6245, true, nil
}

func newTestWorker(feed *fakeFeed, sink *fakeSink, geo *fakeGeocoder) *Worker {
	w := NewWorker(sink, feed, geo, NewBengaluruGazetteer())
	w.now = func() time.Time { return time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC) }
	return w
}

func TestWorkerSavesCrimeArticles(t *testing.T) {
	feed := &fakeFeed{articles: []GNewsArticle{
		{Title: "Robbery in Koramangala", Description: "", URL: "https://example.com/1", PublishedAt: "2026-08-27T08:00:00Z"},
		{Title: "New park opens in Jayanagar", Description: "", URL: "https://example.com/2", PublishedAt: "2026-08-27T08:00:00Z"},
		{Title: "Mumbai theft case", Description: "", URL: "https://example.com/3", PublishedAt: "2026-08-27T08:00:00Z"},
		{Title: "Assault near MG Road", Description: "", URL: "", PublishedAt: "2026-08-27T08:00:00Z"},
	}}
	sink := &fakeSink{}
	geo := &fakeGeocoder{}

	if err := newTestWorker(feed, sink, geo).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	// Only the Koramangala robbery survives: the park story is not crime,
	// the Mumbai one has no local area, the last has no URL.
	if len(sink.inserted) != 1 {
		t.Fatalf("saved %d articles, want 1", len(sink.inserted))
	}
	got := sink.inserted[0]
	if got.LocationName != "Koramangala, Bengaluru, Karnataka, India" {
		t.Errorf("location = %q", got.LocationName)
	}
	if got.Latitude == 0 || got.Longitude == 0 {
		t.Error("article saved without coordinates")
	}
	if geo.calls != 1 {
		t.Errorf("geocoder called %d times, want 1", geo.calls)
	}
}

func TestWorkerSkipsDuplicates(t *testing.T) {
	article := GNewsArticle{Title: "Theft in Whitefield", URL: "https://example.com/dup", PublishedAt: "2026-08-27T08:00:00Z"}
	feed := &fakeFeed{articles: []GNewsArticle{article, article}}
	sink := &fakeSink{}

	if err := newTestWorker(feed, sink, &fakeGeocoder{}).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(sink.inserted) != 1 {
		t.Errorf("saved %d articles, want 1 (duplicate URL)", len(sink.inserted))
	}
}

func TestWorkerGeocodeFailureIsolated(t *testing.T) {
	feed := &fakeFeed{articles: []GNewsArticle{
		{Title: "Burglary in Hebbal", URL: "https://example.com/1", PublishedAt: "2026-08-27T08:00:00Z"},
	}}
	sink := &fakeSink{}

	// Geocoder down: the cycle still completes without error.
	if err := newTestWorker(feed, sink, &fakeGeocoder{fail: true}).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(sink.inserted) != 0 {
		t.Errorf("saved %d articles despite geocode failure", len(sink.inserted))
	}
}

func TestWorkerFeedErrorPropagates(t *testing.T) {
	feed := &fakeFeed{err: errors.New("gnews 500")}
	if err := newTestWorker(feed, &fakeSink{}, &fakeGeocoder{}).RunOnce(context.Background()); err == nil {
		t.Error("feed error swallowed")
	}
}

func TestWorkerPrunesBeforeFetching(t *testing.T) {
	feed := &fakeFeed{}
	sink := &fakeSink{}
	w := newTestWorker(feed, sink, &fakeGeocoder{})

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	wantCutoff := w.now().Add(-DefaultRetention)
	if !sink.prunedAt.Equal(wantCutoff) {
		t.Errorf("prune cutoff = %v, want %v", sink.prunedAt, wantCutoff)
	}
}

func TestWorkerTruncatesLongTitles(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	feed := &fakeFeed{articles: []GNewsArticle{
		{Title: "robbery in Koramangala " + string(long), URL: "https://example.com/long", PublishedAt: "2026-08-27T08:00:00Z"},
	}}
	sink := &fakeSink{}

	if err := newTestWorker(feed, sink, &fakeGeocoder{}).RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(sink.inserted) != 1 {
		t.Fatalf("saved %d articles, want 1", len(sink.inserted))
	}
	if len(sink.inserted[0].Title) != 500 {
		t.Errorf("title length = %d, want 500", len(sink.inserted[0].Title))
	}
}
