package briefing

import (
	"strings"
	"testing"
	"time"

	"github.com/marais/streetrisk/internal/risk"
)

func TestBuildPrompt(t *testing.T) {
	a := risk.Assessment{
		RiskLevel:   "red",
		Explanation: "2 recent crime reports in the area",
		Environment: risk.EnvironmentResult{POICount: 12},
		Context: risk.ContextResult{
			Articles: []risk.ArticleRef{
				{Title: "Robbery near transit stand"},
				{Title: "Chain snatching reported"},
			},
		},
	}
	prompt := BuildPrompt(a)
	for _, want := range []string{"red", "12", "Robbery near transit stand", "Chain snatching reported"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptQuietArea(t *testing.T) {
	prompt := BuildPrompt(risk.Assessment{RiskLevel: "green"})
	if strings.Contains(prompt, "crime reports") {
		t.Errorf("quiet-area prompt mentions reports:\n%s", prompt)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(t.TempDir())
	cell, level := "8861892edbfffff", "yellow"

	if _, ok := c.Get(cell, level); ok {
		t.Fatal("empty cache returned a hit")
	}
	if err := c.Set(cell, level, "Stay aware near the market after dark."); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := c.Get(cell, level)
	if !ok || got != "Stay aware near the market after dark." {
		t.Errorf("Get = %q, %v", got, ok)
	}

	// A different risk level for the same cell is a separate entry.
	if _, ok := c.Get(cell, "red"); ok {
		t.Error("cache hit across risk levels")
	}
}

func TestCacheStaleEntry(t *testing.T) {
	c := NewCache(t.TempDir())
	c.maxAge = -time.Second // everything is already stale
	if err := c.Set("cell", "green", "text"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := c.Get("cell", "green"); ok {
		t.Error("stale entry returned")
	}
}
