package newsfeed

import "strings"

// crimeKeywords filters the feed down to crime reporting before any
// geolocation work happens. Matching is case-insensitive substring search
// over title + description.
var crimeKeywords = []string{
	"murder", "robbery", "theft", "assault", "burglary", "kidnapping",
	"fraud", "scam", "crime", "criminal", "police", "arrest", "investigation",
	"violence", "attack", "homicide", "rape", "molestation", "harassment",
	"extortion", "stabbing", "shooting", "gang", "drugs", "narcotic",
	"smuggling", "cybercrime", "hacking", "domestic violence", "missing person",
}

// IsCrimeRelated reports whether the text mentions any crime keyword.
func IsCrimeRelated(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range crimeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
