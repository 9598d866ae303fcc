package newsfeed

import "strings"

// Gazetteer extracts a geocodable place name from article text by matching
// against a fixed list of city areas. It is deliberately simple: the NER
// pipeline that once fed this lives upstream, and a curated area list
// catches the locality names local crime reporting actually uses.
type Gazetteer struct {
	city    string
	suffix  string
	areas   []string
	cityLow string
}

// bengaluruAreas covers the localities that appear in Bengaluru crime
// reporting; matching is case-insensitive.
var bengaluruAreas = []string{
	"Koramangala", "Indiranagar", "Whitefield", "Marathahalli", "HSR Layout",
	"BTM Layout", "Jayanagar", "MG Road", "Brigade Road", "Electronic City",
	"Silk Board", "Hebbal", "Yeshwantpur", "Malleshwaram", "Rajajinagar",
	"JP Nagar", "Banashankari", "Basavanagudi", "Ulsoor", "Richmond Town",
	"Sadashivnagar", "Vasanth Nagar", "Shivajinagar", "Yelahanka", "Sarjapur",
	"Bellandur", "Kadugodi", "KR Puram", "Mahadevapura", "Bommanahalli",
}

// NewBengaluruGazetteer builds the default deployment's gazetteer.
func NewBengaluruGazetteer() *Gazetteer {
	return &Gazetteer{
		city:    "Bengaluru",
		cityLow: "bengaluru",
		suffix:  "Bengaluru, Karnataka, India",
		areas:   bengaluruAreas,
	}
}

// Extract returns a geocodable location name mentioned in the text, or
// ok=false when the article does not mention the city at all. An article
// that names the city without a specific area resolves to the city itself.
func (g *Gazetteer) Extract(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, area := range g.areas {
		if strings.Contains(lower, strings.ToLower(area)) {
			return area + ", " + g.suffix, true
		}
	}
	if strings.Contains(lower, g.cityLow) || strings.Contains(lower, "bangalore") {
		return g.suffix, true
	}
	return "", false
}
