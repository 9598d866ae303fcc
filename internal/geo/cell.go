package geo

import (
	"errors"
	"fmt"
	"math"

	h3 "github.com/uber/h3-go/v4"
)

// DefaultResolution is the H3 resolution used throughout the service.
// Resolution 8 cells average ~0.74 km² — roughly neighbourhood-block
// sized, which matches how the historical data clusters.
const DefaultResolution = 8

// ErrInvalidCoordinate is returned for coordinates outside WGS84 range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

const earthRadiusKM = 6371.0

// LatLon is a WGS84 point.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate rejects NaN and out-of-range coordinates.
func Validate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("%w: NaN", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinate, lon)
	}
	return nil
}

// CellOf returns the H3 cell index string for a point at the given
// resolution. Same point and resolution always yield the same cell.
func CellOf(lat, lon float64, resolution int) (string, error) {
	if err := Validate(lat, lon); err != nil {
		return "", err
	}
	cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), resolution)
	if !cell.IsValid() {
		return "", fmt.Errorf("%w: no h3 cell at resolution %d", ErrInvalidCoordinate, resolution)
	}
	return cell.String(), nil
}

// BoundaryOf returns the polygon vertices of an H3 cell.
func BoundaryOf(cellID string) ([]LatLon, error) {
	c := h3.Cell(h3.IndexFromString(cellID))
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid h3 cell %q", cellID)
	}
	boundary := c.Boundary()
	verts := make([]LatLon, 0, len(boundary))
	for _, v := range boundary {
		verts = append(verts, LatLon{Lat: v.Lat, Lon: v.Lng})
	}
	return verts, nil
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(a))
}

// BoundingBox returns a lat/lon box that fully contains the circle of
// radiusMeters around the centre. Used as a cheap SQL prefilter before
// exact Haversine filtering.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusMeters / 1000 / 111.32
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01 // near the poles the box degenerates, clamp it
	}
	lonDelta := radiusMeters / 1000 / (111.32 * cosLat)
	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// ContainsPoint reports whether a polygon contains the point, using the
// ray casting rule. Vertices wrap implicitly.
func ContainsPoint(polygon []LatLon, lat, lon float64) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := polygon[i], polygon[j]
		if (vi.Lat > lat) != (vj.Lat > lat) &&
			lon < (vj.Lon-vi.Lon)*(lat-vi.Lat)/(vj.Lat-vi.Lat)+vi.Lon {
			inside = !inside
		}
	}
	return inside
}
