package domain

import "github.com/samirrijal/ebtfinder/internal/pkg/geospatial"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point is on the globe.
func (p GeoPoint) Valid() bool {
	return geospatial.IsValidCoordinate(p.Lat, p.Lon)
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// BoundsFrom converts a geospatial box into its domain form.
func BoundsFrom(b geospatial.Bounds) Bounds {
	return Bounds{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: b.MaxLon}
}
