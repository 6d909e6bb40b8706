package geospatial

import (
	"errors"
	"fmt"
	"math"
)

const (
	// EarthRadiusMiles is the mean Earth radius used for great-circle distances.
	EarthRadiusMiles = 3959.0

	// MilesPerDegreeLat approximates the length of one degree of latitude.
	// It is slightly shorter than the true ~69.09 mi so boxes built from it
	// err on the large side.
	MilesPerDegreeLat = 69.0
)

// ErrInvalidCoordinate is returned for latitudes outside [-90,90], longitudes
// outside [-180,180], NaN components, or a non-positive radius.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Bounds is an axis-aligned lat/lon rectangle.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the point lies inside the box (edges inclusive).
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// IsValidCoordinate reports whether lat/lon describe a point on the globe.
func IsValidCoordinate(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Distance calculates the great-circle distance in miles between two points.
func Distance(lat1, lon1, lat2, lon2 float64) (float64, error) {
	if !IsValidCoordinate(lat1, lon1) {
		return 0, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat1, lon1)
	}
	if !IsValidCoordinate(lat2, lon2) {
		return 0, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat2, lon2)
	}
	return haversine(lat1, lon1, lat2, lon2), nil
}

func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := ToRadians(lat2 - lat1)
	dLon := ToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(ToRadians(lat1))*math.Cos(ToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a just past 1 for near-antipodal points.
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// BoundingBox returns a rectangle that contains every point within
// radiusMiles of the origin. It is a coarse prefilter only; callers must
// still apply the exact distance test.
func BoundingBox(lat, lon, radiusMiles float64) (Bounds, error) {
	if !IsValidCoordinate(lat, lon) {
		return Bounds{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat, lon)
	}
	if math.IsNaN(radiusMiles) || math.IsInf(radiusMiles, 0) || radiusMiles <= 0 {
		return Bounds{}, fmt.Errorf("%w: radius %v", ErrInvalidCoordinate, radiusMiles)
	}

	latDelta := radiusMiles / MilesPerDegreeLat
	b := Bounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
	}

	// A box that reaches a pole wraps every meridian.
	if b.MinLat <= -90 || b.MaxLat >= 90 {
		b.MinLat = math.Max(b.MinLat, -90)
		b.MaxLat = math.Min(b.MaxLat, 90)
		b.MinLon, b.MaxLon = -180, 180
		return b, nil
	}

	lonDelta := radiusMiles / (MilesPerDegreeLat * math.Cos(ToRadians(lat)))

	// The circle's true east-west extent grows faster than the linear
	// approximation for large radii at high latitude.
	if s := math.Sin(radiusMiles/EarthRadiusMiles) / math.Cos(ToRadians(lat)); s < 1 {
		lonDelta = math.Max(lonDelta, ToDegrees(math.Asin(s)))
	} else {
		lonDelta = 180
	}

	b.MinLon = lon - lonDelta
	b.MaxLon = lon + lonDelta

	// Crossing the antimeridian cannot be expressed as one min/max range.
	if b.MinLon < -180 || b.MaxLon > 180 {
		b.MinLon, b.MaxLon = -180, 180
	}

	return b, nil
}
