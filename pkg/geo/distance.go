// Package geo holds coordinate math used by the practitioner directory.
package geo

import "math"

const (
	// EarthRadiusMiles is the mean earth radius used for directory distances.
	EarthRadiusMiles = 3959.0
	EarthRadiusKm    = 6371.0
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Valid reports whether the pair is inside the WGS84 range.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Distance returns the Haversine great-circle distance between two points for the given sphere radius.
func Distance(lat1, lon1, lat2, lon2, radius float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return radius * c
}

// DistanceMiles is Distance with EarthRadiusMiles.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	return Distance(lat1, lon1, lat2, lon2, EarthRadiusMiles)
}

// DistanceKm is Distance with EarthRadiusKm.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return Distance(lat1, lon1, lat2, lon2, EarthRadiusKm)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
