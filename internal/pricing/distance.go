package pricing

import (
	"math"

	"ridehail/internal/domain"
)

const (
	// EarthRadiusKm is the mean Earth radius used by the Haversine formula.
	EarthRadiusKm = 6371.0

	// MinutesPerKm is the flat travel-time factor used for duration estimates.
	MinutesPerKm = 2.5
)

// Distance returns the great-circle distance between two points in kilometres.
func Distance(from, to domain.Location) (float64, error) {
	if err := from.Validate(); err != nil {
		return 0, err
	}
	if err := to.Validate(); err != nil {
		return 0, err
	}
	return Haversine(from.Latitude, from.Longitude, to.Latitude, to.Longitude), nil
}

// Haversine computes the great-circle distance in kilometres for raw degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// Duration estimates travel time in whole minutes. A zero distance yields zero.
func Duration(distanceKm float64) int {
	return int(math.Round(distanceKm * MinutesPerKm))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
