package domain

import "github.com/mmcloughlin/geohash"

// GeohashPrecision is the number of geohash characters stored for pickups (~150m cells).
const GeohashPrecision = 7

// Location is a geographic point with a human-readable label.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
	Name      string  `json:"name,omitempty"`
}

// Validate reports ErrInvalidCoordinate when the point is off the globe.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return ErrInvalidCoordinate
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// Geohash encodes the point as a geohash cell.
func (l Location) Geohash() string {
	return geohash.EncodeWithPrecision(l.Latitude, l.Longitude, GeohashPrecision)
}
