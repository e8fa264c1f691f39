package domain

import "strings"

// RideType represents the vehicle tier a rider books.
type RideType string

const (
	RideTypeEconomy RideType = "economy"
	RideTypeComfort RideType = "comfort"
	RideTypePremium RideType = "premium"
	RideTypeXL      RideType = "xl"
)

// RideTypes lists every bookable tier in display order.
var RideTypes = []RideType{RideTypeEconomy, RideTypeComfort, RideTypePremium, RideTypeXL}

// ParseRideType converts user input into a RideType.
func ParseRideType(s string) (RideType, error) {
	rt := RideType(strings.ToLower(strings.TrimSpace(s)))
	if !rt.Valid() {
		return "", ErrUnknownRideType
	}
	return rt, nil
}

// Valid reports whether the ride type is one of the known tiers.
func (rt RideType) Valid() bool {
	switch rt {
	case RideTypeEconomy, RideTypeComfort, RideTypePremium, RideTypeXL:
		return true
	}
	return false
}
