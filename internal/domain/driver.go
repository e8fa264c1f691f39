package domain

import "time"

// Car describes the vehicle a driver operates.
type Car struct {
	Model        string `json:"model"`
	Color        string `json:"color"`
	LicensePlate string `json:"license_plate"`
}

// Driver is a profile in the driver pool. Its ID is the driver's user ID.
type Driver struct {
	ID              string
	Name            string
	Phone           string
	Rating          float64
	Car             Car
	IsOnline        bool
	CurrentLocation *Location
	UpdatedAt       time.Time
}
