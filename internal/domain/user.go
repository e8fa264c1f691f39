package domain

import "time"

// UserType distinguishes riders from drivers.
type UserType string

const (
	UserTypeRider  UserType = "rider"
	UserTypeDriver UserType = "driver"
)

// Valid reports whether the user type is known.
func (u UserType) Valid() bool {
	return u == UserTypeRider || u == UserTypeDriver
}

// DefaultUserRating is the rating every new account starts with.
const DefaultUserRating = 5.0

// Preferences are the per-user app settings.
type Preferences struct {
	Notifications bool   `json:"notifications"`
	DarkMode      bool   `json:"dark_mode"`
	Language      string `json:"language"`
	Currency      string `json:"currency"`
}

// DefaultPreferences returns the settings assigned at sign-up.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: true,
		DarkMode:      true,
		Language:      "en",
		Currency:      "USD",
	}
}

// User is an account profile.
type User struct {
	ID           string
	Email        string
	Phone        string
	Name         string
	UserType     UserType
	Rating       float64
	TotalRides   int
	Preferences  Preferences
	PasswordHash string
	CreatedAt    time.Time
}
