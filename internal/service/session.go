package service

import "ridehail/internal/domain"

// Session identifies the signed-in caller of an operation.
// It is passed explicitly to every call; nothing is read from globals.
type Session struct {
	UserID   string
	UserType domain.UserType
}

// Valid reports whether the session names a known account.
func (s Session) Valid() bool {
	return s.UserID != "" && s.UserType.Valid()
}

// IsDriver reports whether the caller signed in as a driver.
func (s Session) IsDriver() bool {
	return s.UserType == domain.UserTypeDriver
}

// IsRider reports whether the caller signed in as a rider.
func (s Session) IsRider() bool {
	return s.UserType == domain.UserTypeRider
}

func requireSession(s Session) error {
	if !s.Valid() {
		return ErrNotAuthenticated
	}
	return nil
}

func requireDriver(s Session) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if !s.IsDriver() {
		return ErrDriverRequired
	}
	return nil
}

func requireRider(s Session) error {
	if err := requireSession(s); err != nil {
		return err
	}
	if !s.IsRider() {
		return ErrRiderRequired
	}
	return nil
}
