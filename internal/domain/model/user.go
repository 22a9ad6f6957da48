package model

import (
	"time"
)

type User struct {
	ID             string `json:"user_id"`
	Username       string `json:"username"`
	HashedPassword string `json:"-"` // Not exposed
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Street         string `json:"street"`
	City           string `json:"city"`
	State          string `json:"state"`
	PostalCode     string `json:"postal_code"`

	// LoggedIn records the last session transition (signup/signin set it,
	// logout clears it). It is informational only and never consulted when
	// authorizing a request; the bearer token is the authority.
	LoggedIn bool `json:"logged_in"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
