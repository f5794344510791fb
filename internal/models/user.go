package models

import "time"

// User represents a registered user. TaxHomeState is the IRS tax home used
// for every comparison the user runs.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Not serialized
	TaxHomeState string    `json:"tax_home_state"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
