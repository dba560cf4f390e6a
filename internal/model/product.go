package model

import "time"

// Product represents a catalogue product. Price is in the internal
// currency unit; Stock is the current on-hand quantity derived from the
// inventory ledger.
type Product struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     int64     `json:"price" db:"price"`
	Stock     int       `json:"stock" db:"stock"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Address is a delivery target owned by a user. Read-only in this
// subsystem; managed elsewhere.
type Address struct {
	ID         string `json:"id" db:"id"`
	UserID     string `json:"userId" db:"user_id"`
	Line       string `json:"line" db:"line"`
	City       string `json:"city" db:"city"`
	PostalCode string `json:"postalCode" db:"postal_code"`
}
