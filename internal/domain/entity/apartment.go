package entity

import "time"

// Apartment unidad alquilable.
type Apartment struct {
	ID        string
	Name      string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
