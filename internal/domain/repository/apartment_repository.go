package repository

import (
	"context"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// ApartmentRepository lectura de apartamentos.
type ApartmentRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Apartment, error)
}
