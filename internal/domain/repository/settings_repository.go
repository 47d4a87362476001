package repository

import (
	"context"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// SettingsRepository lectura de la configuración fiscal de los grupos emisores.
type SettingsRepository interface {
	GetByID(ctx context.Context, id string) (*entity.IssuerSettings, error)
	// GetByApartmentID devuelve el grupo que incluye el apartamento, o nil.
	GetByApartmentID(ctx context.Context, apartmentID string) (*entity.IssuerSettings, error)
}
