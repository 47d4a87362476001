package repository

import (
	"context"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// BookingRepository puerto hacia las reservas. El motor solo escribe el enlace al documento.
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Booking, error)
	MarkInvoiceEmitted(ctx context.Context, bookingID, documentID, number string) error
	// ClearInvoice borra el enlace solo si apunta a documentID.
	ClearInvoice(ctx context.Context, bookingID, documentID string) error
}
