package memory

import (
	"context"
	"time"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// BookingRepository reservas en memoria.
type BookingRepository struct {
	scope
}

func NewBookingRepository(s *Store) *BookingRepository {
	return &BookingRepository{scope{s: s}}
}

// Put crea o reemplaza una reserva.
func (r *BookingRepository) Put(ctx context.Context, b *entity.Booking) error {
	return r.write(ctx, func() error {
		r.s.bookings[b.ID] = *b
		return nil
	})
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	var out *entity.Booking
	err := r.read(ctx, func() {
		if b, ok := r.s.bookings[id]; ok {
			out = &b
		}
	})
	return out, err
}

func (r *BookingRepository) MarkInvoiceEmitted(ctx context.Context, bookingID, documentID, number string) error {
	return r.write(ctx, func() error {
		b, ok := r.s.bookings[bookingID]
		if !ok {
			return domain.ErrNotFound
		}
		b.InvoiceSettings.InvoiceEmitted = true
		b.InvoiceSettings.DocumentID = documentID
		b.InvoiceSettings.DocumentNumber = number
		b.UpdatedAt = time.Now()
		r.s.bookings[bookingID] = b
		return nil
	})
}

func (r *BookingRepository) ClearInvoice(ctx context.Context, bookingID, documentID string) error {
	return r.write(ctx, func() error {
		b, ok := r.s.bookings[bookingID]
		if !ok || b.InvoiceSettings.DocumentID != documentID {
			return nil
		}
		b.InvoiceSettings.InvoiceEmitted = false
		b.InvoiceSettings.DocumentID = ""
		b.InvoiceSettings.DocumentNumber = ""
		b.UpdatedAt = time.Now()
		r.s.bookings[bookingID] = b
		return nil
	})
}
