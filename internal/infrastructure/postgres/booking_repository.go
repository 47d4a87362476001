package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

var _ repository.BookingRepository = (*BookingRepo)(nil)

// BookingRepo lectura de reservas y escritura del enlace al documento.
type BookingRepo struct {
	q Querier
}

// NewBookingRepository construye el adaptador. Pasar pool o tx.
func NewBookingRepository(q Querier) *BookingRepo {
	return &BookingRepo{q: q}
}

func (r *BookingRepo) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	const q = `
		SELECT id, apartment_id, channel, price, price_confirmed,
		       guest_name, guest_email, guest_phone, guest_tax_code, guest_address, guest_country,
		       check_in, check_out, number_of_guests,
		       payment_status, payment_amount, payment_method, payment_reference, paid_at,
		       invoice_emitted, invoice_document_id, invoice_number, created_at, updated_at
		FROM bookings WHERE id = $1`
	var (
		b                          entity.Booking
		email, phone, tax, address *string
		country, method, reference *string
		docID, number              *string
	)
	err := r.q.QueryRow(ctx, q, id).Scan(
		&b.ID, &b.ApartmentID, &b.Channel, &b.Price, &b.InvoiceSettings.PriceConfirmed,
		&b.Guest.Name, &email, &phone, &tax, &address, &country,
		&b.CheckIn, &b.CheckOut, &b.NumberOfGuests,
		&b.Payment.Status, &b.Payment.Amount, &method, &reference, &b.Payment.PaidAt,
		&b.InvoiceSettings.InvoiceEmitted, &docID, &number, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	b.Guest.Email = emptyIfNull(email)
	b.Guest.Phone = emptyIfNull(phone)
	b.Guest.TaxCode = emptyIfNull(tax)
	b.Guest.Address = emptyIfNull(address)
	b.Guest.Country = emptyIfNull(country)
	b.Payment.Method = emptyIfNull(method)
	b.Payment.Reference = emptyIfNull(reference)
	b.InvoiceSettings.DocumentID = emptyIfNull(docID)
	b.InvoiceSettings.DocumentNumber = emptyIfNull(number)
	return &b, nil
}

func (r *BookingRepo) MarkInvoiceEmitted(ctx context.Context, bookingID, documentID, number string) error {
	const q = `
		UPDATE bookings
		SET invoice_emitted = true, invoice_document_id = $2, invoice_number = $3, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q, bookingID, documentID, number)
	if err != nil {
		return fmt.Errorf("mark booking invoiced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *BookingRepo) ClearInvoice(ctx context.Context, bookingID, documentID string) error {
	const q = `
		UPDATE bookings
		SET invoice_emitted = false, invoice_document_id = NULL, invoice_number = NULL, updated_at = now()
		WHERE id = $1 AND invoice_document_id = $2`
	if _, err := r.q.Exec(ctx, q, bookingID, documentID); err != nil {
		return fmt.Errorf("clear booking invoice: %w", err)
	}
	return nil
}
