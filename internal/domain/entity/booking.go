package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de pago que puede reportar la reserva.
const (
	BookingPaymentPaid    = "paid"
	BookingPaymentPartial = "partial"
	BookingPaymentUnpaid  = "unpaid"
)

// GuestIdentity datos del huésped principal.
type GuestIdentity struct {
	Name    string
	Email   string
	Phone   string
	TaxCode string
	Address string
	Country string
}

// PaymentState estado de cobro de la reserva.
type PaymentState struct {
	Status    string
	Amount    decimal.Decimal
	Method    string
	Reference string
	PaidAt    *time.Time
}

// BookingInvoiceSettings enlace reserva → documento que mantiene el motor.
type BookingInvoiceSettings struct {
	PriceConfirmed bool
	InvoiceEmitted bool
	DocumentID     string
	DocumentNumber string
}

// Booking reserva de un apartamento. El motor solo lee estos datos y escribe InvoiceSettings.
type Booking struct {
	ID              string
	ApartmentID     string
	Channel         string
	Price           decimal.Decimal
	Guest           GuestIdentity
	CheckIn         time.Time
	CheckOut        time.Time
	NumberOfGuests  int
	Payment         PaymentState
	InvoiceSettings BookingInvoiceSettings
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Nights noches de la estancia (mínimo 1).
func (b *Booking) Nights() int {
	n := int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
	if n < 1 {
		return 1
	}
	return n
}
