package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rentals-api/internal/domain"
)

// DocumentType tipo de documento fiscal, derivado del régimen del emisor.
type DocumentType string

const (
	DocumentTypeReceipt DocumentType = "receipt"
	DocumentTypeInvoice DocumentType = "invoice"
)

// DocumentStatus estado del ciclo de vida del documento.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"     // mutable y borrable
	StatusIssued    DocumentStatus = "issued"    // bloqueado, numeración definitiva
	StatusSent      DocumentStatus = "sent"      // emitido y entregado al cliente
	StatusCancelled DocumentStatus = "cancelled" // terminal, conserva su número
)

// documentTransitions tabla de transiciones permitidas. Un borrador no se anula: se borra.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	StatusDraft:     {StatusIssued},
	StatusIssued:    {StatusSent, StatusCancelled},
	StatusSent:      {StatusCancelled},
	StatusCancelled: {},
}

// Valid indica si el estado es conocido.
func (s DocumentStatus) Valid() bool {
	_, ok := documentTransitions[s]
	return ok
}

// CanTransition indica si from → to está en la tabla.
func CanTransition(from, to DocumentStatus) bool {
	for _, next := range documentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IssuerSnapshot copia inmutable de la identidad del emisor al momento de emitir.
type IssuerSnapshot struct {
	GroupID      string
	BusinessName string
	Address      string
	VATNumber    string
	TaxCode      string
	Email        string
	Phone        string
	IBAN         string
	ActivityType ActivityType
}

// CustomerSnapshot copia inmutable del cliente al momento de emitir.
type CustomerSnapshot struct {
	Name    string
	Email   string
	Phone   string
	TaxCode string
	Address string
	Country string
}

// StayDetails bloque descriptivo de la estancia.
type StayDetails struct {
	ApartmentID      string
	ApartmentName    string
	ApartmentAddress string
	CheckIn          time.Time
	CheckOut         time.Time
	Nights           int
	Guests           int
	Channel          string
}

// LineItem línea del documento. TaxRate/TaxAmount son nil en régimen sin IVA.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	TaxRate     *decimal.Decimal
	TaxAmount   *decimal.Decimal
}

// WithholdingInfo retención informativa declarada por el canal. No reduce el total.
type WithholdingInfo struct {
	Channel string
	Rate    decimal.Decimal
	Amount  decimal.Decimal
	Text    string
}

// Estados de pago del documento.
const (
	PaymentPaid    = "paid"
	PaymentPending = "pending"
)

// PaymentInfo metadatos de pago resueltos desde la reserva.
type PaymentInfo struct {
	Status    string
	Method    string
	Reference string
	PaidAt    *time.Time
}

// Cancellation registro de anulación (evento de auditoría, no borrado).
type Cancellation struct {
	Reason string
	Actor  string
	At     time.Time
}

// InvoiceDocument documento fiscal (recibo o factura) generado desde una reserva.
type InvoiceDocument struct {
	ID               string
	GroupID          string
	BookingID        string
	Number           string // número final formateado, ej. "2024/007"
	SequenceNumber   int64
	Year             int
	IssueDate        time.Time
	DocumentType     DocumentType
	Issuer           IssuerSnapshot
	Customer         CustomerSnapshot
	Stay             StayDetails
	Items            []LineItem
	Subtotal         decimal.Decimal
	TaxAmount        decimal.Decimal
	Total            decimal.Decimal
	TaxRate          *decimal.Decimal
	PricesIncludeVAT bool
	Withholding      *WithholdingInfo
	Payment          PaymentInfo
	Status           DocumentStatus
	IsLocked         bool
	Notes            string
	InternalNotes    string
	ArtifactLocation string
	Cancellation     *Cancellation
	LockedAt         *time.Time
	SentAt           *time.Time
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PlaceholderNumber número temporal del borrador antes de reservar el definitivo.
func PlaceholderNumber(id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "TMP-" + short
}

// IsPlaceholder indica si el documento aún no tiene número definitivo.
func (d *InvoiceDocument) IsPlaceholder() bool {
	return d.SequenceNumber == 0 && strings.HasPrefix(d.Number, "TMP-")
}

// Content campos fiscales que el bloqueo protege.
type Content struct {
	Customer  CustomerSnapshot
	Items     []LineItem
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
	Notes     string
}

// ReplaceContent reemplaza cliente, líneas, totales y notas. Falla si el documento está bloqueado.
func (d *InvoiceDocument) ReplaceContent(c Content, now time.Time) error {
	if d.IsLocked {
		return fmt.Errorf("documento %s: %w", d.ID, domain.ErrDocumentLocked)
	}
	d.Customer = c.Customer
	d.Items = c.Items
	d.Subtotal = c.Subtotal
	d.TaxAmount = c.TaxAmount
	d.Total = c.Total
	d.Notes = c.Notes
	d.UpdatedAt = now
	return nil
}

// Transition aplica una transición de la tabla. Lock y Cancel ajustan sus campos asociados.
func (d *InvoiceDocument) Transition(to DocumentStatus, now time.Time) error {
	if !d.Status.Valid() {
		return fmt.Errorf("estado desconocido %q", d.Status)
	}
	if !CanTransition(d.Status, to) {
		return fmt.Errorf("%s → %s: %w", d.Status, to, domain.ErrInvalidTransition)
	}
	switch to {
	case StatusIssued:
		d.IsLocked = true
		d.LockedAt = &now
	case StatusSent:
		if !d.IsLocked {
			return fmt.Errorf("%s → %s requiere documento bloqueado: %w", d.Status, to, domain.ErrInvalidTransition)
		}
		d.SentAt = &now
	case StatusCancelled:
	case StatusDraft:
	}
	d.Status = to
	d.UpdatedAt = now
	return nil
}

// AppendInternalNote agrega una nota interna con marca de tiempo.
func (d *InvoiceDocument) AppendInternalNote(note string, now time.Time) {
	line := fmt.Sprintf("[%s] %s", now.UTC().Format(time.RFC3339), strings.TrimSpace(note))
	if d.InternalNotes == "" {
		d.InternalNotes = line
	} else {
		d.InternalNotes += "\n" + line
	}
	d.UpdatedAt = now
}
