package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/fiscal"
)

// CustomerRequest datos de cliente que reemplazan los del huésped.
type CustomerRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
	TaxCode string `json:"tax_code,omitempty" validate:"omitempty,max=32,taxid"`
	Address string `json:"address,omitempty"`
	Country string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// InvoiceItemRequest línea manual (cantidad × precio unitario).
type InvoiceItemRequest struct {
	Description string          `json:"description" validate:"required,max=300"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// IssueInvoiceRequest body para POST /api/invoices.
type IssueInvoiceRequest struct {
	BookingID string               `json:"booking_id" validate:"required"`
	Customer  *CustomerRequest     `json:"customer,omitempty" validate:"omitempty"`
	Items     []InvoiceItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	Notes     *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Lock      bool                 `json:"lock"`
}

// BatchIssueRequest body para POST /api/invoices/batch.
type BatchIssueRequest struct {
	BookingIDs   []string `json:"booking_ids" validate:"required,min=1,max=500,dive,required"`
	SkipExisting bool     `json:"skip_existing"`
	Lock         bool     `json:"lock"`
	Concurrency  int      `json:"concurrency,omitempty" validate:"omitempty,min=1,max=16"`
}

// UpdateDraftRequest body para PATCH /api/invoices/:id.
type UpdateDraftRequest struct {
	Version  int                  `json:"version" validate:"min=0"`
	Customer *CustomerRequest     `json:"customer,omitempty" validate:"omitempty"`
	Items    []InvoiceItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
	Notes    *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// TransitionRequest body para lock y sent.
type TransitionRequest struct {
	Version int `json:"version" validate:"min=0"`
}

// CancelInvoiceRequest body para POST /api/invoices/:id/cancel.
type CancelInvoiceRequest struct {
	Version int    `json:"version" validate:"min=0"`
	Reason  string `json:"reason" validate:"required,max=500"`
}

// InternalNoteRequest body para POST /api/invoices/:id/notes.
type InternalNoteRequest struct {
	Note string `json:"note" validate:"required,max=2000"`
}

// LineItemResponse línea en la respuesta.
type LineItemResponse struct {
	Description string           `json:"description"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	Total       decimal.Decimal  `json:"total"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
	TaxAmount   *decimal.Decimal `json:"tax_amount,omitempty"`
}

// WithholdingResponse retención informativa.
type WithholdingResponse struct {
	Channel string          `json:"channel"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
	Text    string          `json:"text,omitempty"`
}

// CancellationResponse datos de anulación.
type CancellationResponse struct {
	Reason string    `json:"reason"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
}

// InvoiceResponse documento para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID               string                `json:"id"`
	GroupID          string                `json:"group_id"`
	BookingID        string                `json:"booking_id"`
	Number           string                `json:"number"`
	Year             int                   `json:"year"`
	IssueDate        string                `json:"issue_date"`
	DocumentType     string                `json:"document_type"`
	Status           string                `json:"status"`
	IsLocked         bool                  `json:"is_locked"`
	Version          int                   `json:"version"`
	CustomerName     string                `json:"customer_name"`
	CustomerTaxCode  string                `json:"customer_tax_code,omitempty"`
	ApartmentName    string                `json:"apartment_name,omitempty"`
	CheckIn          string                `json:"check_in"`
	CheckOut         string                `json:"check_out"`
	Channel          string                `json:"channel"`
	Items            []LineItemResponse    `json:"items"`
	Subtotal         decimal.Decimal       `json:"subtotal"`
	TaxAmount        *decimal.Decimal      `json:"tax_amount,omitempty"`
	Total            decimal.Decimal       `json:"total"`
	TaxRate          *decimal.Decimal      `json:"tax_rate,omitempty"`
	PricesIncludeVAT bool                  `json:"prices_include_vat"`
	Withholding      *WithholdingResponse  `json:"withholding,omitempty"`
	PaymentStatus    string                `json:"payment_status"`
	PaymentMethod    string                `json:"payment_method"`
	Notes            string                `json:"notes,omitempty"`
	InternalNotes    string                `json:"internal_notes,omitempty"`
	ArtifactLocation string                `json:"artifact_location,omitempty"`
	Cancellation     *CancellationResponse `json:"cancellation,omitempty"`
}

// BatchResultResponse resultado por reserva.
type BatchResultResponse struct {
	BookingID string           `json:"booking_id"`
	Success   bool             `json:"success"`
	Skipped   bool             `json:"skipped,omitempty"`
	Document  *InvoiceResponse `json:"document,omitempty"`
	Error     *ErrorResponse   `json:"error,omitempty"`
}

// CounterResponse estado del contador para GET /api/counters/:group_id/:year.
type CounterResponse struct {
	GroupID    string                 `json:"group_id"`
	Year       int                    `json:"year"`
	LastNumber int64                  `json:"last_number"`
	Used       []CounterEntryResponse `json:"used"`
}

// CounterEntryResponse par documento/número.
type CounterEntryResponse struct {
	DocumentID string `json:"document_id"`
	Number     int64  `json:"number"`
}

// ToCustomerSnapshot convierte el request en el snapshot del dominio.
func (c *CustomerRequest) ToCustomerSnapshot() *entity.CustomerSnapshot {
	if c == nil {
		return nil
	}
	return &entity.CustomerSnapshot{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		TaxCode: c.TaxCode,
		Address: c.Address,
		Country: c.Country,
	}
}

// ToFiscalItems convierte las líneas manuales.
func ToFiscalItems(items []InvoiceItemRequest) []fiscal.Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]fiscal.Item, 0, len(items))
	for _, it := range items {
		out = append(out, fiscal.Item{Description: it.Description, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return out
}

// FromDocument arma la respuesta desde la entidad.
func FromDocument(d *entity.InvoiceDocument) *InvoiceResponse {
	if d == nil {
		return nil
	}
	resp := &InvoiceResponse{
		ID:               d.ID,
		GroupID:          d.GroupID,
		BookingID:        d.BookingID,
		Number:           d.Number,
		Year:             d.Year,
		IssueDate:        d.IssueDate.Format("2006-01-02"),
		DocumentType:     string(d.DocumentType),
		Status:           string(d.Status),
		IsLocked:         d.IsLocked,
		Version:          d.Version,
		CustomerName:     d.Customer.Name,
		CustomerTaxCode:  d.Customer.TaxCode,
		ApartmentName:    d.Stay.ApartmentName,
		CheckIn:          d.Stay.CheckIn.Format("2006-01-02"),
		CheckOut:         d.Stay.CheckOut.Format("2006-01-02"),
		Channel:          d.Stay.Channel,
		Items:            make([]LineItemResponse, 0, len(d.Items)),
		Subtotal:         d.Subtotal,
		Total:            d.Total,
		TaxRate:          d.TaxRate,
		PricesIncludeVAT: d.PricesIncludeVAT,
		PaymentStatus:    d.Payment.Status,
		PaymentMethod:    d.Payment.Method,
		Notes:            d.Notes,
		InternalNotes:    d.InternalNotes,
		ArtifactLocation: d.ArtifactLocation,
	}
	// Sin tipo de IVA (locazione turistica) el impuesto no existe: no se emite.
	if d.TaxRate != nil {
		tax := d.TaxAmount
		resp.TaxAmount = &tax
	}
	for _, it := range d.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
			TaxRate:     it.TaxRate,
			TaxAmount:   it.TaxAmount,
		})
	}
	if w := d.Withholding; w != nil {
		resp.Withholding = &WithholdingResponse{Channel: w.Channel, Rate: w.Rate, Amount: w.Amount, Text: w.Text}
	}
	if c := d.Cancellation; c != nil {
		resp.Cancellation = &CancellationResponse{Reason: c.Reason, Actor: c.Actor, At: c.At}
	}
	return resp
}

// FromCounter arma la respuesta del contador. Un contador nil es un año sin emisiones.
func FromCounter(groupID string, year int, c *entity.SequenceCounter) *CounterResponse {
	resp := &CounterResponse{GroupID: groupID, Year: year, Used: []CounterEntryResponse{}}
	if c == nil {
		return resp
	}
	resp.LastNumber = c.LastNumber
	for _, e := range c.Used {
		resp.Used = append(resp.Used, CounterEntryResponse{DocumentID: e.DocumentID, Number: e.Number})
	}
	return resp
}
