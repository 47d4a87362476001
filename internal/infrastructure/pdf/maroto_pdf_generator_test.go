package pdf

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

func sampleDocument(docType entity.DocumentType) *entity.InvoiceDocument {
	rate := decimal.NewFromInt(22)
	tax := decimal.NewFromInt(22)
	doc := &entity.InvoiceDocument{
		ID:           "doc-1",
		GroupID:      "G1",
		Number:       "2024/001",
		Year:         2024,
		IssueDate:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		DocumentType: docType,
		Issuer:       entity.IssuerSnapshot{BusinessName: "Rossi Affitti", VATNumber: "IT01234567890", IBAN: "IT60 X054 2811 1010 0000 0123 456"},
		Customer:     entity.CustomerSnapshot{Name: "Mario Bianchi", Email: "mario@example.com"},
		Stay: entity.StayDetails{
			ApartmentName: "Casa Sole",
			CheckIn:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			CheckOut:      time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
			Nights:        3,
			Guests:        2,
		},
		Items: []entity.LineItem{{
			Description: "Soggiorno presso Casa Sole",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.NewFromInt(100),
			Total:       decimal.NewFromInt(100),
		}},
		Subtotal:  decimal.NewFromInt(100),
		TaxAmount: decimal.NewFromInt(22),
		Total:     decimal.NewFromInt(122),
		Status:    entity.StatusIssued,
		Payment:   entity.PaymentInfo{Status: entity.PaymentPending},
	}
	if docType == entity.DocumentTypeInvoice {
		doc.TaxRate = &rate
		doc.Items[0].TaxRate = &rate
		doc.Items[0].TaxAmount = &tax
	}
	return doc
}

func TestGenerateInvoicePDF(t *testing.T) {
	g := NewMarotoPDFGenerator()
	for _, dt := range []entity.DocumentType{entity.DocumentTypeInvoice, entity.DocumentTypeReceipt} {
		out, err := g.GenerateInvoicePDF(context.Background(), sampleDocument(dt))
		require.NoError(t, err, dt)
		assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), dt)
	}
}

func TestGenerateInvoicePDF_Anulado(t *testing.T) {
	doc := sampleDocument(entity.DocumentTypeReceipt)
	doc.Status = entity.StatusCancelled
	doc.Cancellation = &entity.Cancellation{Reason: "Prenotazione annullata"}
	doc.Withholding = &entity.WithholdingInfo{Channel: "airbnb", Rate: decimal.NewFromInt(21), Amount: decimal.RequireFromString("25.62")}
	doc.Notes = "Grazie\nA presto"

	out, err := NewMarotoPDFGenerator().GenerateInvoicePDF(context.Background(), doc)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestGenerateInvoicePDF_Nil(t *testing.T) {
	_, err := NewMarotoPDFGenerator().GenerateInvoicePDF(context.Background(), nil)
	assert.Error(t, err)
}

func TestEPCPayload(t *testing.T) {
	payload := EPCPayload(sampleDocument(entity.DocumentTypeInvoice))
	lines := strings.Split(payload, "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "BCD", lines[0])
	assert.Equal(t, "Rossi Affitti", lines[5])
	assert.Equal(t, "IT60X0542811101000000123456", lines[6])
	assert.Equal(t, "EUR122.00", lines[7])
	assert.Equal(t, "FATTURA 2024/001", lines[10])
}

func TestPaymentLine(t *testing.T) {
	paidAt := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Pagato con carta il 01/02/2024", paymentLine(entity.PaymentInfo{Status: entity.PaymentPaid, Method: "card", PaidAt: &paidAt}))
	assert.Equal(t, "Pagato", paymentLine(entity.PaymentInfo{Status: entity.PaymentPaid, Method: "other"}))
	assert.Equal(t, "Stato pagamento: da saldare", paymentLine(entity.PaymentInfo{Status: entity.PaymentPending}))
}
