package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

// InvoicingTxRunner ejecuta una función dentro de una transacción que incluye documentos,
// reservas y contadores. Si fn devuelve error se hace rollback de todo.
type InvoicingTxRunner interface {
	RunInvoicing(ctx context.Context, fn func(
		invoiceRepo repository.InvoiceRepository,
		bookingRepo repository.BookingRepository,
		sequenceRepo repository.SequenceRepository,
	) error) error
}

// ArtifactPipeline genera y guarda la representación del documento. Devuelve la ubicación.
type ArtifactPipeline interface {
	RenderAndStore(ctx context.Context, doc *entity.InvoiceDocument) (string, error)
}

// InvoicePDFGenerator genera el PDF de un documento.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, doc *entity.InvoiceDocument) ([]byte, error)
}

// ObjectStorage guarda un objeto y devuelve su ubicación.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Tipos de evento publicados por el motor.
const (
	EventNewInvoice       = "new_invoice"
	EventInvoiceCancelled = "invoice_cancelled"
)

// InvoiceEvent evento de auditoría/notificación.
type InvoiceEvent struct {
	Type         string          `json:"type"`
	DocumentID   string          `json:"document_id"`
	BookingID    string          `json:"booking_id"`
	GroupID      string          `json:"group_id"`
	Number       string          `json:"number"`
	CustomerName string          `json:"customer_name"`
	Total        decimal.Decimal `json:"total"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Notifier publica eventos. Los fallos nunca invalidan la operación que los origina.
type Notifier interface {
	Publish(ctx context.Context, ev InvoiceEvent) error
}

// BookingGuard evita dos emisiones simultáneas para la misma reserva.
// Acquire devuelve false si otra emisión ya tiene el candado.
type BookingGuard interface {
	Acquire(ctx context.Context, bookingID string) (bool, error)
	Release(ctx context.Context, bookingID string) error
}
