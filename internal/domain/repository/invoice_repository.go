package repository

import (
	"context"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// InvoiceRepository define el puerto de persistencia para documentos fiscales.
//
// Update y UpdateContent usan doc.Version como versión esperada; si la fila cambió
// devuelven domain.ErrConflict y, si tienen éxito, incrementan doc.Version.
type InvoiceRepository interface {
	Create(ctx context.Context, doc *entity.InvoiceDocument) error
	// Update persiste número, estado, bloqueo, anulación, notas internas y artefacto.
	// Nunca toca el contenido fiscal.
	Update(ctx context.Context, doc *entity.InvoiceDocument) error
	// UpdateContent persiste cliente, líneas, totales y notas solo si la fila no está
	// bloqueada (domain.ErrDocumentLocked en caso contrario).
	UpdateContent(ctx context.Context, doc *entity.InvoiceDocument) error
	// Delete borra un borrador no bloqueado.
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.InvoiceDocument, error)
	GetByBookingID(ctx context.Context, bookingID string) (*entity.InvoiceDocument, error)
	ListByGroupYear(ctx context.Context, groupID string, year int) ([]*entity.InvoiceDocument, error)
}
