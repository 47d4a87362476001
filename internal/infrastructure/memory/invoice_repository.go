package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// InvoiceRepository implementación en memoria de repository.InvoiceRepository.
type InvoiceRepository struct {
	scope
}

// NewInvoiceRepository crea el repositorio sobre el store.
func NewInvoiceRepository(s *Store) *InvoiceRepository {
	return &InvoiceRepository{scope{s: s}}
}

func (r *InvoiceRepository) Create(ctx context.Context, doc *entity.InvoiceDocument) error {
	return r.write(ctx, func() error {
		if _, ok := r.s.invoices[doc.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, d := range r.s.invoices {
			if d.BookingID == doc.BookingID {
				return domain.ErrDuplicate
			}
		}
		if doc.Version == 0 {
			doc.Version = 1
		}
		r.s.invoices[doc.ID] = *cloneDocument(*doc)
		return nil
	})
}

func (r *InvoiceRepository) Update(ctx context.Context, doc *entity.InvoiceDocument) error {
	return r.write(ctx, func() error {
		stored, ok := r.s.invoices[doc.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if stored.Version != doc.Version {
			return domain.ErrConflict
		}
		stored.Number = doc.Number
		stored.SequenceNumber = doc.SequenceNumber
		stored.Year = doc.Year
		stored.IssueDate = doc.IssueDate
		stored.Status = doc.Status
		stored.IsLocked = doc.IsLocked
		stored.LockedAt = doc.LockedAt
		stored.SentAt = doc.SentAt
		stored.Cancellation = doc.Cancellation
		stored.InternalNotes = doc.InternalNotes
		stored.ArtifactLocation = doc.ArtifactLocation
		stored.UpdatedAt = doc.UpdatedAt
		stored.Version++
		r.s.invoices[doc.ID] = stored
		doc.Version = stored.Version
		return nil
	})
}

func (r *InvoiceRepository) UpdateContent(ctx context.Context, doc *entity.InvoiceDocument) error {
	return r.write(ctx, func() error {
		stored, ok := r.s.invoices[doc.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if stored.IsLocked {
			return domain.ErrDocumentLocked
		}
		if stored.Version != doc.Version {
			return domain.ErrConflict
		}
		stored.Customer = doc.Customer
		stored.Items = slices.Clone(doc.Items)
		stored.Subtotal = doc.Subtotal
		stored.TaxAmount = doc.TaxAmount
		stored.Total = doc.Total
		stored.Notes = doc.Notes
		stored.Withholding = doc.Withholding
		stored.UpdatedAt = doc.UpdatedAt
		stored.Version++
		r.s.invoices[doc.ID] = stored
		doc.Version = stored.Version
		return nil
	})
}

func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	return r.write(ctx, func() error {
		stored, ok := r.s.invoices[id]
		if !ok {
			return domain.ErrNotFound
		}
		if stored.IsLocked || stored.Status != entity.StatusDraft {
			return domain.ErrDocumentLocked
		}
		delete(r.s.invoices, id)
		return nil
	})
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*entity.InvoiceDocument, error) {
	var out *entity.InvoiceDocument
	err := r.read(ctx, func() {
		if d, ok := r.s.invoices[id]; ok {
			out = cloneDocument(d)
		}
	})
	return out, err
}

func (r *InvoiceRepository) GetByBookingID(ctx context.Context, bookingID string) (*entity.InvoiceDocument, error) {
	var out *entity.InvoiceDocument
	err := r.read(ctx, func() {
		for _, d := range r.s.invoices {
			if d.BookingID == bookingID {
				out = cloneDocument(d)
				return
			}
		}
	})
	return out, err
}

func (r *InvoiceRepository) ListByGroupYear(ctx context.Context, groupID string, year int) ([]*entity.InvoiceDocument, error) {
	var out []*entity.InvoiceDocument
	err := r.read(ctx, func() {
		for _, d := range r.s.invoices {
			if d.GroupID == groupID && d.Year == year {
				out = append(out, cloneDocument(d))
			}
		}
	})
	slices.SortFunc(out, func(a, b *entity.InvoiceDocument) int {
		if a.SequenceNumber != b.SequenceNumber {
			if a.SequenceNumber < b.SequenceNumber {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, err
}
