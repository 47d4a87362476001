package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Los snapshots (emisor, cliente, estancia, líneas, retención, pago) van en columnas JSONB.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, group_id, booking_id, number, sequence_number, year, issue_date, document_type,
	issuer, customer, stay, items, subtotal, tax_amount, total, tax_rate, prices_include_vat,
	withholding, payment, status, is_locked, notes, internal_notes, artifact_location,
	cancel_reason, cancel_actor, cancelled_at, locked_at, sent_at, version, created_at, updated_at`

// Create persiste el documento. Una segunda fila para la misma reserva viola
// invoices_booking_id_key y devuelve domain.ErrDuplicate.
func (r *InvoiceRepo) Create(ctx context.Context, doc *entity.InvoiceDocument) error {
	if doc.Version == 0 {
		doc.Version = 1
	}
	const q = `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
		        $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)`
	reason, actor, at := cancellationColumns(doc.Cancellation)
	_, err := r.q.Exec(ctx, q,
		doc.ID, doc.GroupID, doc.BookingID, doc.Number, doc.SequenceNumber, doc.Year, doc.IssueDate, string(doc.DocumentType),
		doc.Issuer, doc.Customer, doc.Stay, doc.Items, doc.Subtotal, doc.TaxAmount, doc.Total, doc.TaxRate, doc.PricesIncludeVAT,
		doc.Withholding, doc.Payment, string(doc.Status), doc.IsLocked, doc.Notes, doc.InternalNotes, nullIfEmpty(doc.ArtifactLocation),
		reason, actor, at, doc.LockedAt, doc.SentAt, doc.Version, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert invoice: %w", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update persiste número, estado y metadatos. El contenido fiscal no se toca.
func (r *InvoiceRepo) Update(ctx context.Context, doc *entity.InvoiceDocument) error {
	const q = `
		UPDATE invoices
		SET number = $3, sequence_number = $4, year = $5, issue_date = $6, status = $7,
		    is_locked = $8, locked_at = $9, sent_at = $10, cancel_reason = $11, cancel_actor = $12,
		    cancelled_at = $13, internal_notes = $14, artifact_location = $15, updated_at = $16,
		    version = version + 1
		WHERE id = $1 AND version = $2
		RETURNING version`
	reason, actor, at := cancellationColumns(doc.Cancellation)
	var version int
	err := r.q.QueryRow(ctx, q,
		doc.ID, doc.Version, doc.Number, doc.SequenceNumber, doc.Year, doc.IssueDate, string(doc.Status),
		doc.IsLocked, doc.LockedAt, doc.SentAt, reason, actor,
		at, doc.InternalNotes, nullIfEmpty(doc.ArtifactLocation), doc.UpdatedAt,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missedUpdate(ctx, doc.ID)
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	doc.Version = version
	return nil
}

// UpdateContent persiste el contenido fiscal solo si la fila no está bloqueada.
func (r *InvoiceRepo) UpdateContent(ctx context.Context, doc *entity.InvoiceDocument) error {
	const q = `
		UPDATE invoices
		SET customer = $3, items = $4, subtotal = $5, tax_amount = $6, total = $7, notes = $8,
		    withholding = $9, updated_at = $10, version = version + 1
		WHERE id = $1 AND version = $2 AND is_locked = false
		RETURNING version`
	var version int
	err := r.q.QueryRow(ctx, q,
		doc.ID, doc.Version, doc.Customer, doc.Items, doc.Subtotal, doc.TaxAmount, doc.Total, doc.Notes,
		doc.Withholding, doc.UpdatedAt,
	).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missedContentUpdate(ctx, doc.ID)
		}
		return fmt.Errorf("update invoice content: %w", err)
	}
	doc.Version = version
	return nil
}

// missedUpdate explica por qué Update no afectó filas: el documento no existe o
// cambió de versión. El bloqueo no cuenta, Update escribe también documentos bloqueados.
func (r *InvoiceRepo) missedUpdate(ctx context.Context, id string) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check invoice: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrConflict
}

// missedContentUpdate igual que missedUpdate, pero distingue la fila bloqueada.
func (r *InvoiceRepo) missedContentUpdate(ctx context.Context, id string) error {
	var locked bool
	err := r.q.QueryRow(ctx, `SELECT is_locked FROM invoices WHERE id = $1`, id).Scan(&locked)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrNotFound
	case err != nil:
		return fmt.Errorf("check invoice: %w", err)
	case locked:
		return domain.ErrDocumentLocked
	default:
		return domain.ErrConflict
	}
}

// Delete borra un borrador no bloqueado.
func (r *InvoiceRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1 AND status = 'draft' AND is_locked = false`, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check invoice: %w", err)
		}
		if exists {
			return domain.ErrDocumentLocked
		}
		return domain.ErrNotFound
	}
	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.InvoiceDocument, error) {
	doc, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice by id: %w", err)
	}
	return doc, nil
}

func (r *InvoiceRepo) GetByBookingID(ctx context.Context, bookingID string) (*entity.InvoiceDocument, error) {
	doc, err := scanInvoice(r.q.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE booking_id = $1`, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice by booking: %w", err)
	}
	return doc, nil
}

func (r *InvoiceRepo) ListByGroupYear(ctx context.Context, groupID string, year int) ([]*entity.InvoiceDocument, error) {
	const q = `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE group_id = $1 AND year = $2
		ORDER BY sequence_number, id`
	rows, err := r.q.Query(ctx, q, groupID, year)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceDocument
	for rows.Next() {
		doc, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, doc)
	}
	return list, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func cancellationColumns(c *entity.Cancellation) (reason, actor *string, at *time.Time) {
	if c == nil {
		return nil, nil, nil
	}
	return &c.Reason, &c.Actor, &c.At
}

func scanInvoice(row pgxScanner) (*entity.InvoiceDocument, error) {
	var (
		d               entity.InvoiceDocument
		artifact        *string
		reason, actor   *string
		cancelledAt     *time.Time
		docType, status string
	)
	err := row.Scan(
		&d.ID, &d.GroupID, &d.BookingID, &d.Number, &d.SequenceNumber, &d.Year, &d.IssueDate, &docType,
		&d.Issuer, &d.Customer, &d.Stay, &d.Items, &d.Subtotal, &d.TaxAmount, &d.Total, &d.TaxRate, &d.PricesIncludeVAT,
		&d.Withholding, &d.Payment, &status, &d.IsLocked, &d.Notes, &d.InternalNotes, &artifact,
		&reason, &actor, &cancelledAt, &d.LockedAt, &d.SentAt, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.DocumentType = entity.DocumentType(docType)
	d.Status = entity.DocumentStatus(status)
	d.ArtifactLocation = emptyIfNull(artifact)
	if cancelledAt != nil {
		d.Cancellation = &entity.Cancellation{Reason: emptyIfNull(reason), Actor: emptyIfNull(actor), At: *cancelledAt}
	}
	return &d, nil
}
