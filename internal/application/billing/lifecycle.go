package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/fiscal"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

// DraftPatch cambios sobre un borrador. Los campos nil no se tocan.
type DraftPatch struct {
	Customer *entity.CustomerSnapshot
	Items    []fiscal.Item
	Notes    *string
}

// LifecycleController transiciones de estado de los documentos ya creados.
//
// Todas las operaciones reciben la versión esperada del documento (0 = la actual);
// si el documento cambió desde entonces devuelven domain.ErrConflict.
type LifecycleController struct {
	txRunner    InvoicingTxRunner
	invoiceRepo repository.InvoiceRepository
	artifacts   ArtifactPipeline
	notifier    Notifier
	log         zerolog.Logger
	timeout     time.Duration
	now         func() time.Time
}

// NewLifecycleController construye el controlador. artifacts y notifier pueden ser nil.
func NewLifecycleController(
	txRunner InvoicingTxRunner,
	invoiceRepo repository.InvoiceRepository,
	artifacts ArtifactPipeline,
	notifier Notifier,
	log zerolog.Logger,
) *LifecycleController {
	return &LifecycleController{
		txRunner:    txRunner,
		invoiceRepo: invoiceRepo,
		artifacts:   artifacts,
		notifier:    notifier,
		log:         log,
		timeout:     5 * time.Second,
		now:         time.Now,
	}
}

// Get devuelve el documento o domain.ErrNotFound.
func (l *LifecycleController) Get(ctx context.Context, id string) (*entity.InvoiceDocument, error) {
	doc, err := l.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get", err, nil)
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

// List documentos de un grupo en un año, por número.
func (l *LifecycleController) List(ctx context.Context, groupID string, year int) ([]*entity.InvoiceDocument, error) {
	if groupID == "" || year <= 0 {
		return nil, domain.NewValidationError("list", domain.ErrInvalidInput, "group_id y year son obligatorios")
	}
	docs, err := l.invoiceRepo.ListByGroupYear(ctx, groupID, year)
	if err != nil {
		return nil, domain.NewPersistenceError("list", err, nil)
	}
	return docs, nil
}

func (l *LifecycleController) load(ctx context.Context, id string, version int) (*entity.InvoiceDocument, error) {
	doc, err := l.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if version != 0 && doc.Version != version {
		return nil, fmt.Errorf("%w: documento %s en versión %d, se esperaba %d", domain.ErrConflict, id, doc.Version, version)
	}
	return doc, nil
}

func (l *LifecycleController) save(ctx context.Context, op string, doc *entity.InvoiceDocument) error {
	if err := l.invoiceRepo.Update(ctx, doc); err != nil {
		if errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.NewPersistenceError(op, err, nil)
	}
	return nil
}

// Lock draft → issued. Un documento ya bloqueado no se vuelve a bloquear.
func (l *LifecycleController) Lock(ctx context.Context, id string, version int) (*entity.InvoiceDocument, error) {
	const op = "lock"
	doc, err := l.load(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked {
		return nil, domain.NewLifecycleError(op, domain.ErrDocumentLocked, "documento %s ya bloqueado", doc.Number)
	}
	if doc.IsPlaceholder() {
		return nil, domain.NewLifecycleError(op, domain.ErrInvalidTransition, "documento %s sin número definitivo", doc.ID)
	}
	if err := doc.Transition(entity.StatusIssued, l.now()); err != nil {
		return nil, domain.NewLifecycleError(op, err, "documento %s", doc.Number)
	}
	if err := l.save(ctx, op, doc); err != nil {
		return nil, err
	}
	l.log.Info().Str("document_id", doc.ID).Str("number", doc.Number).Msg("documento bloqueado")
	return doc, nil
}

// MarkSent issued → sent. Requiere documento bloqueado.
func (l *LifecycleController) MarkSent(ctx context.Context, id string, version int) (*entity.InvoiceDocument, error) {
	const op = "mark_sent"
	doc, err := l.load(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if !doc.IsLocked {
		return nil, domain.NewLifecycleError(op, domain.ErrInvalidTransition, "documento %s no bloqueado", doc.Number)
	}
	if err := doc.Transition(entity.StatusSent, l.now()); err != nil {
		return nil, domain.NewLifecycleError(op, err, "documento %s", doc.Number)
	}
	if err := l.save(ctx, op, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Cancel {issued, sent} → cancelled. El documento conserva número y bloqueo.
func (l *LifecycleController) Cancel(ctx context.Context, id string, version int, reason, actor string) (*entity.InvoiceDocument, error) {
	const op = "cancel"
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError(op, domain.ErrInvalidInput, "el motivo de anulación es obligatorio")
	}
	doc, err := l.load(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if doc.Status == entity.StatusDraft {
		return nil, domain.NewLifecycleError(op, domain.ErrInvalidTransition, "un borrador se borra, no se anula")
	}
	now := l.now()
	if err := doc.Transition(entity.StatusCancelled, now); err != nil {
		return nil, domain.NewLifecycleError(op, err, "documento %s", doc.Number)
	}
	doc.Cancellation = &entity.Cancellation{Reason: reason, Actor: actor, At: now}
	if err := l.save(ctx, op, doc); err != nil {
		return nil, err
	}
	l.log.Info().Str("document_id", doc.ID).Str("number", doc.Number).Str("actor", actor).Msg("documento anulado")
	publishAsync(ctx, l.notifier, l.timeout, l.log, InvoiceEvent{
		Type:         EventInvoiceCancelled,
		DocumentID:   doc.ID,
		BookingID:    doc.BookingID,
		GroupID:      doc.GroupID,
		Number:       doc.Number,
		CustomerName: doc.Customer.Name,
		Total:        doc.Total,
		OccurredAt:   now,
	})
	return doc, nil
}

// DeleteDraft borra un borrador no bloqueado, libera su número y quita el enlace de la
// reserva, todo en una transacción.
func (l *LifecycleController) DeleteDraft(ctx context.Context, id string, version int) error {
	const op = "delete_draft"
	doc, err := l.load(ctx, id, version)
	if err != nil {
		return err
	}
	if doc.Status != entity.StatusDraft || doc.IsLocked {
		return domain.NewLifecycleError(op, domain.ErrDocumentLocked, "solo se borran borradores no bloqueados (documento %s en %s)", doc.Number, doc.Status)
	}
	err = l.txRunner.RunInvoicing(ctx, func(
		invoiceRepo repository.InvoiceRepository,
		bookingRepo repository.BookingRepository,
		sequenceRepo repository.SequenceRepository,
	) error {
		if err := invoiceRepo.Delete(ctx, doc.ID); err != nil {
			return err
		}
		if doc.SequenceNumber > 0 {
			if err := sequenceRepo.Release(ctx, doc.GroupID, doc.Year, doc.ID); err != nil {
				return fmt.Errorf("liberar número: %w", err)
			}
		}
		return bookingRepo.ClearInvoice(ctx, doc.BookingID, doc.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDocumentLocked) {
			return domain.NewLifecycleError(op, err, "documento %s", doc.Number)
		}
		return domain.NewPersistenceError(op, err, nil)
	}
	l.log.Info().Str("document_id", doc.ID).Str("number", doc.Number).Msg("borrador eliminado")
	return nil
}

// UpdateDraft reemplaza cliente, líneas o notas de un borrador y recalcula los totales.
func (l *LifecycleController) UpdateDraft(ctx context.Context, id string, version int, patch DraftPatch) (*entity.InvoiceDocument, error) {
	const op = "update_draft"
	doc, err := l.load(ctx, id, version)
	if err != nil {
		return nil, err
	}
	if doc.IsLocked {
		return nil, domain.NewLifecycleError(op, domain.ErrDocumentLocked, "documento %s", doc.Number)
	}

	content := entity.Content{
		Customer:  doc.Customer,
		Items:     doc.Items,
		Subtotal:  doc.Subtotal,
		TaxAmount: doc.TaxAmount,
		Total:     doc.Total,
		Notes:     doc.Notes,
	}
	if patch.Customer != nil {
		content.Customer = *patch.Customer
	}
	if patch.Notes != nil {
		content.Notes = *patch.Notes
	}
	withholding := doc.Withholding
	if len(patch.Items) > 0 {
		calc, err := fiscal.Compute(recomputeInput(doc, patch.Items))
		if err != nil {
			return nil, domain.NewValidationError(op, err, "cálculo fiscal")
		}
		content.Items = calc.Items
		content.Subtotal = calc.Subtotal
		content.TaxAmount = calc.TaxAmount
		content.Total = calc.Total
		withholding = calc.Withholding
	}
	if err := doc.ReplaceContent(content, l.now()); err != nil {
		return nil, domain.NewLifecycleError(op, err, "documento %s", doc.Number)
	}
	doc.Withholding = withholding

	if err := l.invoiceRepo.UpdateContent(ctx, doc); err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			return nil, err
		case errors.Is(err, domain.ErrDocumentLocked):
			return nil, domain.NewLifecycleError(op, err, "documento %s", doc.Number)
		}
		return nil, domain.NewPersistenceError(op, err, nil)
	}
	return doc, nil
}

func recomputeInput(doc *entity.InvoiceDocument, items []fiscal.Item) fiscal.Input {
	in := fiscal.Input{
		ActivityType:     doc.Issuer.ActivityType,
		Items:            items,
		PricesIncludeVAT: doc.PricesIncludeVAT,
		VATRate:          decimal.Zero,
	}
	if doc.TaxRate != nil {
		in.VATRate = *doc.TaxRate
	}
	if w := doc.Withholding; w != nil {
		in.Withholding = &fiscal.Withholding{Channel: w.Channel, Rate: w.Rate, Text: w.Text}
	}
	return in
}

// AddInternalNote agrega una nota interna. Se permite en cualquier estado.
func (l *LifecycleController) AddInternalNote(ctx context.Context, id, note string) (*entity.InvoiceDocument, error) {
	const op = "add_note"
	if strings.TrimSpace(note) == "" {
		return nil, domain.NewValidationError(op, domain.ErrInvalidInput, "nota vacía")
	}
	doc, err := l.load(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	doc.AppendInternalNote(note, l.now())
	if err := l.save(ctx, op, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// RenderArtifact vuelve a generar y guardar la representación del documento.
func (l *LifecycleController) RenderArtifact(ctx context.Context, id string) (*entity.InvoiceDocument, error) {
	const op = "render_artifact"
	if l.artifacts == nil {
		return nil, domain.NewArtifactError(op, errors.New("pipeline de representación no configurado"))
	}
	doc, err := l.load(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	loc, err := l.artifacts.RenderAndStore(ctx, doc)
	if err != nil {
		doc.AppendInternalNote("Generazione documento non riuscita: "+err.Error(), l.now())
		if saveErr := l.save(ctx, op, doc); saveErr != nil {
			l.log.Warn().Err(saveErr).Str("document_id", doc.ID).Msg("no se pudo guardar la nota de representación")
		}
		return nil, domain.NewArtifactError(op, err)
	}
	doc.ArtifactLocation = loc
	doc.UpdatedAt = l.now()
	if err := l.save(ctx, op, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
