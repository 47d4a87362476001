package billing

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

// DefaultBatchConcurrency emisiones simultáneas por lote si no se indica otra cosa.
const DefaultBatchConcurrency = 4

// BatchOptions opciones del lote.
type BatchOptions struct {
	SkipExisting    bool
	LockImmediately bool
	Concurrency     int
}

// BatchResult resultado por reserva, en el mismo orden de la entrada.
type BatchResult struct {
	BookingID string
	Success   bool
	Skipped   bool
	Document  *entity.InvoiceDocument
	Err       error
}

// BatchOrchestrator emite documentos para varias reservas. Un fallo en una reserva no
// detiene las demás.
type BatchOrchestrator struct {
	compiler    *Compiler
	invoiceRepo repository.InvoiceRepository
	log         zerolog.Logger
	concurrency int
}

// NewBatchOrchestrator construye el orquestador.
func NewBatchOrchestrator(compiler *Compiler, invoiceRepo repository.InvoiceRepository, log zerolog.Logger) *BatchOrchestrator {
	return &BatchOrchestrator{compiler: compiler, invoiceRepo: invoiceRepo, log: log, concurrency: DefaultBatchConcurrency}
}

// WithConcurrency fija el límite por defecto cuando BatchOptions no trae uno.
func (o *BatchOrchestrator) WithConcurrency(n int) *BatchOrchestrator {
	if n > 0 {
		o.concurrency = n
	}
	return o
}

// CompileBatch devuelve exactamente un resultado por id de entrada.
func (o *BatchOrchestrator) CompileBatch(ctx context.Context, bookingIDs []string, opts BatchOptions) []BatchResult {
	results := make([]BatchResult, len(bookingIDs))
	limit := opts.Concurrency
	if limit <= 0 {
		limit = o.concurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, id := range bookingIDs {
		g.Go(func() error {
			results[i] = o.compileOne(ctx, id, opts)
			return nil
		})
	}
	_ = g.Wait()

	var ok, skipped, failed int
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Success:
			ok++
		default:
			failed++
		}
	}
	o.log.Info().Int("total", len(results)).Int("issued", ok).Int("skipped", skipped).Int("failed", failed).Msg("lote procesado")
	return results
}

func (o *BatchOrchestrator) compileOne(ctx context.Context, bookingID string, opts BatchOptions) BatchResult {
	res := BatchResult{BookingID: bookingID}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	if opts.SkipExisting {
		existing, err := o.invoiceRepo.GetByBookingID(ctx, bookingID)
		if err != nil {
			res.Err = domain.NewPersistenceError("batch", err, nil)
			return res
		}
		if existing != nil {
			res.Success, res.Skipped, res.Document = true, true, existing
			return res
		}
	}
	doc, err := o.compiler.IssueForBooking(ctx, bookingID, IssueOptions{LockImmediately: opts.LockImmediately})
	if err != nil {
		o.log.Warn().Err(err).Str("booking_id", bookingID).Msg("reserva del lote no emitida")
		res.Err = err
		return res
	}
	res.Success, res.Document = true, doc
	return res
}
