package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

var _ billing.InvoicingTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInvoicing inicia una transacción con los repos de documentos, reservas y contadores
// y hace Commit o Rollback según el resultado de fn.
func (r *TxRunner) RunInvoicing(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	bookingRepo repository.BookingRepository,
	sequenceRepo repository.SequenceRepository,
) error) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(NewInvoiceRepository(tx), NewBookingRepository(tx), NewSequenceRepository(tx))
	})
}
