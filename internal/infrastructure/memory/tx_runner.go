package memory

import (
	"context"

	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

// TxRunner transacciones en memoria: toma el candado del Store durante toda la función y
// restaura la copia previa si la función falla.
type TxRunner struct {
	s *Store
}

func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// RunInvoicing implementa billing.InvoicingTxRunner.
func (t *TxRunner) RunInvoicing(ctx context.Context, fn func(
	invoiceRepo repository.InvoiceRepository,
	bookingRepo repository.BookingRepository,
	sequenceRepo repository.SequenceRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	snap := t.s.snapshot()
	sc := scope{s: t.s, inTx: true}
	err := fn(&InvoiceRepository{sc}, &BookingRepository{sc}, &SequenceRepository{sc})
	if err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}
