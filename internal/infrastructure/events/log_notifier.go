package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/rentals-api/internal/application/billing"
)

var _ billing.Notifier = LogNotifier{}

// LogNotifier registra los eventos en el log cuando no hay broker configurado.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Publish(_ context.Context, ev billing.InvoiceEvent) error {
	n.Log.Info().
		Str("event", ev.Type).
		Str("document_id", ev.DocumentID).
		Str("booking_id", ev.BookingID).
		Str("number", ev.Number).
		Str("total", ev.Total.StringFixed(2)).
		Msg("evento de documento")
	return nil
}
