// Package events publica los eventos de documento (new_invoice, invoice_cancelled).
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	skafka "github.com/segmentio/kafka-go"

	"github.com/jhoicas/rentals-api/internal/application/billing"
)

var _ billing.Notifier = (*KafkaNotifier)(nil)

// Writer subconjunto de kafka.Writer; permite inyectar un writer de prueba.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// KafkaNotifier publica cada evento como JSON con la reserva como clave,
// así los eventos de un mismo documento llegan ordenados a la misma partición.
type KafkaNotifier struct {
	writer Writer
	log    zerolog.Logger
}

// NewKafkaNotifier crea el writer para los brokers y el topic indicados.
func NewKafkaNotifier(brokers []string, topic string, log zerolog.Logger) *KafkaNotifier {
	w := &skafka.Writer{
		Addr:         skafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		RequiredAcks: skafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return NewKafkaNotifierWithWriter(w, log)
}

// NewKafkaNotifierWithWriter inyecta el writer.
func NewKafkaNotifierWithWriter(w Writer, log zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{writer: w, log: log}
}

func (n *KafkaNotifier) Publish(ctx context.Context, ev billing.InvoiceEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: serializar evento: %w", err)
	}
	msg := skafka.Message{
		Key:   []byte(ev.BookingID),
		Value: b,
		Headers: []skafka.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publicar %s: %w", ev.Type, err)
	}
	n.log.Debug().Str("event", ev.Type).Str("document_id", ev.DocumentID).Msg("evento publicado")
	return nil
}

// Close cierra el writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
