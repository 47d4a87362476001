// Package memory implementa los repositorios en memoria. Se usa en desarrollo (sin
// DATABASE_URL) y en los tests de los casos de uso.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

type counterKey struct {
	groupID string
	year    int
}

// Store estado compartido por todos los repositorios en memoria. Los valores se guardan
// por copia: ningún llamador recibe un puntero al estado interno.
type Store struct {
	mu         sync.RWMutex
	invoices   map[string]entity.InvoiceDocument
	bookings   map[string]entity.Booking
	apartments map[string]entity.Apartment
	settings   map[string]entity.IssuerSettings
	counters   map[counterKey]entity.SequenceCounter
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		invoices:   make(map[string]entity.InvoiceDocument),
		bookings:   make(map[string]entity.Booking),
		apartments: make(map[string]entity.Apartment),
		settings:   make(map[string]entity.IssuerSettings),
		counters:   make(map[counterKey]entity.SequenceCounter),
	}
}

type snapshot struct {
	invoices map[string]entity.InvoiceDocument
	bookings map[string]entity.Booking
	counters map[counterKey]entity.SequenceCounter
}

// snapshot copia las tablas que una transacción puede modificar. Requiere s.mu tomado.
func (s *Store) snapshot() snapshot {
	return snapshot{
		invoices: cloneMap(s.invoices),
		bookings: cloneMap(s.bookings),
		counters: cloneMap(s.counters),
	}
}

func (s *Store) restore(snap snapshot) {
	s.invoices = snap.invoices
	s.bookings = snap.bookings
	s.counters = snap.counters
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// scope decide si un repositorio toma el candado del Store o si ya corre dentro de
// una transacción que lo tiene tomado.
type scope struct {
	s    *Store
	inTx bool
}

func (sc scope) read(ctx context.Context, fn func()) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if !sc.inTx {
		sc.s.mu.RLock()
		defer sc.s.mu.RUnlock()
	}
	fn()
	return nil
}

func (sc scope) write(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if !sc.inTx {
		sc.s.mu.Lock()
		defer sc.s.mu.Unlock()
	}
	return fn()
}

func cloneDocument(d entity.InvoiceDocument) *entity.InvoiceDocument {
	d.Items = slices.Clone(d.Items)
	return &d
}
