package memory

import (
	"context"
	"sync"
)

// BookingGuard candado por reserva dentro del proceso.
type BookingGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewBookingGuard() *BookingGuard {
	return &BookingGuard{held: make(map[string]struct{})}
}

func (g *BookingGuard) Acquire(_ context.Context, bookingID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[bookingID]; ok {
		return false, nil
	}
	g.held[bookingID] = struct{}{}
	return true, nil
}

func (g *BookingGuard) Release(_ context.Context, bookingID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, bookingID)
	return nil
}
