// Package redis implementa la guardia de emisión compartida entre instancias.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/pkg/config"
)

var _ billing.BookingGuard = (*BookingGuard)(nil)

const defaultKeyPrefix = "invoice:issuing:"

// releaseScript borra la clave solo si sigue perteneciendo a quien la tomó.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type guardClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	goredis.Scripter
}

// BookingGuard candado por reserva con SET NX y TTL. Si el proceso cae,
// el candado expira solo.
type BookingGuard struct {
	client    guardClient
	keyPrefix string
	ttl       time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// NewClient abre la conexión y verifica con PING.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// NewBookingGuard construye la guardia. ttl acota lo que puede durar una emisión.
func NewBookingGuard(client *goredis.Client, ttl time.Duration) *BookingGuard {
	return newBookingGuard(client, ttl)
}

func newBookingGuard(client guardClient, ttl time.Duration) *BookingGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &BookingGuard{
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       ttl,
		tokens:    make(map[string]string),
	}
}

func (g *BookingGuard) Acquire(ctx context.Context, bookingID string) (bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.keyPrefix+bookingID, token, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: acquire %s: %w", bookingID, err)
	}
	if ok {
		g.mu.Lock()
		g.tokens[bookingID] = token
		g.mu.Unlock()
	}
	return ok, nil
}

func (g *BookingGuard) Release(ctx context.Context, bookingID string) error {
	g.mu.Lock()
	token, ok := g.tokens[bookingID]
	delete(g.tokens, bookingID)
	g.mu.Unlock()
	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, g.client, []string{g.keyPrefix + bookingID}, token).Err(); err != nil {
		return fmt.Errorf("redis: release %s: %w", bookingID, err)
	}
	return nil
}
