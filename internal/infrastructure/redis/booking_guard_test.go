package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient emula SET NX y el script de liberación sobre un mapa.
type fakeClient struct {
	goredis.Scripter
	mu   sync.Mutex
	keys map[string]string
	ttls map[string]time.Duration
	err  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{keys: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) SetNX(_ context.Context, key string, value interface{}, ttl time.Duration) *goredis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return goredis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return goredis.NewBoolResult(false, nil)
	}
	f.keys[key] = value.(string)
	f.ttls[key] = ttl
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeClient) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *goredis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys[keys[0]] == args[0] {
		delete(f.keys, keys[0])
		return goredis.NewCmdResult(int64(1), nil)
	}
	return goredis.NewCmdResult(int64(0), nil)
}

func TestBookingGuard_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	g := newBookingGuard(fc, time.Minute)

	ok, err := g.Acquire(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, time.Minute, fc.ttls["invoice:issuing:b1"])

	ok, err = g.Acquire(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, ok, "segunda emisión concurrente")

	require.NoError(t, g.Release(ctx, "b1"))
	assert.Empty(t, fc.keys)

	ok, err = g.Acquire(ctx, "b1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBookingGuard_ReleaseSinCandado(t *testing.T) {
	fc := newFakeClient()
	fc.keys["invoice:issuing:b2"] = "otro-proceso"
	g := newBookingGuard(fc, 0)

	require.NoError(t, g.Release(context.Background(), "b2"))
	assert.Equal(t, "otro-proceso", fc.keys["invoice:issuing:b2"], "no se libera un candado ajeno")
	assert.Equal(t, 2*time.Minute, g.ttl)
}

func TestBookingGuard_ErrorDeRedis(t *testing.T) {
	fc := newFakeClient()
	fc.err = errors.New("connection refused")
	g := newBookingGuard(fc, time.Minute)

	ok, err := g.Acquire(context.Background(), "b1")
	assert.False(t, ok)
	assert.ErrorContains(t, err, "connection refused")
}
