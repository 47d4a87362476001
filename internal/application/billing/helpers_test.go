package billing

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
	"github.com/jhoicas/rentals-api/internal/infrastructure/memory"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store      *memory.Store
	invoices   *memory.InvoiceRepository
	bookings   *memory.BookingRepository
	apartments *memory.ApartmentRepository
	settings   *memory.SettingsRepository
	sequences  repository.SequenceRepository
	tx         InvoicingTxRunner
	artifacts  *stubArtifacts
	notifier   *recordingNotifier
	logBuf     *syncBuffer

	compiler  *Compiler
	lifecycle *LifecycleController
	batch     *BatchOrchestrator
}

type fixtureOption func(*fixture)

func withTx(wrap func(InvoicingTxRunner) InvoicingTxRunner) fixtureOption {
	return func(f *fixture) { f.tx = wrap(f.tx) }
}

func withSequences(wrap func(repository.SequenceRepository) repository.SequenceRepository) fixtureOption {
	return func(f *fixture) { f.sequences = wrap(f.sequences) }
}

func newFixture(t *testing.T, activity entity.ActivityType, opts ...fixtureOption) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{
		store:      store,
		invoices:   memory.NewInvoiceRepository(store),
		bookings:   memory.NewBookingRepository(store),
		apartments: memory.NewApartmentRepository(store),
		settings:   memory.NewSettingsRepository(store),
		sequences:  memory.NewSequenceRepository(store),
		tx:         memory.NewTxRunner(store),
		artifacts:  &stubArtifacts{location: "s3://docs/invoices/x.pdf"},
		notifier:   &recordingNotifier{events: make(chan InvoiceEvent, 64)},
		logBuf:     &syncBuffer{},
	}
	for _, opt := range opts {
		opt(f)
	}

	require.NoError(t, f.apartments.Put(ctx, &entity.Apartment{ID: "A1", Name: "Casa Sole", Address: "Via Roma 1, Firenze"}))
	require.NoError(t, f.apartments.Put(ctx, &entity.Apartment{ID: "A9", Name: "Senza gruppo"}))
	require.NoError(t, f.settings.Put(ctx, &entity.IssuerSettings{
		ID:               "G1",
		BusinessName:     "Rossi Affitti",
		VATNumber:        "IT01234567890",
		ActivityType:     activity,
		VATRate:          decimal.NewFromInt(22),
		PricesIncludeVAT: true,
		ApartmentIDs:     []string{"A1"},
		ChannelRules: map[string]entity.ChannelRule{
			"airbnb": {EmitDocument: true, ApplyWithholding: true, WithholdingRate: decimal.NewFromInt(21), DisclosureText: "Cedolare secca trattenuta dal portale"},
			"owner":  {EmitDocument: false},
		},
	}))

	log := zerolog.New(f.logBuf)
	seq := NewSequenceService(f.sequences, f.settings, log)
	f.compiler = NewCompiler(f.tx, f.invoices, f.bookings, f.apartments, f.settings, seq,
		f.artifacts, f.notifier, memory.NewBookingGuard(), log, CompilerConfig{Location: time.UTC})
	f.compiler.now = func() time.Time { return testNow }
	f.lifecycle = NewLifecycleController(f.tx, f.invoices, f.artifacts, f.notifier, log)
	f.lifecycle.now = func() time.Time { return testNow }
	f.batch = NewBatchOrchestrator(f.compiler, f.invoices, log)
	return f
}

func (f *fixture) addBooking(t *testing.T, id, price string, mutate ...func(*entity.Booking)) *entity.Booking {
	t.Helper()
	b := &entity.Booking{
		ID:             id,
		ApartmentID:    "A1",
		Channel:        "direct",
		Price:          decimal.RequireFromString(price),
		Guest:          entity.GuestIdentity{Name: "Mario Bianchi", Email: "mario@example.com"},
		CheckIn:        time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:       time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		NumberOfGuests: 2,
		InvoiceSettings: entity.BookingInvoiceSettings{
			PriceConfirmed: true,
		},
	}
	for _, m := range mutate {
		m(b)
	}
	require.NoError(t, f.bookings.Put(context.Background(), b))
	return b
}

func (f *fixture) issue(t *testing.T, bookingID string, opts IssueOptions) *entity.InvoiceDocument {
	t.Helper()
	doc, err := f.compiler.IssueForBooking(context.Background(), bookingID, opts)
	require.NoError(t, err)
	return doc
}

func (f *fixture) counter(t *testing.T) *entity.SequenceCounter {
	t.Helper()
	c, err := f.sequences.Get(context.Background(), "G1", 2024)
	require.NoError(t, err)
	return c
}

// ── Dobles ──────────────────────────────────────────────────────────────────

type stubArtifacts struct {
	mu       sync.Mutex
	location string
	err      error
	calls    int
}

func (s *stubArtifacts) RenderAndStore(_ context.Context, _ *entity.InvoiceDocument) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.location, nil
}

type recordingNotifier struct {
	events chan InvoiceEvent
	err    error
}

func (n *recordingNotifier) Publish(_ context.Context, ev InvoiceEvent) error {
	n.events <- ev
	return n.err
}

func (n *recordingNotifier) next(t *testing.T) InvoiceEvent {
	t.Helper()
	select {
	case ev := <-n.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no se publicó ningún evento")
		return InvoiceEvent{}
	}
}

// failingTx envuelve el TxRunner y hace fallar la finalización del documento.
type failingTx struct {
	inner InvoicingTxRunner
	err   error
}

func (f failingTx) RunInvoicing(ctx context.Context, fn func(repository.InvoiceRepository, repository.BookingRepository, repository.SequenceRepository) error) error {
	return f.inner.RunInvoicing(ctx, func(inv repository.InvoiceRepository, book repository.BookingRepository, seq repository.SequenceRepository) error {
		return fn(failingUpdateRepo{InvoiceRepository: inv, err: f.err}, book, seq)
	})
}

type failingUpdateRepo struct {
	repository.InvoiceRepository
	err error
}

func (r failingUpdateRepo) Update(context.Context, *entity.InvoiceDocument) error { return r.err }

// cancellingTx simula el timeout del llamador justo antes de finalizar.
type cancellingTx struct {
	inner  InvoicingTxRunner
	cancel context.CancelFunc
}

func (c cancellingTx) RunInvoicing(ctx context.Context, fn func(repository.InvoiceRepository, repository.BookingRepository, repository.SequenceRepository) error) error {
	c.cancel()
	return c.inner.RunInvoicing(ctx, fn)
}

type failingReleaseRepo struct {
	repository.SequenceRepository
	err error
}

func (r failingReleaseRepo) Release(context.Context, string, int, string) error { return r.err }

type failingReserveRepo struct {
	repository.SequenceRepository
}

func (failingReserveRepo) Reserve(context.Context, string, int, string) (int64, error) {
	return 0, errors.New("connection refused")
}

// ambiguousReserveRepo confirma la reserva pero informa error, como un commit cuya
// respuesta se pierde.
type ambiguousReserveRepo struct {
	repository.SequenceRepository
}

func (r ambiguousReserveRepo) Reserve(ctx context.Context, groupID string, year int, documentID string) (int64, error) {
	if _, err := r.SequenceRepository.Reserve(ctx, groupID, year, documentID); err != nil {
		return 0, err
	}
	return 0, errors.New("commit: connection reset by peer")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
