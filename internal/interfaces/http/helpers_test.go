package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rentals-api/internal/application/billing"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/infrastructure/events"
	"github.com/jhoicas/rentals-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/rentals-api/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/rentals-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/rentals-api/pkg/jwt"
)

const (
	testJWTSecret = "test-secret-key-for-unit-tests"
	testUserID    = "op-0001"
	testIssuer    = "rentals-api-test"
)

type stubArtifacts struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (s *stubArtifacts) RenderAndStore(_ context.Context, doc *entity.InvoiceDocument) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "s3://docs/" + billing.ArtifactKey(doc), nil
}

type testEnv struct {
	app       *fiber.App
	bookings  *memory.BookingRepository
	artifacts *stubArtifacts
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	invoices := memory.NewInvoiceRepository(store)
	bookings := memory.NewBookingRepository(store)
	apartments := memory.NewApartmentRepository(store)
	settings := memory.NewSettingsRepository(store)
	sequences := memory.NewSequenceRepository(store)

	require.NoError(t, apartments.Put(ctx, &entity.Apartment{ID: "A1", Name: "Casa Sole"}))
	require.NoError(t, settings.Put(ctx, &entity.IssuerSettings{
		ID:               "G1",
		BusinessName:     "Rossi Affitti",
		ActivityType:     entity.ActivityBusiness,
		VATRate:          decimal.NewFromInt(22),
		PricesIncludeVAT: true,
		ApartmentIDs:     []string{"A1"},
	}))

	log := zerolog.Nop()
	artifacts := &stubArtifacts{}
	notifier := events.LogNotifier{Log: log}
	tx := memory.NewTxRunner(store)
	seq := billing.NewSequenceService(sequences, settings, log)
	compiler := billing.NewCompiler(tx, invoices, bookings, apartments, settings, seq,
		artifacts, notifier, memory.NewBookingGuard(), log, billing.CompilerConfig{Location: time.UTC})
	lifecycle := billing.NewLifecycleController(tx, invoices, artifacts, notifier, log)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Compiler:  compiler,
		Batch:     billing.NewBatchOrchestrator(compiler, invoices, log),
		Lifecycle: lifecycle,
		Sequence:  seq,
		PDF:       billing.NewPDFUseCase(invoices, infrapdf.NewMarotoPDFGenerator()),
		JWTSecret: testJWTSecret,
	})
	return &testEnv{app: app, bookings: bookings, artifacts: artifacts}
}

func (e *testEnv) addBooking(t *testing.T, id, price string) {
	t.Helper()
	require.NoError(t, e.bookings.Put(context.Background(), &entity.Booking{
		ID:              id,
		ApartmentID:     "A1",
		Channel:         "direct",
		Price:           decimal.RequireFromString(price),
		Guest:           entity.GuestIdentity{Name: "Mario Bianchi"},
		CheckIn:         time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:        time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		NumberOfGuests:  2,
		InvoiceSettings: entity.BookingInvoiceSettings{PriceConfirmed: true},
	}))
}

func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, role, testIssuer, 60)
	require.NoError(t, err)
	return "Bearer " + tok
}

// do lanza la petición con el rol indicado ("" = sin Authorization) y devuelve status y cuerpo.
func (e *testEnv) do(t *testing.T, method, path, role string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m), string(body))
	return m
}


// assertAmount compara un importe JSON (string decimal) con dos decimales fijos.
func assertAmount(t *testing.T, want string, got any) {
	t.Helper()
	str, ok := got.(string)
	require.True(t, ok, "importe %v no es string", got)
	d, err := decimal.NewFromString(str)
	require.NoError(t, err)
	assert.Equal(t, want, d.StringFixed(2))
}
