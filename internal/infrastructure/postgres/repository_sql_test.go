package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func sampleDocument() *entity.InvoiceDocument {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	return &entity.InvoiceDocument{
		ID:           "d1",
		GroupID:      "G1",
		BookingID:    "b1",
		Number:       "2024/001",
		Year:         2024,
		IssueDate:    now,
		DocumentType: entity.DocumentTypeReceipt,
		Status:       entity.StatusIssued,
		IsLocked:     true,
		Version:      2,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ── Contador ──────────────────────────────────────────────────────────────────

func TestSequenceRepo_ReserveIncrementaEnUpsert(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT number FROM invoice_counter_entries`).
		WithArgs("G1", 2024, "d1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`(?s)INSERT INTO invoice_counters.*ON CONFLICT \(group_id, year\).*last_number = invoice_counters\.last_number \+ 1.*RETURNING last_number`).
		WithArgs("G1", 2024).
		WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(int64(4)))
	mock.ExpectExec(`INSERT INTO invoice_counter_entries`).
		WithArgs("G1", 2024, "d1", int64(4)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := NewSequenceRepository(mock).Reserve(context.Background(), "G1", 2024, "d1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestSequenceRepo_ReserveRepetidaDevuelveElMismoNumero(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT number FROM invoice_counter_entries`).
		WithArgs("G1", 2024, "d1").
		WillReturnRows(pgxmock.NewRows([]string{"number"}).AddRow(int64(7)))
	mock.ExpectCommit()

	n, err := NewSequenceRepository(mock).Reserve(context.Background(), "G1", 2024, "d1")
	require.NoError(t, err)
	assert.EqualValues(t, 7, n, "sin upsert: el contador no avanza")
}

func TestSequenceRepo_ReserveNumeroYaAsignadoRevierte(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT number FROM invoice_counter_entries`).
		WithArgs("G1", 2024, "d2").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO invoice_counters`).
		WithArgs("G1", 2024).
		WillReturnRows(pgxmock.NewRows([]string{"last_number"}).AddRow(int64(3)))
	mock.ExpectExec(`INSERT INTO invoice_counter_entries`).
		WithArgs("G1", 2024, "d2", int64(3)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "invoice_counter_entries_group_id_year_number_key"})
	mock.ExpectRollback()

	_, err := NewSequenceRepository(mock).Reserve(context.Background(), "G1", 2024, "d2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ya asignado")
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
}

func TestSequenceRepo_ReserveErrorDeLecturaRevierte(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT number FROM invoice_counter_entries`).
		WithArgs("G1", 2024, "d1").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := NewSequenceRepository(mock).Reserve(context.Background(), "G1", 2024, "d1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select counter entry")
}

func TestSequenceRepo_ReleaseRetrocedeSoloElUltimo(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`(?s)DELETE FROM invoice_counter_entries.*RETURNING number.*UPDATE invoice_counters c.*last_number = c\.last_number - 1.*c\.last_number = released\.number`).
		WithArgs("G1", 2024, "d1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewSequenceRepository(mock).Release(context.Background(), "G1", 2024, "d1"))
}

func TestSequenceRepo_ReleaseSinReservaNoFalla(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM invoice_counter_entries`).
		WithArgs("G1", 2024, "nunca-reservado").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, NewSequenceRepository(mock).Release(context.Background(), "G1", 2024, "nunca-reservado"))
}

func TestSequenceRepo_GetSinContador(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`SELECT last_number, updated_at FROM invoice_counters`).
		WithArgs("G1", 1999).
		WillReturnError(pgx.ErrNoRows)

	c, err := NewSequenceRepository(mock).Get(context.Background(), "G1", 1999)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSequenceRepo_GetConEntradas(t *testing.T) {
	mock := newMockPool(t)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT last_number, updated_at FROM invoice_counters`).
		WithArgs("G1", 2024).
		WillReturnRows(pgxmock.NewRows([]string{"last_number", "updated_at"}).AddRow(int64(3), now))
	mock.ExpectQuery(`SELECT document_id, number FROM invoice_counter_entries`).
		WithArgs("G1", 2024).
		WillReturnRows(pgxmock.NewRows([]string{"document_id", "number"}).
			AddRow("d1", int64(1)).
			AddRow("d3", int64(3)))

	c, err := NewSequenceRepository(mock).Get(context.Background(), "G1", 2024)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.EqualValues(t, 3, c.LastNumber)
	require.Len(t, c.Used, 2)
	assert.Equal(t, "d3", c.Used[1].DocumentID)
}

// ── Documentos ────────────────────────────────────────────────────────────────

func TestInvoiceRepo_UpdateVersionObsoletaSobreBloqueadoEsConflicto(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`UPDATE invoices`).
		WithArgs(anyArgs(16)...).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM invoices WHERE id = \$1\)`).
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := NewInvoiceRepository(mock).Update(context.Background(), sampleDocument())
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.NotErrorIs(t, err, domain.ErrDocumentLocked)
}

func TestInvoiceRepo_UpdateInexistente(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`UPDATE invoices`).
		WithArgs(anyArgs(16)...).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := NewInvoiceRepository(mock).Update(context.Background(), sampleDocument())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInvoiceRepo_UpdateIncrementaVersion(t *testing.T) {
	mock := newMockPool(t)
	doc := sampleDocument()
	mock.ExpectQuery(`(?s)UPDATE invoices.*version = version \+ 1.*WHERE id = \$1 AND version = \$2`).
		WithArgs(append([]any{"d1", 2}, anyArgs(14)...)...).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(3))

	require.NoError(t, NewInvoiceRepository(mock).Update(context.Background(), doc))
	assert.Equal(t, 3, doc.Version)
}

func TestInvoiceRepo_UpdateContentSobreBloqueado(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`(?s)UPDATE invoices.*AND is_locked = false`).
		WithArgs(anyArgs(10)...).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT is_locked FROM invoices`).
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"is_locked"}).AddRow(true))

	err := NewInvoiceRepository(mock).UpdateContent(context.Background(), sampleDocument())
	assert.ErrorIs(t, err, domain.ErrDocumentLocked)
}

func TestInvoiceRepo_UpdateContentVersionObsoleta(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`UPDATE invoices`).
		WithArgs(anyArgs(10)...).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT is_locked FROM invoices`).
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"is_locked"}).AddRow(false))

	err := NewInvoiceRepository(mock).UpdateContent(context.Background(), sampleDocument())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestInvoiceRepo_CreateDuplicadoPorReserva(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`INSERT INTO invoices`).
		WithArgs(anyArgs(32)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "invoices_booking_id_key"})

	err := NewInvoiceRepository(mock).Create(context.Background(), sampleDocument())
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestInvoiceRepo_DeleteBloqueado(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`DELETE FROM invoices WHERE id = \$1 AND status = 'draft' AND is_locked = false`).
		WithArgs("d1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("d1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := NewInvoiceRepository(mock).Delete(context.Background(), "d1")
	assert.ErrorIs(t, err, domain.ErrDocumentLocked)
}

// ── Reservas ──────────────────────────────────────────────────────────────────

func TestBookingRepo_MarkInvoiceEmittedInexistente(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`UPDATE bookings`).
		WithArgs("b404", "d1", "2024/001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewBookingRepository(mock).MarkInvoiceEmitted(context.Background(), "b404", "d1", "2024/001")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingRepo_ClearInvoiceSoloDelMismoDocumento(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectExec(`WHERE id = \$1 AND invoice_document_id = \$2`).
		WithArgs("b1", "d1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewBookingRepository(mock).ClearInvoice(context.Background(), "b1", "d1"))
}
