package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

func TestCompileBatch_AislaFallos(t *testing.T) {
	f := newFixture(t, entity.ActivityTouristRental)
	f.addBooking(t, "b1", "100")
	f.addBooking(t, "b2", "100", func(b *entity.Booking) { b.InvoiceSettings.PriceConfirmed = false })
	f.addBooking(t, "b3", "100")

	results := f.batch.CompileBatch(context.Background(), []string{"b1", "b2", "b3"}, BatchOptions{Concurrency: 2})
	require.Len(t, results, 3)

	assert.Equal(t, "b1", results[0].BookingID)
	assert.True(t, results[0].Success)
	require.NotNil(t, results[0].Document)

	assert.Equal(t, "b2", results[1].BookingID)
	assert.False(t, results[1].Success)
	assert.ErrorIs(t, results[1].Err, domain.ErrPriceNotConfirmed)
	assert.Nil(t, results[1].Document)

	assert.Equal(t, "b3", results[2].BookingID)
	assert.True(t, results[2].Success)

	for _, id := range []string{"b1", "b3"} {
		doc, err := f.invoices.GetByBookingID(context.Background(), id)
		require.NoError(t, err)
		assert.NotNil(t, doc, "debe existir documento para %s", id)
	}
	assert.Len(t, f.counter(t).Used, 2)
}

func TestCompileBatch_OmiteExistentes(t *testing.T) {
	f := newFixture(t, entity.ActivityTouristRental)
	f.addBooking(t, "b1", "100")
	f.addBooking(t, "b2", "100")
	first := f.issue(t, "b1", IssueOptions{})

	results := f.batch.CompileBatch(context.Background(), []string{"b1", "b2", "missing"}, BatchOptions{SkipExisting: true, LockImmediately: true})
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.True(t, results[0].Skipped)
	assert.Equal(t, first.ID, results[0].Document.ID)

	assert.True(t, results[1].Success)
	assert.False(t, results[1].Skipped)
	assert.True(t, results[1].Document.IsLocked)

	assert.False(t, results[2].Success)
	assert.ErrorIs(t, results[2].Err, domain.ErrNotFound)
}

func TestCompileBatch_SinOmitirReportaYaEmitida(t *testing.T) {
	f := newFixture(t, entity.ActivityTouristRental)
	f.addBooking(t, "b1", "100")
	f.issue(t, "b1", IssueOptions{})

	results := f.batch.CompileBatch(context.Background(), []string{"b1"}, BatchOptions{})
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, results[0].Err, domain.ErrAlreadyIssued)
}
