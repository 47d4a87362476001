package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

func TestSequenceService_PrimeraReservaDelGrupo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, entity.ActivityTouristRental)
	seq := f.compiler.sequence

	r, err := seq.Reserve(ctx, "G1", 2024, "doc-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, r.Number)
	assert.Equal(t, "2024/001", r.Formatted)

	require.NoError(t, seq.Release(ctx, r))
	c, err := seq.Counter(ctx, "G1", 2024)
	require.NoError(t, err)
	assert.EqualValues(t, 0, c.LastNumber)
	assert.Empty(t, c.Used)
}

func TestSequenceService_GrupoSinConfiguracionUsaFormatoPorDefecto(t *testing.T) {
	f := newFixture(t, entity.ActivityTouristRental)
	r, err := f.compiler.sequence.Reserve(context.Background(), "G-nuevo", 2025, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "2025/001", r.Formatted)
}

func TestArtifactKey(t *testing.T) {
	doc := &entity.InvoiceDocument{GroupID: "G1", Year: 2024, Number: "FT-2024/007"}
	assert.Equal(t, "invoices/G1/2024/FT-2024-007.pdf", ArtifactKey(doc))
}
