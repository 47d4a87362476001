package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

const seedJSON = `{
  "settings": [{
    "ID": "G1", "BusinessName": "Rossi Affitti", "ActivityType": "business",
    "VATRate": "22", "PricesIncludeVAT": true, "ApartmentIDs": ["A1"],
    "ChannelRules": {"airbnb": {"EmitDocument": true, "ApplyWithholding": true, "WithholdingRate": "21"}}
  }],
  "apartments": [{"ID": "A1", "Name": "Casa Sole"}],
  "bookings": [{
    "ID": "b1", "ApartmentID": "A1", "Channel": "airbnb", "Price": "350.00",
    "Guest": {"Name": "Mario Bianchi"},
    "CheckIn": "2024-03-01T00:00:00Z", "CheckOut": "2024-03-04T00:00:00Z",
    "InvoiceSettings": {"PriceConfirmed": true}
  }]
}`

func TestLoadSeed(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seed, err := LoadSeed(ctx, s, strings.NewReader(seedJSON))
	require.NoError(t, err)
	assert.Len(t, seed.Bookings, 1)

	st, err := NewSettingsRepository(s).GetByApartmentID(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, entity.ActivityBusiness, st.ActivityType)
	assert.Equal(t, "21", st.ChannelRules["airbnb"].WithholdingRate.String())

	b, err := NewBookingRepository(s).GetByID(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "350", b.Price.String())
	assert.Equal(t, 3, b.Nights())
}

func TestLoadSeed_Errores(t *testing.T) {
	ctx := context.Background()
	_, err := LoadSeed(ctx, NewStore(), strings.NewReader(`{"bookings": [{"Price": "10"}]}`))
	assert.ErrorContains(t, err, "sin ID")

	_, err = LoadSeed(ctx, NewStore(), strings.NewReader(`{"invoices": []}`))
	assert.ErrorContains(t, err, "decodificar seed")

	_, err = LoadSeedFile(ctx, NewStore(), "/no/existe.json")
	assert.Error(t, err)
}

func TestLoadSeedFile_Ejemplo(t *testing.T) {
	seed, err := LoadSeedFile(context.Background(), NewStore(), "../../../docs/seed.example.json")
	require.NoError(t, err)
	assert.Len(t, seed.Settings, 2)
	assert.Len(t, seed.Bookings, 3)
}
