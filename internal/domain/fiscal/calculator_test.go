package fiscal_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/fiscal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertMoney(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msg)
}

// TestCompute_Business cubre IVA incluido y excluido sobre un único precio.
func TestCompute_Business(t *testing.T) {
	tests := []struct {
		name        string
		price       string
		inclusive   bool
		wantNet     string
		wantTax     string
		wantTotal   string
		wantUnitNet string
	}{
		{"incluido 122 al 22%", "122", true, "100.00", "22.00", "122.00", "100.00"},
		{"excluido 100 al 22%", "100", false, "100.00", "22.00", "122.00", "100.00"},
		{"incluido con decimales periódicos", "100", true, "81.97", "18.03", "100.00", "81.97"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := fiscal.Compute(fiscal.Input{
				ActivityType:     entity.ActivityBusiness,
				Price:            d(tt.price),
				Description:      "Soggiorno",
				VATRate:          d("22"),
				PricesIncludeVAT: tt.inclusive,
			})
			require.NoError(t, err)
			assertMoney(t, tt.wantNet, res.Subtotal, "subtotal")
			assertMoney(t, tt.wantTax, res.TaxAmount, "iva")
			assertMoney(t, tt.wantTotal, res.Total, "total")
			assert.True(t, res.Subtotal.Add(res.TaxAmount).Equal(res.Total), "subtotal + iva debe ser el total")

			require.Len(t, res.Items, 1)
			assertMoney(t, tt.wantUnitNet, res.Items[0].UnitPrice, "precio unitario neto")
			require.NotNil(t, res.TaxRate)
			assert.True(t, res.TaxRate.Equal(d("22")))
			assert.Nil(t, res.Withholding, "el régimen con IVA no lleva retención")
		})
	}
}

// TestCompute_TouristRental verifica que el régimen turístico nunca calcula IVA y que la
// retención es informativa.
func TestCompute_TouristRental(t *testing.T) {
	res, err := fiscal.Compute(fiscal.Input{
		ActivityType:     entity.ActivityTouristRental,
		Price:            d("122"),
		Description:      "Soggiorno",
		VATRate:          d("22"),
		PricesIncludeVAT: true,
		Withholding:      &fiscal.Withholding{Channel: "airbnb", Rate: d("21"), Text: "Cedolare secca"},
	})
	require.NoError(t, err)

	assertMoney(t, "122.00", res.Subtotal, "subtotal")
	assertMoney(t, "0.00", res.TaxAmount, "sin IVA")
	assertMoney(t, "122.00", res.Total, "el total no se reduce por la retención")
	assert.Nil(t, res.TaxRate)
	require.Len(t, res.Items, 1)
	assert.Nil(t, res.Items[0].TaxRate)
	assert.Nil(t, res.Items[0].TaxAmount)

	require.NotNil(t, res.Withholding)
	assertMoney(t, "25.62", res.Withholding.Amount, "21% de 122")
	assert.Equal(t, "airbnb", res.Withholding.Channel)
	assert.Equal(t, "Cedolare secca", res.Withholding.Text)
}

func TestCompute_TouristRental_SinRetencionConTasaCero(t *testing.T) {
	res, err := fiscal.Compute(fiscal.Input{
		ActivityType: entity.ActivityTouristRental,
		Price:        d("80"),
		Withholding:  &fiscal.Withholding{Channel: "direct", Rate: decimal.Zero},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Withholding)
}

// TestCompute_LineasManuales suma cada línea calculada individualmente.
func TestCompute_LineasManuales(t *testing.T) {
	res, err := fiscal.Compute(fiscal.Input{
		ActivityType:     entity.ActivityBusiness,
		VATRate:          d("22"),
		PricesIncludeVAT: true,
		Items: []fiscal.Item{
			{Description: "Notte", Quantity: d("2"), UnitPrice: d("61")},
			{Description: "Pulizie", Quantity: d("1"), UnitPrice: d("30.50")},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)

	assertMoney(t, "100.00", res.Items[0].Total, "neto línea 1")
	assertMoney(t, "50.00", res.Items[0].UnitPrice, "neto unitario línea 1")
	assertMoney(t, "22.00", *res.Items[0].TaxAmount, "iva línea 1")
	assertMoney(t, "25.00", res.Items[1].Total, "neto línea 2")
	assertMoney(t, "5.50", *res.Items[1].TaxAmount, "iva línea 2")

	assertMoney(t, "125.00", res.Subtotal, "subtotal")
	assertMoney(t, "27.50", res.TaxAmount, "iva")
	assertMoney(t, "152.50", res.Total, "total")
}

// TestCompute_RedondeoSoloAlFinal: tres líneas de 0,10 al 22% excluido suman 0,066 de IVA.
// Redondear por línea daría 0,06.
func TestCompute_RedondeoSoloAlFinal(t *testing.T) {
	items := make([]fiscal.Item, 3)
	for i := range items {
		items[i] = fiscal.Item{Description: "Extra", Quantity: d("1"), UnitPrice: d("0.10")}
	}
	res, err := fiscal.Compute(fiscal.Input{
		ActivityType: entity.ActivityBusiness,
		VATRate:      d("22"),
		Items:        items,
	})
	require.NoError(t, err)
	assertMoney(t, "0.30", res.Subtotal, "subtotal")
	assertMoney(t, "0.07", res.TaxAmount, "iva agregado")
	assertMoney(t, "0.37", res.Total, "total")
}

func TestCompute_ImporteNegativo(t *testing.T) {
	tests := []struct {
		name string
		item fiscal.Item
	}{
		{"cantidad negativa", fiscal.Item{Description: "x", Quantity: d("-1"), UnitPrice: d("10")}},
		{"precio negativo", fiscal.Item{Description: "x", Quantity: d("1"), UnitPrice: d("-10")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := fiscal.Compute(fiscal.Input{
				ActivityType: entity.ActivityTouristRental,
				Items:        []fiscal.Item{tt.item},
			})
			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrNegativeAmount)
		})
	}
}

func TestCompute_RegimenDesconocido(t *testing.T) {
	_, err := fiscal.Compute(fiscal.Input{ActivityType: "forfettario", Price: d("10")})
	assert.Error(t, err)
}
