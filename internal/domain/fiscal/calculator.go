// Package fiscal calcula líneas y totales de un documento según el régimen del emisor.
// Es un servicio de dominio puro: sin E/S y sin estado.
package fiscal

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// MoneyPlaces dígitos decimales de los importes de salida.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Item línea manual provista por el llamador.
type Item struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Withholding datos de retención del canal (solo régimen tourist_rental).
type Withholding struct {
	Channel string
	Rate    decimal.Decimal
	Text    string
}

// Input parámetros del cálculo. Si Items no está vacío se ignora Price.
type Input struct {
	ActivityType     entity.ActivityType
	Price            decimal.Decimal
	Description      string
	Items            []Item
	VATRate          decimal.Decimal
	PricesIncludeVAT bool
	Withholding      *Withholding
}

// Result líneas y agregados redondeados. Subtotal + TaxAmount == Total siempre.
type Result struct {
	Items       []entity.LineItem
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	Total       decimal.Decimal
	TaxRate     *decimal.Decimal
	Withholding *entity.WithholdingInfo
}

// Compute aplica las reglas del régimen. Los agregados se suman sin redondear y se
// redondean una sola vez al final.
func Compute(in Input) (*Result, error) {
	if !in.ActivityType.Valid() {
		return nil, fmt.Errorf("régimen fiscal desconocido %q", in.ActivityType)
	}
	items := in.Items
	if len(items) == 0 {
		items = []Item{{Description: in.Description, Quantity: decimal.NewFromInt(1), UnitPrice: in.Price}}
	}

	business := in.ActivityType == entity.ActivityBusiness
	if business && in.VATRate.IsNegative() {
		return nil, fmt.Errorf("alícuota IVA %s: %w", in.VATRate, domain.ErrNegativeAmount)
	}
	divisor := decimal.NewFromInt(1).Add(in.VATRate.Div(hundred))

	res := &Result{Items: make([]entity.LineItem, 0, len(items))}
	subtotal, tax := decimal.Zero, decimal.Zero
	for i, it := range items {
		if it.Quantity.IsNegative() || it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("línea %d (%q): %w", i+1, it.Description, domain.ErrNegativeAmount)
		}
		gross := it.Quantity.Mul(it.UnitPrice)

		line := entity.LineItem{Description: it.Description, Quantity: it.Quantity}
		if !business {
			line.UnitPrice = it.UnitPrice.Round(MoneyPlaces)
			line.Total = gross.Round(MoneyPlaces)
			subtotal = subtotal.Add(gross)
			res.Items = append(res.Items, line)
			continue
		}

		net, unitNet := gross, it.UnitPrice
		var lineTax decimal.Decimal
		if in.PricesIncludeVAT {
			net = gross.Div(divisor)
			unitNet = it.UnitPrice.Div(divisor)
			lineTax = gross.Sub(net)
		} else {
			lineTax = net.Mul(in.VATRate).Div(hundred)
		}
		rate := in.VATRate
		lineTaxOut := net.Add(lineTax).Round(MoneyPlaces).Sub(net.Round(MoneyPlaces))
		line.UnitPrice = unitNet.Round(MoneyPlaces)
		line.Total = net.Round(MoneyPlaces)
		line.TaxRate = &rate
		line.TaxAmount = &lineTaxOut
		subtotal = subtotal.Add(net)
		tax = tax.Add(lineTax)
		res.Items = append(res.Items, line)
	}

	total := subtotal.Add(tax)
	res.Subtotal = subtotal.Round(MoneyPlaces)
	res.Total = total.Round(MoneyPlaces)
	res.TaxAmount = res.Total.Sub(res.Subtotal)
	if business {
		rate := in.VATRate
		res.TaxRate = &rate
		return res, nil
	}

	if w := in.Withholding; w != nil && w.Rate.IsPositive() {
		res.Withholding = &entity.WithholdingInfo{
			Channel: w.Channel,
			Rate:    w.Rate,
			Amount:  total.Mul(w.Rate).Div(hundred).Round(MoneyPlaces),
			Text:    w.Text,
		}
	}
	return res, nil
}
