// Package money formatea importes para documentos en italiano.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.Italian)

// Format devuelve el importe con separadores italianos y dos decimales: 1234.5 -> "1.234,50".
func Format(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return printer.Sprint(number.Decimal(f, number.Scale(2)))
}

// EUR antepone el símbolo del euro: "€ 1.234,50".
func EUR(d decimal.Decimal) string {
	return "€ " + Format(d)
}

// Percent formatea una alícuota sin ceros sobrantes: 22 -> "22%", 10.5 -> "10,5%".
func Percent(d decimal.Decimal) string {
	f, _ := d.Float64()
	return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(2))) + "%"
}
