// Package pdf genera la representación gráfica del documento (ricevuta o fattura).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + P.IVA       │  Tipo + Número + Fecha       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  CLIENTE                      │  SOGGIORNO (fechas, noches)  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Descrizione | Q.tà | Prezzo | IVA | Importo          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Imponibile / IVA / TOTALE                          │
//	│  RETENCIÓN (si el canal la declara) + PAGO + NOTAS           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/pkg/money"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 180, Green: 30, Blue: 30}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(_ context.Context, doc *entity.InvoiceDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("pdf: documento nil")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(documentTitle(doc)+" "+doc.Number, true).
		WithAuthor(doc.Issuer.BusinessName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(doc))
	if doc.Status == entity.StatusCancelled {
		m.AddRows(cancelledRow(doc))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(doc))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow(doc.TaxRate != nil))
	m.AddRows(tableDetailRows(doc)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(doc))

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRows(doc)...)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return out.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func documentTitle(doc *entity.InvoiceDocument) string {
	if doc.DocumentType == entity.DocumentTypeInvoice {
		return "FATTURA"
	}
	return "RICEVUTA"
}

// headerRow: emisor (izq) y tipo + número + fecha (der).
func headerRow(doc *entity.InvoiceDocument) core.Row {
	ids := make([]string, 0, 2)
	if doc.Issuer.VATNumber != "" {
		ids = append(ids, "P.IVA "+doc.Issuer.VATNumber)
	}
	if doc.Issuer.TaxCode != "" {
		ids = append(ids, "C.F. "+doc.Issuer.TaxCode)
	}
	return row.New(20).Add(
		col.New(7).Add(
			text.New(doc.Issuer.BusinessName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(strings.Join(ids, "   "), props.Text{Size: 8, Top: 9, Color: colorGray}),
			text.New(doc.Issuer.Address, props.Text{Size: 8, Top: 13, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(documentTitle(doc), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("N. "+doc.Number, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Data: "+doc.IssueDate.Format("02/01/2006"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func cancelledRow(doc *entity.InvoiceDocument) core.Row {
	label := "DOCUMENTO ANNULLATO"
	if doc.Cancellation != nil && doc.Cancellation.Reason != "" {
		label += " - " + doc.Cancellation.Reason
	}
	return row.New(8).Add(col.New(12).Add(
		text.New(label, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Center, Color: colorRed, Top: 1}),
	))
}

// partiesRow: cliente (izq) y estancia (der).
func partiesRow(doc *entity.InvoiceDocument) core.Row {
	c := doc.Customer
	contact := joinNonEmpty("   ", c.Email, c.Phone)
	if c.TaxCode != "" {
		contact = joinNonEmpty("   ", "C.F. "+c.TaxCode, contact)
	}
	s := doc.Stay
	return row.New(22).Add(
		col.New(6).Add(
			text.New("CLIENTE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(c.Name, "-"), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(contact, props.Text{Size: 8, Top: 12, Color: colorGray}),
			text.New(joinNonEmpty(", ", c.Address, c.Country), props.Text{Size: 8, Top: 16, Color: colorGray}),
		),
		col.New(6).Add(
			text.New("SOGGIORNO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(s.ApartmentName, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("Dal %s al %s (%d notti, %d ospiti)",
				s.CheckIn.Format("02/01/2006"), s.CheckOut.Format("02/01/2006"), s.Nights, s.Guests,
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
			text.New(s.ApartmentAddress, props.Text{Size: 8, Top: 16, Color: colorGray}),
		),
	)
}

// tableHeaderRow: la columna IVA solo existe en régimen con IVA.
func tableHeaderRow(withVAT bool) core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	if !withVAT {
		return row.New(8).Add(
			h("Descrizione", 7, align.Left),
			h("Q.tà", 1, align.Center),
			h("Prezzo", 2, align.Right),
			h("Importo", 2, align.Right),
		)
	}
	return row.New(8).Add(
		h("Descrizione", 6, align.Left),
		h("Q.tà", 1, align.Center),
		h("Prezzo", 2, align.Right),
		h("IVA", 1, align.Center),
		h("Importo", 2, align.Right),
	)
}

func tableDetailRows(doc *entity.InvoiceDocument) []core.Row {
	withVAT := doc.TaxRate != nil
	result := make([]core.Row, 0, len(doc.Items))
	for _, it := range doc.Items {
		desc := 7
		if withVAT {
			desc = 6
		}
		cols := []core.Col{
			col.New(desc).Add(text.New(it.Description, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(1).Add(text.New(it.Quantity.String(), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(money.EUR(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		}
		if withVAT {
			rate := ""
			if it.TaxRate != nil {
				rate = money.Percent(*it.TaxRate)
			}
			cols = append(cols, col.New(1).Add(text.New(rate, props.Text{Size: 8, Align: align.Center, Top: 1})))
		}
		cols = append(cols, col.New(2).Add(text.New(money.EUR(it.Total), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})))
		result = append(result, row.New(7).Add(cols...))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(doc *entity.InvoiceDocument) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	grand := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: top})
	}

	if doc.TaxRate == nil {
		return row.New(10).Add(
			col.New(6),
			col.New(3).Add(label("TOTALE:", 2)),
			col.New(3).Add(grand(money.EUR(doc.Total), 2)),
		)
	}
	return row.New(20).Add(
		col.New(6),
		col.New(3).Add(
			label("Imponibile:", 1),
			label("IVA "+money.Percent(*doc.TaxRate)+":", 6),
			label("TOTALE:", 12),
		),
		col.New(3).Add(
			value(money.EUR(doc.Subtotal), 1),
			value(money.EUR(doc.TaxAmount), 6),
			grand(money.EUR(doc.Total), 12),
		),
	)
}

// footerRows: retención informativa, pago, notas y, si queda saldo, QR de bonifico SEPA.
func footerRows(doc *entity.InvoiceDocument) []core.Row {
	var rows []core.Row
	if w := doc.Withholding; w != nil {
		txt := fmt.Sprintf("Ritenuta %s (%s): %s", w.Channel, money.Percent(w.Rate), money.EUR(w.Amount))
		if w.Text != "" {
			txt += ". " + w.Text
		}
		rows = append(rows, row.New(8).Add(col.New(12).Add(
			text.New(txt, props.Text{Size: 8, Top: 1, Color: colorGray}),
		)))
	}

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(paymentLine(doc.Payment), props.Text{Style: fontstyle.Bold, Size: 8, Top: 1}),
	)))

	if doc.Notes != "" {
		for _, n := range strings.Split(doc.Notes, "\n") {
			rows = append(rows, row.New(5).Add(col.New(12).Add(
				text.New(n, props.Text{Size: 8, Color: colorGray}),
			)))
		}
	}

	if doc.Payment.Status != entity.PaymentPaid && doc.Issuer.IBAN != "" {
		rows = append(rows, row.New(40).Add(
			col.New(3).Add(code.NewQr(EPCPayload(doc), props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(
				text.New("Pagamento tramite bonifico", props.Text{Style: fontstyle.Bold, Size: 9, Top: 4, Left: 3}),
				text.New("IBAN: "+doc.Issuer.IBAN, props.Text{Size: 8, Top: 10, Left: 3, Color: colorGray}),
				text.New("Causale: "+documentTitle(doc)+" "+doc.Number, props.Text{Size: 8, Top: 15, Left: 3, Color: colorGray}),
			),
		))
	}
	return rows
}

var methodLabels = map[string]string{
	"card":          "carta",
	"paypal":        "PayPal",
	"bank_transfer": "bonifico",
	"platform":      "portale",
	"cash":          "contanti",
}

func paymentLine(p entity.PaymentInfo) string {
	if p.Status != entity.PaymentPaid {
		return "Stato pagamento: da saldare"
	}
	s := "Pagato"
	if l, ok := methodLabels[p.Method]; ok {
		s += " con " + l
	}
	if p.PaidAt != nil {
		s += " il " + p.PaidAt.Format("02/01/2006")
	}
	return s
}

// EPCPayload contenido del QR "SEPA Credit Transfer" (EPC069-12) por el total del documento.
func EPCPayload(doc *entity.InvoiceDocument) string {
	amount := "EUR" + doc.Total.Round(2).StringFixed(2)
	if !doc.Total.GreaterThan(decimal.Zero) {
		amount = ""
	}
	return strings.Join([]string{
		"BCD", "002", "1", "SCT", "",
		truncate(doc.Issuer.BusinessName, 70),
		strings.ReplaceAll(doc.Issuer.IBAN, " ", ""),
		amount, "", "",
		truncate(documentTitle(doc)+" "+doc.Number, 140),
	}, "\n")
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
