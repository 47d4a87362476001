package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType es el régimen fiscal del grupo emisor. Los dos regímenes son excluyentes.
type ActivityType string

const (
	ActivityBusiness      ActivityType = "business"       // con IVA, emite factura
	ActivityTouristRental ActivityType = "tourist_rental" // locación turística, emite recibo sin IVA
)

// Valid indica si el régimen es uno de los soportados.
func (a ActivityType) Valid() bool {
	return a == ActivityBusiness || a == ActivityTouristRental
}

// DocumentType deriva el tipo de documento del régimen.
func (a ActivityType) DocumentType() DocumentType {
	if a == ActivityBusiness {
		return DocumentTypeInvoice
	}
	return DocumentTypeReceipt
}

// Valores por defecto de numeración.
const (
	DefaultNumberFormat  = "{{year}}/{{number}}"
	DefaultNumberPadding = 3
	DefaultChannel       = "direct"
)

// ChannelRule reglas por canal de distribución (Airbnb, Booking, directo...).
type ChannelRule struct {
	EmitDocument     bool
	ApplyWithholding bool
	WithholdingRate  decimal.Decimal // porcentaje, ej. 21
	DisclosureText   string
}

// IssuerSettings grupo de configuración fiscal compartido por uno o más apartamentos.
// Lo edita el operador; para el motor es de solo lectura.
type IssuerSettings struct {
	ID               string
	Name             string
	BusinessName     string
	Address          string
	VATNumber        string // Partita IVA
	TaxCode          string // Codice fiscale
	Email            string
	Phone            string
	IBAN             string
	ActivityType     ActivityType
	VATRate          decimal.Decimal // porcentaje, ej. 22
	PricesIncludeVAT bool
	NumberFormat     string
	NumberPrefix     string
	NumberPadding    int
	ApartmentIDs     []string
	ChannelRules     map[string]ChannelRule
	DefaultNotes     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ResolveChannel devuelve la regla del canal. Un canal sin regla emite documento
// y no aplica retención.
func (s *IssuerSettings) ResolveChannel(channel string) ChannelRule {
	key := NormalizeChannel(channel)
	if rule, ok := s.ChannelRules[key]; ok {
		return rule
	}
	return ChannelRule{EmitDocument: true}
}

// Covers indica si el grupo incluye el apartamento.
func (s *IssuerSettings) Covers(apartmentID string) bool {
	for _, id := range s.ApartmentIDs {
		if id == apartmentID {
			return true
		}
	}
	return false
}

// Format devuelve plantilla, prefijo y relleno con los valores por defecto aplicados.
func (s *IssuerSettings) Format() (template, prefix string, padding int) {
	template = s.NumberFormat
	if strings.TrimSpace(template) == "" {
		template = DefaultNumberFormat
	}
	padding = s.NumberPadding
	if padding <= 0 {
		padding = DefaultNumberPadding
	}
	return template, s.NumberPrefix, padding
}

// NormalizeChannel normaliza el nombre del canal ("Booking.com " -> "booking.com").
func NormalizeChannel(channel string) string {
	c := strings.ToLower(strings.TrimSpace(channel))
	if c == "" {
		return DefaultChannel
	}
	return c
}
