// Package taxid valida identificativos fiscales italianos: Partita IVA (11 dígitos con
// dígito de control) y Codice Fiscale de persona física (16 caracteres con carácter de control).
package taxid

import (
	"fmt"
	"strings"
	"unicode"
)

// tabla de conversión de los caracteres en posición impar del codice fiscale (0-9 y A-Z).
var cfOddValues = [26]int{1, 0, 5, 7, 9, 13, 15, 17, 19, 21, 2, 4, 18, 20, 11, 3, 6, 8, 12, 14, 16, 10, 22, 25, 24, 23}

// Normalize quita espacios y el prefijo de país IT y pasa a mayúsculas.
func Normalize(s string) string {
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	return strings.TrimPrefix(s, "IT")
}

// IsPartitaIVA indica si s tiene forma de Partita IVA (11 dígitos tras normalizar).
func IsPartitaIVA(s string) bool {
	s = Normalize(s)
	return len(s) == 11 && allDigits(s)
}

// ValidatePartitaIVA comprueba el dígito de control (algoritmo de Luhn sobre 10 dígitos).
func ValidatePartitaIVA(s string) error {
	s = Normalize(s)
	if len(s) != 11 || !allDigits(s) {
		return fmt.Errorf("taxid: la partita IVA debe tener 11 dígitos, se recibió %q", s)
	}
	expected := partitaIVACheckDigit(s[:10])
	if s[10] != expected {
		return fmt.Errorf("taxid: dígito de control de la partita IVA inválido: esperado %c, recibido %c", expected, s[10])
	}
	return nil
}

func partitaIVACheckDigit(base string) byte {
	var sum int
	for i := 0; i < len(base); i++ {
		d := int(base[i] - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

// IsCodiceFiscale indica si s tiene forma de codice fiscale (16 caracteres alfanuméricos).
func IsCodiceFiscale(s string) bool {
	s = Normalize(s)
	if len(s) != 16 {
		return false
	}
	for _, r := range s {
		if !isAlnum(r) {
			return false
		}
	}
	return true
}

// ValidateCodiceFiscale comprueba el carácter de control del codice fiscale.
func ValidateCodiceFiscale(s string) error {
	s = Normalize(s)
	if !IsCodiceFiscale(s) {
		return fmt.Errorf("taxid: el codice fiscale debe tener 16 caracteres alfanuméricos, se recibió %q", s)
	}
	var sum int
	for i := 0; i < 15; i++ {
		v := charValue(rune(s[i]))
		if i%2 == 0 {
			sum += cfOddValues[v]
		} else {
			sum += v
		}
	}
	expected := byte('A' + sum%26)
	if s[15] != expected {
		return fmt.Errorf("taxid: carácter de control del codice fiscale inválido: esperado %c, recibido %c", expected, s[15])
	}
	return nil
}

// Validate acepta identificativos extranjeros sin comprobarlos. Si s tiene forma de partita
// IVA o de codice fiscale, debe superar el control correspondiente.
func Validate(s string) error {
	switch {
	case strings.TrimSpace(s) == "":
		return nil
	case IsPartitaIVA(s):
		return ValidatePartitaIVA(s)
	case IsCodiceFiscale(s):
		return ValidateCodiceFiscale(s)
	default:
		return nil
	}
}

func charValue(r rune) int {
	if unicode.IsDigit(r) {
		return int(r - '0')
	}
	return int(r - 'A')
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z')
}
