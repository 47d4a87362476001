package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// Seed datos iniciales para arrancar sin base de datos. Las claves JSON son los
// nombres de campo de las entidades (sin distinguir mayúsculas).
type Seed struct {
	Settings   []entity.IssuerSettings `json:"settings"`
	Apartments []entity.Apartment      `json:"apartments"`
	Bookings   []entity.Booking        `json:"bookings"`
}

// LoadSeed decodifica r y carga su contenido en el Store.
func LoadSeed(ctx context.Context, s *Store, r io.Reader) (Seed, error) {
	var seed Seed
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("decodificar seed: %w", err)
	}
	settings := NewSettingsRepository(s)
	for i := range seed.Settings {
		if seed.Settings[i].ID == "" {
			return Seed{}, fmt.Errorf("seed: grupo emisor %d sin ID", i)
		}
		if err := settings.Put(ctx, &seed.Settings[i]); err != nil {
			return Seed{}, err
		}
	}
	apartments := NewApartmentRepository(s)
	for i := range seed.Apartments {
		if err := apartments.Put(ctx, &seed.Apartments[i]); err != nil {
			return Seed{}, err
		}
	}
	bookings := NewBookingRepository(s)
	for i := range seed.Bookings {
		if seed.Bookings[i].ID == "" {
			return Seed{}, fmt.Errorf("seed: reserva %d sin ID", i)
		}
		if err := bookings.Put(ctx, &seed.Bookings[i]); err != nil {
			return Seed{}, err
		}
	}
	return seed, nil
}

// LoadSeedFile abre path y llama a LoadSeed.
func LoadSeedFile(ctx context.Context, s *Store, path string) (Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Seed{}, fmt.Errorf("abrir seed: %w", err)
	}
	defer f.Close()
	return LoadSeed(ctx, s, f)
}
