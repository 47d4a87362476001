package memory

import (
	"context"
	"maps"
	"slices"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// SettingsRepository configuración fiscal en memoria.
type SettingsRepository struct {
	scope
}

func NewSettingsRepository(s *Store) *SettingsRepository {
	return &SettingsRepository{scope{s: s}}
}

// Put crea o reemplaza un grupo emisor.
func (r *SettingsRepository) Put(ctx context.Context, st *entity.IssuerSettings) error {
	return r.write(ctx, func() error {
		c := *st
		c.ApartmentIDs = slices.Clone(st.ApartmentIDs)
		c.ChannelRules = maps.Clone(st.ChannelRules)
		r.s.settings[st.ID] = c
		return nil
	})
}

func (r *SettingsRepository) GetByID(ctx context.Context, id string) (*entity.IssuerSettings, error) {
	var out *entity.IssuerSettings
	err := r.read(ctx, func() {
		if st, ok := r.s.settings[id]; ok {
			out = &st
		}
	})
	return out, err
}

// GetByApartmentID recorre los grupos por id para que el resultado sea determinista.
func (r *SettingsRepository) GetByApartmentID(ctx context.Context, apartmentID string) (*entity.IssuerSettings, error) {
	var out *entity.IssuerSettings
	err := r.read(ctx, func() {
		for _, id := range slices.Sorted(maps.Keys(r.s.settings)) {
			st := r.s.settings[id]
			if st.Covers(apartmentID) {
				out = &st
				return
			}
		}
	})
	return out, err
}

// ApartmentRepository apartamentos en memoria.
type ApartmentRepository struct {
	scope
}

func NewApartmentRepository(s *Store) *ApartmentRepository {
	return &ApartmentRepository{scope{s: s}}
}

// Put crea o reemplaza un apartamento.
func (r *ApartmentRepository) Put(ctx context.Context, a *entity.Apartment) error {
	return r.write(ctx, func() error {
		r.s.apartments[a.ID] = *a
		return nil
	})
}

func (r *ApartmentRepository) GetByID(ctx context.Context, id string) (*entity.Apartment, error) {
	var out *entity.Apartment
	err := r.read(ctx, func() {
		if a, ok := r.s.apartments[id]; ok {
			out = &a
		}
	})
	return out, err
}
