package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

var _ repository.SettingsRepository = (*SettingsRepo)(nil)

// SettingsRepo grupos emisores. Las reglas por canal van en JSONB y los apartamentos en
// issuer_settings_apartments (un apartamento pertenece a un solo grupo).
type SettingsRepo struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository construye el repositorio.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

const settingsSelect = `
	SELECT s.id, s.name, s.business_name, s.address, s.vat_number, s.tax_code, s.email, s.phone, s.iban,
	       s.activity_type, s.vat_rate, s.prices_include_vat, s.number_format, s.number_prefix,
	       s.number_padding, s.channel_rules, s.default_notes, s.created_at, s.updated_at,
	       COALESCE(ARRAY(SELECT a.apartment_id FROM issuer_settings_apartments a
	                      WHERE a.settings_id = s.id ORDER BY a.apartment_id), '{}')
	FROM issuer_settings s`

func (r *SettingsRepo) GetByID(ctx context.Context, id string) (*entity.IssuerSettings, error) {
	s, err := scanSettings(r.pool.QueryRow(ctx, settingsSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issuer_settings by id: %w", err)
	}
	return s, nil
}

func (r *SettingsRepo) GetByApartmentID(ctx context.Context, apartmentID string) (*entity.IssuerSettings, error) {
	const where = `
		WHERE s.id = (SELECT settings_id FROM issuer_settings_apartments WHERE apartment_id = $1)`
	s, err := scanSettings(r.pool.QueryRow(ctx, settingsSelect+where, apartmentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get issuer_settings by apartment: %w", err)
	}
	return s, nil
}

func scanSettings(row pgxScanner) (*entity.IssuerSettings, error) {
	var (
		s        entity.IssuerSettings
		activity string
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.BusinessName, &s.Address, &s.VATNumber, &s.TaxCode, &s.Email, &s.Phone, &s.IBAN,
		&activity, &s.VATRate, &s.PricesIncludeVAT, &s.NumberFormat, &s.NumberPrefix,
		&s.NumberPadding, &s.ChannelRules, &s.DefaultNotes, &s.CreatedAt, &s.UpdatedAt,
		&s.ApartmentIDs,
	)
	if err != nil {
		return nil, err
	}
	s.ActivityType = entity.ActivityType(activity)
	return &s, nil
}

var _ repository.ApartmentRepository = (*ApartmentRepo)(nil)

// ApartmentRepo lectura de apartamentos.
type ApartmentRepo struct {
	pool *pgxpool.Pool
}

// NewApartmentRepository construye el repositorio.
func NewApartmentRepository(pool *pgxpool.Pool) *ApartmentRepo {
	return &ApartmentRepo{pool: pool}
}

func (r *ApartmentRepo) GetByID(ctx context.Context, id string) (*entity.Apartment, error) {
	var a entity.Apartment
	err := r.pool.QueryRow(ctx, `SELECT id, name, address, created_at, updated_at FROM apartments WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.Address, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get apartment by id: %w", err)
	}
	return &a, nil
}
