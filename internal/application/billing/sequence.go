package billing

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/rentals-api/internal/domain"
	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

// Reservation número reservado para un documento. Es el handle que se usa para
// confirmar (finalizar el documento) o compensar (Release).
type Reservation struct {
	GroupID    string
	Year       int
	DocumentID string
	Number     int64
	Formatted  string
}

// SequenceService numeración correlativa por grupo emisor y año.
type SequenceService struct {
	repo         repository.SequenceRepository
	settingsRepo repository.SettingsRepository
	log          zerolog.Logger
}

// NewSequenceService construye el servicio.
func NewSequenceService(repo repository.SequenceRepository, settingsRepo repository.SettingsRepository, log zerolog.Logger) *SequenceService {
	return &SequenceService{repo: repo, settingsRepo: settingsRepo, log: log}
}

// Reserve asigna el siguiente número de (groupID, year) al documento y lo formatea con
// la plantilla del grupo.
func (s *SequenceService) Reserve(ctx context.Context, groupID string, year int, documentID string) (*Reservation, error) {
	settings, err := s.settingsRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, domain.NewCounterError("reserve", fmt.Errorf("leer configuración %s: %w", groupID, err))
	}
	if settings == nil {
		settings = &entity.IssuerSettings{ID: groupID}
	}
	r, err := s.reserveWith(ctx, settings, year, documentID)
	if err != nil {
		return nil, domain.NewCounterError("reserve", err)
	}
	return r, nil
}

// reserveWith devuelve el error del repositorio sin envolver; el llamador decide la operación.
func (s *SequenceService) reserveWith(ctx context.Context, settings *entity.IssuerSettings, year int, documentID string) (*Reservation, error) {
	n, err := s.repo.Reserve(ctx, settings.ID, year, documentID)
	if err != nil {
		return nil, err
	}
	tmpl, prefix, padding := settings.Format()
	r := &Reservation{
		GroupID:    settings.ID,
		Year:       year,
		DocumentID: documentID,
		Number:     n,
		Formatted:  FormatNumber(tmpl, prefix, padding, year, n),
	}
	s.log.Debug().Str("group_id", r.GroupID).Int("year", year).Int64("number", n).Str("document_id", documentID).Msg("número reservado")
	return r, nil
}

// Release libera el número reservado. Puede dejar un hueco en la numeración, nunca un duplicado.
func (s *SequenceService) Release(ctx context.Context, r *Reservation) error {
	if r == nil {
		return nil
	}
	if err := s.repo.Release(ctx, r.GroupID, r.Year, r.DocumentID); err != nil {
		return domain.NewCounterError("release", err)
	}
	s.log.Info().Str("group_id", r.GroupID).Int("year", r.Year).Int64("number", r.Number).Str("document_id", r.DocumentID).Msg("número liberado")
	return nil
}

// Counter devuelve el estado del contador (nil si aún no hay emisiones en el año).
func (s *SequenceService) Counter(ctx context.Context, groupID string, year int) (*entity.SequenceCounter, error) {
	c, err := s.repo.Get(ctx, groupID, year)
	if err != nil {
		return nil, domain.NewCounterError("counter", err)
	}
	return c, nil
}

// FormatNumber sustituye {{year}}, {{number}} y {{prefix}} en la plantilla. El número se
// rellena con ceros hasta padding dígitos.
func FormatNumber(template, prefix string, padding, year int, n int64) string {
	if strings.TrimSpace(template) == "" {
		template = entity.DefaultNumberFormat
	}
	if padding <= 0 {
		padding = entity.DefaultNumberPadding
	}
	return strings.NewReplacer(
		"{{year}}", strconv.Itoa(year),
		"{{number}}", fmt.Sprintf("%0*d", padding, n),
		"{{prefix}}", prefix,
	).Replace(template)
}
