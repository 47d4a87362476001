package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
	"github.com/jhoicas/rentals-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo contadores por (grupo, año). La fila de invoice_counters queda bloqueada
// por el upsert hasta el commit, así que dos reservas concurrentes nunca leen el mismo valor.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx.
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

func (r *SequenceRepo) Reserve(ctx context.Context, groupID string, year int, documentID string) (int64, error) {
	var n int64
	err := withTx(ctx, r.q, func(tx pgx.Tx) error {
		const existing = `
			SELECT number FROM invoice_counter_entries
			WHERE group_id = $1 AND year = $2 AND document_id = $3`
		err := tx.QueryRow(ctx, existing, groupID, year, documentID).Scan(&n)
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("select counter entry: %w", err)
		}

		const next = `
			INSERT INTO invoice_counters (group_id, year, last_number, updated_at)
			VALUES ($1, $2, 1, now())
			ON CONFLICT (group_id, year)
			DO UPDATE SET last_number = invoice_counters.last_number + 1, updated_at = now()
			RETURNING last_number`
		if err := tx.QueryRow(ctx, next, groupID, year).Scan(&n); err != nil {
			return fmt.Errorf("increment counter: %w", err)
		}

		const record = `
			INSERT INTO invoice_counter_entries (group_id, year, document_id, number, created_at)
			VALUES ($1, $2, $3, $4, now())`
		if _, err := tx.Exec(ctx, record, groupID, year, documentID, n); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("número %d ya asignado en %s/%d: %w", n, groupID, year, err)
			}
			return fmt.Errorf("insert counter entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Release borra el par y retrocede el contador solo si el número liberado sigue siendo
// el último; en otro caso queda un hueco.
func (r *SequenceRepo) Release(ctx context.Context, groupID string, year int, documentID string) error {
	const q = `
		WITH released AS (
			DELETE FROM invoice_counter_entries
			WHERE group_id = $1 AND year = $2 AND document_id = $3
			RETURNING number
		)
		UPDATE invoice_counters c
		SET last_number = c.last_number - 1, updated_at = now()
		FROM released
		WHERE c.group_id = $1 AND c.year = $2 AND c.last_number = released.number`
	if _, err := r.q.Exec(ctx, q, groupID, year, documentID); err != nil {
		return fmt.Errorf("release counter entry: %w", err)
	}
	return nil
}

func (r *SequenceRepo) Get(ctx context.Context, groupID string, year int) (*entity.SequenceCounter, error) {
	c := entity.SequenceCounter{GroupID: groupID, Year: year}
	const head = `SELECT last_number, updated_at FROM invoice_counters WHERE group_id = $1 AND year = $2`
	if err := r.q.QueryRow(ctx, head, groupID, year).Scan(&c.LastNumber, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get counter: %w", err)
	}

	const entries = `
		SELECT document_id, number FROM invoice_counter_entries
		WHERE group_id = $1 AND year = $2
		ORDER BY number`
	rows, err := r.q.Query(ctx, entries, groupID, year)
	if err != nil {
		return nil, fmt.Errorf("list counter entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e entity.SequenceEntry
		if err := rows.Scan(&e.DocumentID, &e.Number); err != nil {
			return nil, fmt.Errorf("scan counter entry: %w", err)
		}
		c.Used = append(c.Used, e)
	}
	return &c, rows.Err()
}
