package repository

import (
	"context"

	"github.com/jhoicas/rentals-api/internal/domain/entity"
)

// SequenceRepository persiste los contadores de numeración por (grupo, año).
type SequenceRepository interface {
	// Reserve asigna el siguiente número al documento de forma atómica. Si el documento
	// ya tiene número en ese (grupo, año), devuelve el mismo.
	Reserve(ctx context.Context, groupID string, year int, documentID string) (int64, error)
	// Release libera el número del documento. Si era el último emitido, el contador
	// retrocede; si no, queda un hueco. Liberar un documento sin número no es error.
	Release(ctx context.Context, groupID string, year int, documentID string) error
	Get(ctx context.Context, groupID string, year int) (*entity.SequenceCounter, error)
}
