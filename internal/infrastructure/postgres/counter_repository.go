package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

var _ repository.CounterRepository = (*CounterRepo)(nil)

// CounterRepo implementa CounterRepository sobre PostgreSQL. Es el único
// recurso compartido entre tandas concurrentes: la unicidad de los números de
// factura descansa en que el incremento sea una única sentencia atómica.
type CounterRepo struct {
	q Querier
}

// NewCounterRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCounterRepository(q Querier) *CounterRepo {
	return &CounterRepo{q: q}
}

// ReadCounter devuelve el último número emitido (0 si nunca se facturó).
func (r *CounterRepo) ReadCounter(ctx context.Context, orgID string, t entity.InvoiceType) (int64, error) {
	const q = `
		SELECT counter FROM invoice_counters
		WHERE organization_id = $1 AND invoice_type = $2`
	var n int64
	err := r.q.QueryRow(ctx, q, orgID, t).Scan(&n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("read invoice counter: %w", err)
	}
	return n, nil
}

// AtomicIncrement avanza el contador y devuelve el nuevo valor en una única
// sentencia: el UPSERT con RETURNING toma el row lock, con lo que dos tandas
// concurrentes jamás reciben el mismo número. Si la sentencia falla no hay
// valor asignado y el contador queda intacto.
func (r *CounterRepo) AtomicIncrement(ctx context.Context, orgID string, t entity.InvoiceType) (int64, error) {
	const q = `
		INSERT INTO invoice_counters (organization_id, invoice_type, counter, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (organization_id, invoice_type)
		DO UPDATE SET counter = invoice_counters.counter + 1, updated_at = now()
		RETURNING counter`
	var n int64
	if err := r.q.QueryRow(ctx, q, orgID, t).Scan(&n); err != nil {
		return 0, fmt.Errorf("increment invoice counter: %w", err)
	}
	return n, nil
}
