package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/clinica-pro/internal/application/billing"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

var _ billing.BatchTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunInvoice inicia una transacción con el contador de numeración y el
// repositorio de facturas atados a la misma tx, ejecuta fn y hace Commit o
// Rollback. Así asignación de número y persistencia de la factura comparten
// destino: sin commit, el contador no avanza y el número no queda consumido.
func (r *TxRunner) RunInvoice(ctx context.Context, fn func(
	counters repository.CounterRepository,
	invoices repository.InvoiceRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	counters := NewCounterRepository(tx)
	invoices := NewInvoiceRepository(tx)

	if err := fn(counters, invoices); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
