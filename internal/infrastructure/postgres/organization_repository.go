package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

var _ repository.OrganizationRepository = (*OrganizationRepo)(nil)

// OrganizationRepo implementa OrganizationRepository sobre PostgreSQL.
type OrganizationRepo struct {
	q Querier
}

// NewOrganizationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrganizationRepository(q Querier) *OrganizationRepo {
	return &OrganizationRepo{q: q}
}

// GetByID obtiene la organización con su configuración de numeración.
func (r *OrganizationRepo) GetByID(ctx context.Context, id string) (*entity.Organization, error) {
	const q = `
		SELECT id, name, tax_id, address, postal_code, city, province,
		       COALESCE(email, ''), COALESCE(phone, ''),
		       prefix_normal, prefix_simplified, prefix_rectifying, number_padding,
		       created_at, updated_at
		FROM organizations WHERE id = $1`
	var o entity.Organization
	err := r.q.QueryRow(ctx, q, id).Scan(
		&o.ID, &o.Name, &o.TaxID, &o.Address, &o.PostalCode, &o.City, &o.Province,
		&o.Email, &o.Phone,
		&o.PrefixNormal, &o.PrefixSimplified, &o.PrefixRectifying, &o.NumberPadding,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}
