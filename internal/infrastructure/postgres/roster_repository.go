package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
	"github.com/tu-usuario/clinica-pro/internal/domain/repository"
)

var _ repository.RosterRepository = (*RosterRepo)(nil)

// RosterRepo implementa RosterRepository sobre PostgreSQL. Solo lectura: la
// gestión de actividades, participantes y perfiles vive en otros módulos de
// la plataforma.
type RosterRepo struct {
	q Querier
}

// NewRosterRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRosterRepository(q Querier) *RosterRepo {
	return &RosterRepo{q: q}
}

// GetActivity obtiene la actividad grupal.
func (r *RosterRepo) GetActivity(ctx context.Context, id string) (*entity.GroupActivity, error) {
	const q = `
		SELECT id, organization_id, service_id, professional_id, title, starts_at, ends_at, created_at, updated_at
		FROM group_activities WHERE id = $1`
	var a entity.GroupActivity
	err := r.q.QueryRow(ctx, q, id).Scan(
		&a.ID, &a.OrganizationID, &a.ServiceID, &a.ProfessionalID, &a.Title,
		&a.StartsAt, &a.EndsAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &a, nil
}

// GetService obtiene el servicio con precio y tipos impositivos.
func (r *RosterRepo) GetService(ctx context.Context, id string) (*entity.Service, error) {
	const q = `
		SELECT id, organization_id, name, price, vat_rate, irpf_rate, retention_rate, created_at, updated_at
		FROM services WHERE id = $1`
	var s entity.Service
	err := r.q.QueryRow(ctx, q, id).Scan(
		&s.ID, &s.OrganizationID, &s.Name, &s.Price, &s.VATRate, &s.IRPFRate, &s.RetentionRate,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get service: %w", err)
	}
	return &s, nil
}

// ListParticipants lista los participantes de la actividad con su perfil de
// facturación (LEFT JOIN: el perfil puede no existir o estar incompleto).
func (r *RosterRepo) ListParticipants(ctx context.Context, activityID string) ([]*entity.Participant, error) {
	const q = `
		SELECT p.id, p.activity_id, p.client_id, p.status, p.created_at, p.updated_at,
		       bp.client_id,
		       COALESCE(bp.name, ''), COALESCE(bp.tax_id, ''), COALESCE(bp.address, ''),
		       COALESCE(bp.postal_code, ''), COALESCE(bp.city, ''), COALESCE(bp.province, ''),
		       COALESCE(bp.email, ''), COALESCE(bp.phone, '')
		FROM activity_participants p
		LEFT JOIN billing_profiles bp ON bp.client_id = p.client_id
		WHERE p.activity_id = $1
		ORDER BY p.created_at`
	rows, err := r.q.Query(ctx, q, activityID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()
	var list []*entity.Participant
	for rows.Next() {
		var p entity.Participant
		var profileClientID *string
		var prof entity.BillingProfile
		err := rows.Scan(
			&p.ID, &p.ActivityID, &p.ClientID, &p.Status, &p.CreatedAt, &p.UpdatedAt,
			&profileClientID,
			&prof.Name, &prof.TaxID, &prof.Address,
			&prof.PostalCode, &prof.City, &prof.Province,
			&prof.Email, &prof.Phone,
		)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if profileClientID != nil {
			prof.ClientID = *profileClientID
			p.Profile = &prof
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
