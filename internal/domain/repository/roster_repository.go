package repository

import (
	"context"

	"github.com/tu-usuario/clinica-pro/internal/domain/entity"
)

// RosterRepository define el puerto de lectura del contexto de una tanda:
// actividad, servicio asociado y lista de participantes con su perfil de
// facturación (posiblemente incompleto o ausente). La gestión de estos datos
// pertenece a otros módulos de la plataforma; aquí solo se leen.
type RosterRepository interface {
	GetActivity(ctx context.Context, id string) (*entity.GroupActivity, error)
	GetService(ctx context.Context, id string) (*entity.Service, error)
	ListParticipants(ctx context.Context, activityID string) ([]*entity.Participant, error)
}
