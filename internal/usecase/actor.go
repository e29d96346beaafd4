package usecase

import (
	"context"

	"healthcare-booking-service/internal/delivery/http/middleware"
	"healthcare-booking-service/internal/domain/entity"
	"healthcare-booking-service/pkg/apperror"

	"github.com/google/uuid"
)

var (
	ErrMissingIdentity = apperror.New(apperror.ErrForbidden, "caller identity not found in context")
	ErrNotOwner        = apperror.New(apperror.ErrForbidden, "resource does not belong to you")
)

// actor is the authenticated caller of a use case.
type actor struct {
	ID     uuid.UUID
	RoleID int
}

func actorFromContext(ctx context.Context) (actor, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return actor{}, ErrMissingIdentity
	}
	roleID, ok := middleware.GetRoleIDFromContext(ctx)
	if !ok {
		return actor{}, ErrMissingIdentity
	}
	return actor{ID: userID, RoleID: roleID}, nil
}

func (a actor) IsAdmin() bool   { return a.RoleID == entity.RoleIDAdmin }
func (a actor) IsDoctor() bool  { return a.RoleID == entity.RoleIDDoctor }
func (a actor) IsPatient() bool { return a.RoleID == entity.RoleIDPatient }

func (a actor) RoleName() string { return entity.RoleName(a.RoleID) }

// canActForDoctor reports whether the actor may manage doctorID's data.
func (a actor) canActForDoctor(doctorID uuid.UUID) bool {
	return a.IsAdmin() || (a.IsDoctor() && a.ID == doctorID)
}

// idPtr returns a pointer to the actor ID for audit records.
func (a actor) idPtr() *uuid.UUID {
	id := a.ID
	return &id
}
