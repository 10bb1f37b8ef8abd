// Package identity carries the acting user through a request. Every write
// in the services takes an Identity argument; nothing looks up a current user
// from ambient state.
package identity

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

type Role string

const (
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RoleNurse        Role = "nurse"
	RoleReceptionist Role = "receptionist"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleNurse, RoleReceptionist, RoleAdmin:
		return true
	}
	return false
}

// Staff roles may act on any patient's data.
var Staff = []Role{RoleDoctor, RoleNurse, RoleReceptionist, RoleAdmin}

type Identity struct {
	UserID uuid.UUID
	Role   Role
}

func (i Identity) IsZero() bool {
	return i.UserID == uuid.Nil
}

func (i Identity) HasRole(roles ...Role) bool {
	return slices.Contains(roles, i.Role)
}

// Require returns ErrUnauthenticated for an empty identity, and ErrForbidden
// when roles is non-empty and the identity holds none of them.
func Require(id Identity, roles ...Role) error {
	if id.IsZero() {
		return apperr.ErrUnauthenticated
	}
	if len(roles) > 0 && !id.HasRole(roles...) {
		return apperr.ErrForbidden
	}
	return nil
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && !id.IsZero()
}
