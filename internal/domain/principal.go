package domain

import "github.com/google/uuid"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the authenticated caller every use case is invoked on behalf of.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

func (p Principal) HasRole(role Role) bool {
	return p.Role == role
}

func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}

// CanAccess reports whether p may act on a resource owned by ownerID.
func (p Principal) CanAccess(ownerID uuid.UUID) bool {
	return p.IsAdmin() || (p.UserID != uuid.Nil && p.UserID == ownerID)
}

func (p Principal) Authorize(ownerID uuid.UUID) error {
	if !p.CanAccess(ownerID) {
		return ErrNotOwner
	}
	return nil
}

func (p Principal) RequireAdmin() error {
	if !p.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}
