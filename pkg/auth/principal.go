package auth

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
)

// Principal is the authenticated caller of an operation.
type Principal struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// IsAdmin reports whether the caller holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == enums.MemberRoleAdmin
}

// Owns reports whether the caller is the given user.
func (p Principal) Owns(userID uuid.UUID) bool {
	return p.UserID != uuid.Nil && p.UserID == userID
}

// CanView reports whether the caller may read a resource owned by userID.
func (p Principal) CanView(userID uuid.UUID) bool {
	return p.IsAdmin() || p.Owns(userID)
}
