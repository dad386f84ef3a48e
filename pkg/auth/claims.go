package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

var (
	ErrMissingUserID   = errors.New("token missing user id")
	ErrSubjectMismatch = errors.New("token subject does not match user id")
)

// AccessTokenPayload is the input to MintAccessToken. An empty JTI is generated.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.MemberRole
	JTI    string
}

// AccessTokenClaims is the body of a storefront access token. The subject
// duplicates user_id so generic JWT tooling can read it.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; jwt.Parser calls it.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return ErrMissingUserID
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token carries invalid role %q", c.Role)
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return ErrSubjectMismatch
	}
	return nil
}

func (c AccessTokenClaims) Principal() Principal {
	return Principal{UserID: c.UserID, Role: c.Role}
}
