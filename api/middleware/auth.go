package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const bearerScheme = "Bearer"

// Auth validates a bearer token and seeds the request context with the caller.
// A nil verifier skips the revoked-session lookup.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r.Context(), cfg, verifier, r.Header.Get("Authorization"))
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
					w.Header().Set("WWW-Authenticate", bearerScheme+` realm="storefront"`)
				}
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			ctx = logg.WithUserID(ctx, principal.UserID.String())
			ctx = logg.WithActorRole(ctx, string(principal.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, verifier session.AccessSessionChecker, header string) (pkgAuth.Principal, error) {
	token, ok := bearerToken(header)
	if !ok {
		return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return pkgAuth.Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if verifier == nil {
		return claims.Principal(), nil
	}

	if claims.ID == "" {
		return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	live, err := verifier.HasSession(ctx, claims.ID)
	switch {
	case err != nil:
		return pkgAuth.Principal{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	case !live:
		return pkgAuth.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims.Principal(), nil
}

// bearerToken accepts "Bearer <token>" in any case, or a bare token.
func bearerToken(header string) (string, bool) {
	value := strings.TrimSpace(header)
	if scheme, rest, found := strings.Cut(value, " "); found && strings.EqualFold(scheme, bearerScheme) {
		value = strings.TrimSpace(rest)
	}
	return value, value != ""
}
