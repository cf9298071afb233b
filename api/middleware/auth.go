package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/swanstudios/training-storefront/api/responses"
	pkgAuth "github.com/swanstudios/training-storefront/pkg/auth"
	"github.com/swanstudios/training-storefront/pkg/config"
	pkgerrors "github.com/swanstudios/training-storefront/pkg/errors"
	"github.com/swanstudios/training-storefront/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the owner
// identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.OwnerID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing owner id"))
				return
			}

			ctx := WithOwnerID(r.Context(), claims.OwnerID.String())
			if logg != nil {
				ctx = logg.WithOwnerID(ctx, claims.OwnerID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
