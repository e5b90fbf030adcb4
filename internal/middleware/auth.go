package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ayush/pawpal-api/internal/httpx"
	"github.com/ayush/pawpal-api/internal/logging"
	"github.com/ayush/pawpal-api/internal/models"
	"github.com/ayush/pawpal-api/internal/store"
)

// TokenDecoder turns a bearer token into the subject user id.
type TokenDecoder interface {
	Decode(token string) (int64, error)
}

// UserLookup loads the subject of a token.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

const (
	msgTokenMissing    = "Token is missing"
	msgMalformedHeader = "Invalid authorization header format"
	msgTokenInvalid    = "Token is invalid or expired"
	msgUserUnavailable = "User not found or inactive"
)

type userKey struct{}

// UserFromContext returns the user resolved by RequireAuth.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	return u, ok && u != nil
}

// WithUser attaches u to ctx the way RequireAuth does.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// RequireAuth is middleware that validates the bearer token, loads its
// subject and injects the active user into the request context. Every
// protected route goes through it.
func RequireAuth(tokens TokenDecoder, users UserLookup, log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if header == "" {
				httpx.WriteError(ctx, w, log, httpx.Unauthorized(msgTokenMissing))
				return
			}

			parts := strings.Fields(header)
			if len(parts) < 2 {
				httpx.WriteError(ctx, w, log, httpx.Unauthorized(msgMalformedHeader))
				return
			}

			userID, err := tokens.Decode(parts[1])
			if err != nil {
				log.Debug(ctx, "auth: token rejected", "err", err)
				httpx.WriteError(ctx, w, log, httpx.Unauthorized(msgTokenInvalid))
				return
			}

			user, err := users.GetUserByID(ctx, userID)
			if errors.Is(err, store.ErrNotFound) || (err == nil && !user.IsActive) {
				httpx.WriteError(ctx, w, log, httpx.Unauthorized(msgUserUnavailable))
				return
			}
			if err != nil {
				httpx.WriteError(ctx, w, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}
