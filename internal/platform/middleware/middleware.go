// Package middleware carries the HTTP middlewares: request context
// propagation and caller authentication.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"veritas/internal/caller"
	"veritas/internal/jwttoken"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestContext stamps a correlation ID and the request arrival time onto
// the context. Downstream time reads go through the pinned clock so one
// request observes one instant.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		ctx := requestcontext.WithRequestID(r.Context(), id)
		ctx = requestcontext.WithRequestTime(ctx, time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authenticator resolves credentials into callers.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*caller.Caller, error)
	LookupByName(ctx context.Context, name string) (*caller.Caller, error)
}

// RequireCaller authenticates every request via X-API-Key or a bearer app
// token and stores the caller on the context.
func RequireCaller(auth Authenticator, tokens *jwttoken.JWTService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := resolveCaller(r, auth, tokens)
			if err != nil {
				logger.WarnContext(r.Context(), "authentication failed",
					"path", r.URL.Path, "error", err)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(caller.WithContext(r.Context(), c)))
		})
	}
}

func resolveCaller(r *http.Request, auth Authenticator, tokens *jwttoken.JWTService) (*caller.Caller, error) {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return auth.Authenticate(r.Context(), apiKey)
	}

	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header")
		}
		claims, err := tokens.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		return auth.LookupByName(r.Context(), claims.App)
	}

	return nil, dErrors.New(dErrors.CodeUnauthorized, "missing credentials")
}
