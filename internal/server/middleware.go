package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/fpna/internal/auth"
	"go.uber.org/zap"
)

type principalKey struct{}

// principal returns the caller resolved by requireRole.
func principal(ctx context.Context) auth.Principal {
	p, _ := ctx.Value(principalKey{}).(auth.Principal)
	return p
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Debug("request served",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// requireRole resolves the bearer token and rejects callers outside roles.
// Browsers cannot set headers on websocket upgrades, so a token query
// parameter is accepted when the header is absent.
func (h *handler) requireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "server.requireRole"

			var (
				p   auth.Principal
				err error
			)
			if header := r.Header.Get("Authorization"); header != "" {
				p, err = h.dir.FromHeader(header)
			} else {
				p, err = h.dir.Lookup(r.URL.Query().Get("token"))
			}
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				h.respondErrorWithOp(w, http.StatusUnauthorized, "Missing Bearer token", op)
				return
			case err != nil:
				h.respondErrorWithOp(w, http.StatusForbidden, "Invalid token", op)
				return
			}

			if err := auth.Require(p, roles...); err != nil {
				names := make([]string, len(roles))
				for i, role := range roles {
					names[i] = string(role)
				}
				h.respondErrorWithOp(w, http.StatusForbidden, "Requires role: "+strings.Join(names, ", "), op)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}
