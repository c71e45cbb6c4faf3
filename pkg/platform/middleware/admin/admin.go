package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	request "escrowd/pkg/platform/middleware/request"
	"escrowd/pkg/requestcontext"
)

// RequireAdminToken guards administrative routes and marks the caller as
// holding the administrative capability.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			// Use constant-time comparison to prevent timing attacks
			if expectedToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin token required"}`))
				return
			}

			ctx := r.Context()
			caller := requestcontext.Caller(ctx)
			caller.Admin = true
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}

// MarkAdmin sets the administrative capability when a valid token is
// presented and otherwise passes the request through unchanged.
func MarkAdmin(expectedToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if expectedToken == "" || token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			caller := requestcontext.Caller(ctx)
			caller.Admin = true
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}
