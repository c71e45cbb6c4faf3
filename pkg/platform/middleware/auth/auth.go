package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"escrowd/pkg/domain"
	request "escrowd/pkg/platform/middleware/request"
	"escrowd/pkg/requestcontext"
)

// SessionVerifier validates a session token issued by the external identity
// layer and returns the authenticated address.
type SessionVerifier interface {
	VerifyAddress(token string) (domain.Address, error)
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireCaller rejects requests without a valid bearer session and stores
// the authenticated caller for handlers to pass on explicitly. Callers already
// marked admin may omit the bearer token.
func RequireCaller(verifier SessionVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if (!ok || token == "") && requestcontext.Caller(ctx).Admin {
				next.ServeHTTP(w, r)
				return
			}
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			address, err := verifier.VerifyAddress(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			caller := requestcontext.Caller(ctx)
			caller.Address = address
			next.ServeHTTP(w, r.WithContext(requestcontext.WithCaller(ctx, caller)))
		})
	}
}
