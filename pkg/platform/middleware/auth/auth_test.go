package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"escrowd/pkg/domain"
	"escrowd/pkg/requestcontext"
)

type stubVerifier struct {
	address domain.Address
	err     error
}

func (s stubVerifier) VerifyAddress(string) (domain.Address, error) {
	return s.address, s.err
}

func TestRequireCaller(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	addr := domain.MustParseAddress("0x1111111111111111111111111111111111111111")

	var seen domain.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Caller(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireCaller(stubVerifier{address: addr}, logger)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rec := httptest.NewRecorder()
		RequireCaller(stubVerifier{err: errors.New("bad signature")}, logger)(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token stores caller address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		RequireCaller(stubVerifier{address: addr}, logger)(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, addr, seen.Address)
		assert.False(t, seen.Admin)
	})

	t.Run("admin caller may omit the bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(requestcontext.WithCaller(req.Context(), domain.Caller{Admin: true}))
		rec := httptest.NewRecorder()
		RequireCaller(stubVerifier{err: errors.New("unused")}, logger)(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, seen.Admin)
		assert.True(t, seen.Address.IsNil())
	})
}
