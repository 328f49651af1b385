package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmehra2102/Pharmacy-Management-System/internal/auth/domain"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/httpx"
	"github.com/dmehra2102/Pharmacy-Management-System/pkg/identity"
)

type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func Authenticate(log *slog.Logger, verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || raw == "" {
				httpx.WriteError(w, log, r, domain.ErrInvalidToken)
				return
			}
			id, err := verifier.Verify(raw)
			if err != nil {
				httpx.WriteError(w, log, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.NewContext(r.Context(), id)))
		})
	}
}
