package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/paddock/raceline/utils/handler"
)

// CronSecretHeader carries the shared secret for callers which cannot set an
// Authorization header, such as hosted cron services.
const CronSecretHeader = "X-Cron-Secret"

// SharedSecret rejects requests which present neither "Authorization: Bearer
// <secret>" nor a matching CronSecretHeader. An empty secret rejects
// everything.
func SharedSecret(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handler.Wrap(func(w http.ResponseWriter, r *http.Request) error {
			if !authorized(secret, r) {
				return handler.Errorf("invalid or missing secret").Status(http.StatusUnauthorized)
			}
			next.ServeHTTP(w, r)
			return nil
		})
	}
}

func authorized(secret string, r *http.Request) bool {
	if secret == "" {
		return false
	}
	presented := r.Header.Get(CronSecretHeader)
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		presented = strings.TrimPrefix(auth, "Bearer ")
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1
}
