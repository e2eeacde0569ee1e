package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// bearerAuth guards a handler with the configured API token. An empty token
// disables authentication entirely. Token comparison is constant time.
func bearerAuth(token string, next http.HandlerFunc) http.HandlerFunc {
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing or invalid bearer token"}` + "\n"))
			return
		}
		next(w, r)
	}
}
