package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// APIKeyHeader carries the client's API key.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth rejects requests without a valid X-API-Key header. With no
// keys configured every request passes; callers enable it only when keys
// are required.
func APIKeyAuth(keys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			switch {
			case key == "":
				reject(w, r, http.StatusUnauthorized, "missing API key", "AUTH001")
			case !validKey(key, keys):
				reject(w, r, http.StatusForbidden, "invalid API key", "AUTH002")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, status int, msg, code string) {
	slog.WarnContext(r.Context(), "auth: "+msg,
		"path", r.URL.Path,
		"method", r.Method,
		"remote_addr", r.RemoteAddr,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}

// validKey compares key against every configured key in constant time.
func validKey(key string, keys []string) bool {
	match := 0
	for _, k := range keys {
		match |= subtle.ConstantTimeCompare([]byte(key), []byte(k))
	}
	return match == 1
}
