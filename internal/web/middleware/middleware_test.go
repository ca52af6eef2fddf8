package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth([]string{"alpha", "beta"})(okHandler())
	tests := []struct {
		name string
		key  string
		want int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "gamma", http.StatusForbidden},
		{"first key", "alpha", http.StatusNoContent},
		{"second key", "beta", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAPIKeyAuth_NoKeysPassesThrough(t *testing.T) {
	h := APIKeyAuth(nil)(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{"untrusted proxy ignored", []string{"10.0.0.0/8"}, "192.168.1.5:1234",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "192.168.1.5:1234"},
		{"trusted real ip", []string{"10.0.0.0/8"}, "10.1.2.3:1234",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted forwarded for", []string{"10.0.0.1"}, "10.0.0.1:80",
			map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.1"}, "5.6.7.8"},
		{"invalid header kept", []string{"10.0.0.0/8"}, "10.0.0.2:80",
			map[string]string{"X-Real-IP": "not-an-ip"}, "10.0.0.2:80"},
		{"no trusted proxies", nil, "10.0.0.2:80",
			map[string]string{"X-Real-IP": "1.2.3.4"}, "10.0.0.2:80"},
		{"bad cidr skipped", []string{"bogus", "10.0.0.0/8"}, "10.0.0.9:80",
			map[string]string{"X-Real-IP": "9.9.9.9"}, "9.9.9.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusConflict)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}
