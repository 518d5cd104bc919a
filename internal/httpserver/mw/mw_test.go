package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMatchHost(t *testing.T) {
	tests := []struct {
		host, pattern string
		want          bool
	}{
		{"duewatch.local", "duewatch.local", true},
		{"api.example.com", "*.example.com", true},
		{"example.com", "*.example.com", false},
		{"badexample.com", "*.example.com", false},
		{"other.local", "duewatch.local", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.host, tt.pattern); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.host, tt.pattern, got, tt.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", want: "192.0.2.1"},
		{name: "proxy headers ignored", headers: map[string]string{"X-Forwarded-For": "10.1.1.1"}, want: "192.0.2.1"},
		{name: "cloudflare first", headers: map[string]string{"CF-Connecting-IP": "10.0.0.9", "X-Forwarded-For": "10.1.1.1"}, trustProxy: true, want: "10.0.0.9"},
		{name: "left-most forwarded", headers: map[string]string{"X-Forwarded-For": "10.1.1.1, 10.2.2.2"}, trustProxy: true, want: "10.1.1.1"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "10.3.3.3"}, trustProxy: true, want: "10.3.3.3"},
		{name: "no headers behind proxy", trustProxy: true, want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := newIPMatcher([]string{"10.0.0.0/8", " 192.0.2.7 ", "", "garbage", "2001:db8::/32"})

	tests := []struct {
		ip   string
		want bool
	}{
		{"10.20.30.40", true},
		{"192.0.2.7", true},
		{"192.0.2.8", false},
		{"::ffff:10.0.0.1", true},
		{"2001:db8::1", true},
		{"not-an-ip", false},
	}
	for _, tt := range tests {
		if got := m.allow(tt.ip); got != tt.want {
			t.Errorf("allow(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
	if !newIPMatcher(nil).isEmpty() {
		t.Error("empty list should give an empty matcher")
	}
}

func TestRateLimitRefills(t *testing.T) {
	now := time.Date(2025, time.October, 1, 9, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:             2,
		RefillPerIPPerMin: 60,
		Now:               func() time.Time { return now },
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	hit := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))
		return rec
	}

	if rec := hit(); rec.Code != http.StatusOK || rec.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("first request: code=%d remaining=%q", rec.Code, rec.Header().Get("X-RateLimit-Remaining"))
	}
	if rec := hit(); rec.Code != http.StatusOK {
		t.Fatalf("second request: code=%d", rec.Code)
	}

	rec := hit()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: code=%d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}

	now = now.Add(time.Second)
	if rec := hit(); rec.Code != http.StatusOK {
		t.Errorf("after refill: code=%d, want 200", rec.Code)
	}
}
