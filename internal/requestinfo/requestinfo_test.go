package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.1"}, "203.0.113.7"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "198.51.100.2", "X-Real-Ip": "10.0.0.9"}, "198.51.100.2"},
		{"real ip", map[string]string{"X-Real-Ip": "10.0.0.9"}, "10.0.0.9"},
		{"nothing", nil, UnknownIP},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(r))
		})
	}
}

func TestHashIP(t *testing.T) {
	h := HashIP("203.0.113.7")
	assert.Len(t, h, 16)
	assert.Equal(t, h, HashIP("203.0.113.7"))
	assert.NotEqual(t, h, HashIP("203.0.113.8"))
	assert.NotContains(t, h, "203")
}

func TestParseUA_Bot(t *testing.T) {
	ua := ParseUA("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	assert.True(t, ua.IsBot)

	ua = ParseUA("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	assert.False(t, ua.IsBot)
	assert.Equal(t, "Desktop", ua.Device)
	assert.Equal(t, "Chrome", ua.Browser)
}

func TestEnrich(t *testing.T) {
	var got *Info
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	r := httptest.NewRequest(http.MethodGet, "/api/leads/csrf", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	rr := httptest.NewRecorder()

	Enrich(next).ServeHTTP(rr, r)

	require.NotNil(t, got)
	assert.Equal(t, "203.0.113.7", got.IP)
	assert.Equal(t, HashIP("203.0.113.7"), got.IPHash)
	assert.Len(t, got.RequestID, 36)
	assert.Equal(t, got.RequestID, rr.Header().Get("X-Request-ID"))
	assert.Empty(t, got.Country)
}

func TestGet_WithoutMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	info := Get(r)
	require.NotNil(t, info)
	assert.Equal(t, UnknownIP, info.IP)
	assert.NotEmpty(t, info.RequestID)
}
