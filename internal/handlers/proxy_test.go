package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"placegrad/internal/ratelimit"

	"github.com/stretchr/testify/assert"
)

// limitedLogin is the login route behind a 5 per window auth bucket and the
// forwarding-header middleware.
func limitedLogin(t *testing.T, trusted []netip.Prefix) http.Handler {
	authRule, otpRule := ratelimit.Rules(5, time.Minute, 3, time.Minute)
	store := ratelimit.NewMemoryStore()
	e := newEnv(t, Options{
		AuthLimiter: ratelimit.New(store, authRule),
		OTPLimiter:  ratelimit.New(store, otpRule),
	})
	return TrustedProxyHeaders(trusted)(e.router)
}

func postLogin(h http.Handler, peer, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"nobody","password":"secret123"}`))
	req.RemoteAddr = peer
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func admitted(h http.Handler, peer string, forwardedFor func(i int) string) int {
	n := 0
	for i := 0; i < 20; i++ {
		if postLogin(h, peer, forwardedFor(i)) != http.StatusTooManyRequests {
			n++
		}
	}
	return n
}

func TestForwardedForFromUntrustedPeerIsIgnored(t *testing.T) {
	h := limitedLogin(t, nil)

	n := admitted(h, "198.51.100.7:40000", func(i int) string {
		return fmt.Sprintf("203.0.113.%d", i+1)
	})
	assert.Equal(t, 5, n)
}

func TestForwardedForFromTrustedProxy(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	t.Run("distinct clients get their own buckets", func(t *testing.T) {
		h := limitedLogin(t, trusted)
		n := admitted(h, "10.0.0.2:5000", func(i int) string {
			return fmt.Sprintf("203.0.113.%d", i+1)
		})
		assert.Equal(t, 20, n)
	})

	t.Run("client-supplied hops are skipped", func(t *testing.T) {
		h := limitedLogin(t, trusted)
		n := admitted(h, "10.0.0.2:5000", func(i int) string {
			return fmt.Sprintf("192.0.2.%d, 198.51.100.7, 10.0.0.9", i+1)
		})
		assert.Equal(t, 5, n)
	})

	t.Run("malformed header falls back to the proxy", func(t *testing.T) {
		h := limitedLogin(t, trusted)
		n := admitted(h, "10.0.0.2:5000", func(i int) string {
			return fmt.Sprintf("not-an-ip-%d", i)
		})
		assert.Equal(t, 5, n)
	})
}

func TestClientHop(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	assert.Equal(t, "198.51.100.7", clientHop("192.0.2.1, 198.51.100.7, 10.1.2.3", trusted))
	assert.Equal(t, "198.51.100.7", clientHop("198.51.100.7", trusted))
	assert.Equal(t, "", clientHop("10.0.0.1, 10.0.0.2", trusted))
	assert.Equal(t, "", clientHop("192.0.2.1, garbage", trusted))
	assert.True(t, isTrusted(peerAddr("[::ffff:10.0.0.5]:80"), trusted))
	assert.False(t, isTrusted(peerAddr("bogus"), trusted))
}
