package ratelimit

import (
	"encoding/json"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"
)

// CodeRateLimited is the error code of a throttled request.
const CodeRateLimited = "RATE_LIMITED"

// Middleware throttles next by client address. It has the shape of a
// mux.MiddlewareFunc. When the store is unreachable requests pass through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := l.Allow(r.Context(), ClientAddr(r))
		if err != nil {
			log.Printf("[RATE] %v, allowing request", err)
			next.ServeHTTP(w, r)
			return
		}

		reset := int(math.Ceil(d.ResetAt.Sub(l.now()).Seconds()))
		if reset < 0 {
			reset = 0
		}
		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("RateLimit-Reset", strconv.Itoa(reset))

		if !d.Allowed {
			h.Set("Retry-After", strconv.Itoa(reset))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"message": l.rule.Message,
				"code":    CodeRateLimited,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientAddr is the host part of r.RemoteAddr. Behind a proxy the address
// must already have been rewritten from the forwarding headers.
func ClientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Rules returns the auth and otp budgets of the sign-in endpoints.
func Rules(authMax int, authWindow time.Duration, otpMax int, otpWindow time.Duration) (Rule, Rule) {
	return Rule{
			Name:    "auth",
			Max:     authMax,
			Window:  authWindow,
			Message: "Too many authentication attempts, please try again later.",
		}, Rule{
			Name:    "otp",
			Max:     otpMax,
			Window:  otpWindow,
			Message: "Too many OTP requests, please try again later.",
		}
}
