package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"placegrad/internal/models"
	"placegrad/internal/ratelimit"

	"github.com/gorilla/mux"
)

// Options tunes NewRouter. Nil limiters disable throttling.
type Options struct {
	AuthLimiter *ratelimit.Limiter
	OTPLimiter  *ratelimit.Limiter
	HealthCheck func(ctx context.Context) error
}

// NewRouter mounts the API routes.
func NewRouter(h *AuthHandler, opts Options) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestID)
	router.NotFoundHandler = RequestID(http.HandlerFunc(notFound))
	router.MethodNotAllowedHandler = RequestID(http.HandlerFunc(methodNotAllowed))

	router.HandleFunc("/health", health(opts.HealthCheck)).Methods(http.MethodGet)
	router.HandleFunc("/api", apiInfo).Methods(http.MethodGet)

	authLimit := throttle(opts.AuthLimiter)
	otpLimit := throttle(opts.OTPLimiter)
	adminOnly := RequireRole(models.RoleAdmin)

	a := router.PathPrefix("/api/auth").Subrouter()
	a.Handle("/login", authLimit(http.HandlerFunc(h.Login))).Methods(http.MethodPost)
	a.Handle("/verify-otp", otpLimit(http.HandlerFunc(h.VerifyOTP))).Methods(http.MethodPost)
	a.Handle("/resend-otp", otpLimit(http.HandlerFunc(h.ResendOTP))).Methods(http.MethodPost)
	a.Handle("/forgot-password", authLimit(http.HandlerFunc(h.ForgotPassword))).Methods(http.MethodPost)
	a.Handle("/reset-password", authLimit(http.HandlerFunc(h.ResetPassword))).Methods(http.MethodPost)
	a.Handle("/register", authLimit(http.HandlerFunc(h.Register))).Methods(http.MethodPost)
	a.Handle("/change-password", h.RequireAuth(http.HandlerFunc(h.ChangePassword))).Methods(http.MethodPost)
	a.Handle("/logout", h.RequireAuth(http.HandlerFunc(h.Logout))).Methods(http.MethodPost)
	a.Handle("/me", h.RequireAuth(http.HandlerFunc(h.Me))).Methods(http.MethodGet)

	router.Handle("/api/admin/users", h.RequireAuth(adminOnly(http.HandlerFunc(h.CreateUser)))).Methods(http.MethodPost)

	return router
}

func throttle(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return l.Middleware
}

func health(check func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Printf("[HTTP] Health check failed: %v", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func apiInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "PlaceGrad API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"auth":   "/api/auth",
			"admin":  "/api/admin",
			"health": "/health",
		},
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "Route "+r.URL.Path+" not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeInvalidRequest, "Method not allowed")
}
