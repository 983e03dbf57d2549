// Package handlers exposes the auth flow over HTTP.
package handlers

import (
	"context"
	"log"
	"net/http"

	"placegrad/internal/auth"
	"placegrad/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthService is the flow the handlers drive.
type AuthService interface {
	Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
	VerifyOTP(ctx context.Context, code, tempToken string) (*auth.SessionResult, error)
	ResendOTP(ctx context.Context, tempToken string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Register(ctx context.Context, in auth.RegisterInput, byAdmin bool) (*models.PublicUser, error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, current, newPassword string) error
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	svc AuthService
}

// NewAuthHandler returns a handler backed by svc.
func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

const forgotPasswordMessage = "If an account with that email exists, we have sent a password reset link."

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*auth.LoginResult
}

type sessionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*auth.SessionResult
}

type userResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	User    models.PublicUser `json:"user"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Success:     true,
		Message:     "Login credentials verified. OTP sent to your email.",
		LoginResult: res,
	})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OTP       string `json:"otp"`
		TempToken string `json:"tempToken"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.VerifyOTP(r.Context(), req.OTP, req.TempToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		Success:       true,
		Message:       "Login successful! Welcome to PlaceGrad.",
		SessionResult: res,
	})
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TempToken string `json:"tempToken"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	masked, err := h.svc.ResendOTP(r.Context(), req.TempToken)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "New OTP sent to your email.",
		"email":   masked,
	})
}

// ForgotPassword answers every well-formed request with the same body.
// Store failures are logged rather than surfaced, since only existing
// accounts reach the store writes.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		if auth.CodeOf(err) != "" {
			writeServiceError(w, r, err)
			return
		}
		log.Printf("[HTTP] forgot-password (request %s): %v", RequestIDFrom(r.Context()), err)
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: forgotPasswordMessage})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Success: true,
		Message: "Password reset successful. You can now login with your new password.",
	})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, false, "User registered successfully. Please verify your email to complete registration.")
}

// CreateUser is the admin variant of Register; the requested role is kept.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, true, "User created successfully by admin")
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, byAdmin bool, message string) {
	var req auth.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.svc.Register(r.Context(), req, byAdmin)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{Success: true, Message: message, User: *user})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Password changed successfully"})
}

// Logout only acknowledges the request. Sessions are stateless, so the
// client discarding its token is what ends the session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFrom(r.Context())
	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user.Public()})
}
