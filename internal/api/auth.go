package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"github.com/tendant/simple-sharelink/pkg/sharelink/config"
)

// AuthHandler issues and verifies the admin bearer token. Credentials are
// a single configured admin user with a bcrypt password hash; the token
// is an HS256 JWT with a configured expiry.
type AuthHandler struct {
	tokenAuth    *jwtauth.JWTAuth
	username     string
	passwordHash string
	tokenExpiry  time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{
		tokenAuth:    jwtauth.New("HS256", []byte(cfg.JWTSecret), nil),
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		tokenExpiry:  time.Duration(cfg.JWTExpiryMinutes) * time.Minute,
	}
}

// TokenAuth exposes the verifier for route protection middleware.
func (h *AuthHandler) TokenAuth() *jwtauth.JWTAuth {
	return h.tokenAuth
}

// Routes returns the routes for authentication
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.Login)
	return r
}

// LoginRequest is the request body for a login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the response body for a successful login
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Login verifies the admin credentials and issues a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username != h.username ||
		bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)) != nil {
		slog.Warn("Login rejected", "username", req.Username)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	claims := map[string]interface{}{"sub": req.Username}
	jwtauth.SetIssuedNow(claims)
	jwtauth.SetExpiryIn(claims, h.tokenExpiry)

	_, tokenString, err := h.tokenAuth.Encode(claims)
	if err != nil {
		slog.Error("Failed to encode token", "error", err)
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	slog.Info("Login succeeded", "username", req.Username)
	render.JSON(w, r, LoginResponse{
		Token:     tokenString,
		ExpiresIn: int64(h.tokenExpiry.Seconds()),
	})
}
