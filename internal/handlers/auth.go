package handlers

import (
	"net/http"

	"github.com/rotacerta/rota-certa/internal/auth"
	"github.com/rotacerta/rota-certa/internal/middleware"
	"github.com/rotacerta/rota-certa/internal/models"
	"github.com/rotacerta/rota-certa/internal/service"
)

// AuthHandler handles authentication requests. Login authenticates against
// the locally cached user record, so it keeps working while the remote
// backend is unreachable.
type AuthHandler struct {
	authService *auth.Service
	svc         *service.Service
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, svc *service.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		svc:         svc,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var loginReq models.LoginRequest
	if !decodeBody(w, r, &loginReq) {
		return
	}
	if loginReq.Username == "" || loginReq.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.svc.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	// Best effort; a failed stamp must not fail the login.
	_ = h.svc.TouchLastLogin(r.Context(), user)

	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user.Sanitized()})
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var registerReq models.RegisterRequest
	if !decodeBody(w, r, &registerReq) {
		return
	}

	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidateEmail(registerReq.Email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.IsValidRole(registerReq.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), registerReq, passwordHash)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, models.LoginResponse{Token: token, User: user.Sanitized()})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	user, err := h.svc.FindUserByUsername(r.Context(), claims.Username)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, user.Sanitized())
}

// Users handles GET /api/users for administrators: the full user list, or a
// single account looked up by ?email=.
func (h *AuthHandler) Users(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if email := r.URL.Query().Get("email"); email != "" {
		user, err := h.svc.FindUserByEmail(r.Context(), email)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user.Sanitized())
		return
	}

	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	sanitized := make([]models.User, 0, len(users))
	for _, user := range users {
		sanitized = append(sanitized, user.Sanitized())
	}
	writeJSON(w, http.StatusOK, sanitized)
}
