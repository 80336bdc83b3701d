package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rotacerta/rota-certa/internal/auth"
	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/middleware"
	"github.com/rotacerta/rota-certa/internal/models"
	"github.com/rotacerta/rota-certa/internal/service"
)

func newTestEnv(t *testing.T) (*auth.Service, *service.Service) {
	t.Helper()
	authService, err := auth.NewService()
	require.NoError(t, err)
	store, err := localstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return authService, service.New(store)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestAuthHandler_Register(t *testing.T) {
	authService, svc := newTestEnv(t)
	handler := NewAuthHandler(authService, svc)

	t.Run("successful registration", func(t *testing.T) {
		w := postJSON(t, handler.Register, "/api/auth/register", models.RegisterRequest{
			Name:     "Ana",
			Email:    "ana@rotacerta.com",
			Username: "ana",
			Password: "password123",
			Role:     models.RoleDriver,
			Base:     "POA",
		})
		assert.Equal(t, http.StatusCreated, w.Code)

		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "ana", resp.User.Username)
		assert.Equal(t, models.SyncPending, resp.User.SyncStatus)
		assert.Empty(t, resp.User.PasswordHash, "hash must never be serialized")
		assert.NotContains(t, w.Body.String(), "passwordHash")
	})

	t.Run("duplicate email", func(t *testing.T) {
		w := postJSON(t, handler.Register, "/api/auth/register", models.RegisterRequest{
			Name:     "Ana 2",
			Email:    "ana@rotacerta.com",
			Username: "ana2",
			Password: "password123",
			Role:     models.RoleDriver,
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		w := postJSON(t, handler.Register, "/api/auth/register", models.RegisterRequest{
			Name:     "Bia",
			Email:    "bia@rotacerta.com",
			Username: "bia",
			Password: "short",
			Role:     models.RoleDriver,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid role", func(t *testing.T) {
		w := postJSON(t, handler.Register, "/api/auth/register", models.RegisterRequest{
			Name:     "Bia",
			Email:    "bia@rotacerta.com",
			Username: "bia",
			Password: "password123",
			Role:     "manager",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/auth/register", nil)
		w := httptest.NewRecorder()
		handler.Register(w, req)
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	authService, svc := newTestEnv(t)
	handler := NewAuthHandler(authService, svc)

	w := postJSON(t, handler.Register, "/api/auth/register", models.RegisterRequest{
		Name:     "Ana",
		Email:    "ana@rotacerta.com",
		Username: "ana",
		Password: "password123",
		Role:     models.RoleDriver,
		Base:     "POA",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("successful login", func(t *testing.T) {
		w := postJSON(t, handler.Login, "/api/auth/login", models.LoginRequest{
			Username: "ana",
			Password: "password123",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.NotNil(t, resp.User.LastLogin)
		assert.NotContains(t, w.Body.String(), "passwordHash")

		claims, err := authService.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, "ana", claims.Username)
		assert.Equal(t, "POA", claims.Base)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(t, handler.Login, "/api/auth/login", models.LoginRequest{
			Username: "ana",
			Password: "wrongpassword",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		w := postJSON(t, handler.Login, "/api/auth/login", models.LoginRequest{
			Username: "nobody",
			Password: "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postJSON(t, handler.Login, "/api/auth/login", models.LoginRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Users(t *testing.T) {
	authService, svc := newTestEnv(t)
	handler := NewAuthHandler(authService, svc)
	protected := middleware.NewAuthMiddleware(authService).RequireAdmin(http.HandlerFunc(handler.Users))

	for _, req := range []models.RegisterRequest{
		{Name: "Ana", Email: "ana@rotacerta.com", Username: "ana", Password: "password123", Role: models.RoleDriver, Base: "POA"},
		{Name: "Chefe", Email: "chefe@rotacerta.com", Username: "chefe", Password: "password123", Role: models.RoleAdmin},
	} {
		w := postJSON(t, handler.Register, "/api/auth/register", req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	t.Run("driver is refused", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, authedRequest(t, "GET", "/api/users", nil, driverClaims()))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("admin lists users without hashes", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, authedRequest(t, "GET", "/api/users", nil, adminClaims()))
		require.Equal(t, http.StatusOK, w.Code)

		var users []models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
		assert.Len(t, users, 2)
		assert.NotContains(t, w.Body.String(), "passwordHash")
	})

	t.Run("lookup by email", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, authedRequest(t, "GET", "/api/users?email=ana@rotacerta.com", nil, adminClaims()))
		require.Equal(t, http.StatusOK, w.Code)

		var user models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
		assert.Equal(t, "ana", user.Username)
		assert.Empty(t, user.PasswordHash)
	})

	t.Run("unknown email", func(t *testing.T) {
		w := httptest.NewRecorder()
		protected.ServeHTTP(w, authedRequest(t, "GET", "/api/users?email=nobody@rotacerta.com", nil, adminClaims()))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
