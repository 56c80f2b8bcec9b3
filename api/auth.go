package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fieldops/nfotrack/internal/auth"
	"github.com/fieldops/nfotrack/internal/presence"
	"github.com/fieldops/nfotrack/pkg/models"
)

type AuthHandler struct {
	verifier      *auth.Verifier
	reconciler    *presence.Reconciler
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(v *auth.Verifier, rec *presence.Reconciler, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{verifier: v, reconciler: rec, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type loginRequest struct {
	Role     string `json:"role"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Name  string `json:"name"`
	Area  string `json:"area,omitempty"`
}

// Login verifies role-scoped credentials and issues a session token. The
// user-visible failure message is uniform; logs distinguish a credential
// miss from a backend failure.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Role == "" || req.Username == "" || req.Password == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	id, err := h.verifier.Verify(r.Context(), models.Role(req.Role), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, models.ErrBackendUnavailable) {
			logger.Error("login backend failure", slog.String("username", req.Username), slog.Any("err", err))
		} else {
			logger.Info("login rejected", slog.String("username", req.Username), slog.String("role", req.Role))
		}
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  id.Username,
		"role": string(id.Role),
		"name": id.Name,
		"area": id.Area,
		"exp":  time.Now().Add(h.tokenDuration).Unix(),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, loginResponse{Token: tokenStr, Name: id.Name, Area: id.Area}, http.StatusOK)
}

// Logout writes the forced final presence row for engineers before the
// client discards its token: logged out, off shift, assignment cleared.
// Managers have no presence row; their logout is client-side only.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	role, _ := r.Context().Value(CtxRole).(string)
	if role != string(models.RoleEngineer) {
		w.WriteHeader(http.StatusOK)
		return
	}

	username, _ := r.Context().Value(CtxUsername).(string)
	name, _ := r.Context().Value(CtxName).(string)
	if username == "" {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	if err := h.reconciler.ReconcileLogout(r.Context(), username, name, nil, nil); err != nil {
		http.Error(w, "Logout failed", http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusOK)
}
