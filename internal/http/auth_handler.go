package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jlkwl/supermarket/internal/domain"
	"github.com/jlkwl/supermarket/internal/repository"
	"github.com/jlkwl/supermarket/internal/session"
)

// UserAccounts is the registration/login surface of the user repository.
type UserAccounts interface {
	Create(ctx context.Context, u *domain.User, password string) (int64, error)
	FindByCredentials(ctx context.Context, email, password string) (*domain.User, error)
	ListAll(ctx context.Context) ([]domain.User, error)
}

// SessionManager creates and destroys login sessions.
type SessionManager interface {
	Create(ctx context.Context, p session.Principal) (string, error)
	Destroy(ctx context.Context, token string) error
}

type AuthHandler struct {
	users    UserAccounts
	sessions SessionManager
}

func NewAuthHandler(users UserAccounts, sessions SessionManager) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions}
}

type RegisterRequestDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Address  string `json:"address"`
	Contact  string `json:"contact"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponseDTO struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || len(req.Password) < 6 {
		respondError(w, http.StatusBadRequest, "invalid_request",
			"username, email and a password of at least 6 characters are required")
		return
	}

	user := &domain.User{
		Username: req.Username,
		Email:    req.Email,
		Address:  req.Address,
		Contact:  req.Contact,
		Role:     domain.RoleUser,
	}
	id, err := h.users.Create(r.Context(), user, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			respondError(w, http.StatusConflict, "duplicate_email", "a user with this email already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not register user")
		return
	}

	respondJSON(w, http.StatusCreated, UserResponseDTO{
		ID:       id,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
	})
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	user, err := h.users.FindByCredentials(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			respondError(w, http.StatusUnauthorized, "bad_credentials", "email or password is incorrect")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "could not log in")
		return
	}

	token, err := h.sessions.Create(r.Context(), session.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, UserResponseDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
	})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err == nil {
		_ = h.sessions.Destroy(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	respondJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// GET /api/v1/admin/users
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "could not list users")
		return
	}

	out := make([]UserResponseDTO, 0, len(users))
	for _, u := range users {
		out = append(out, UserResponseDTO{
			ID:       u.ID,
			Username: u.Username,
			Email:    u.Email,
			Role:     string(u.Role),
		})
	}
	respondJSON(w, http.StatusOK, out)
}
