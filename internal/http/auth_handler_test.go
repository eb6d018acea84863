package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlkwl/supermarket/internal/domain"
	"github.com/jlkwl/supermarket/internal/repository"
	"github.com/jlkwl/supermarket/internal/session"
)

type fakeAccounts struct {
	byEmail map[string]*domain.User
	nextID  int64
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byEmail: make(map[string]*domain.User), nextID: 1}
}

func (f *fakeAccounts) Create(_ context.Context, u *domain.User, _ string) (int64, error) {
	if _, ok := f.byEmail[u.Email]; ok {
		return 0, repository.ErrDuplicateUser
	}
	u.ID = f.nextID
	f.nextID++
	f.byEmail[u.Email] = u
	return u.ID, nil
}

func (f *fakeAccounts) FindByCredentials(_ context.Context, email, password string) (*domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok || password != "secret123" {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeAccounts) ListAll(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.byEmail {
		out = append(out, *u)
	}
	return out, nil
}

type fakeSessionManager struct {
	created   []session.Principal
	destroyed []string
}

func (f *fakeSessionManager) Create(_ context.Context, p session.Principal) (string, error) {
	f.created = append(f.created, p)
	return "tok-1", nil
}

func (f *fakeSessionManager) Destroy(_ context.Context, token string) error {
	f.destroyed = append(f.destroyed, token)
	return nil
}

func TestRegisterCreatesUser(t *testing.T) {
	accounts := newFakeAccounts()
	handler := NewAuthHandler(accounts, &fakeSessionManager{})

	body := `{"username":"alice","email":"alice@example.com","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, accounts.byEmail, "alice@example.com")
	assert.Equal(t, domain.RoleUser, accounts.byEmail["alice@example.com"].Role)
}

func TestRegisterShortPassword(t *testing.T) {
	handler := NewAuthHandler(newFakeAccounts(), &fakeSessionManager{})

	body := `{"username":"alice","email":"alice@example.com","password":"123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.byEmail["alice@example.com"] = &domain.User{ID: 1, Email: "alice@example.com"}
	handler := NewAuthHandler(accounts, &fakeSessionManager{})

	body := `{"username":"alice","email":"alice@example.com","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "duplicate_email")
}

func TestLoginSetsSessionCookie(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.byEmail["alice@example.com"] = &domain.User{
		ID: 7, Username: "alice", Email: "alice@example.com", Role: domain.RoleUser,
	}
	sessions := &fakeSessionManager{}
	handler := NewAuthHandler(accounts, sessions)

	body := `{"email":"alice@example.com","password":"secret123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, sessions.created, 1)
	assert.Equal(t, int64(7), sessions.created[0].UserID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "tok-1", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginBadCredentials(t *testing.T) {
	handler := NewAuthHandler(newFakeAccounts(), &fakeSessionManager{})

	body := `{"email":"nobody@example.com","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "bad_credentials")
}

func TestLogoutDestroysSessionAndExpiresCookie(t *testing.T) {
	sessions := &fakeSessionManager{}
	handler := NewAuthHandler(newFakeAccounts(), sessions)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok-1"})
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"tok-1"}, sessions.destroyed)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].Expires.Before(time.Now()))
}
