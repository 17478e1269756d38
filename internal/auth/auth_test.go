package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhost/service/internal/middleware"
	"github.com/reelhost/service/internal/user"
)

const testSecret = "auth-test-secret"

type memUsers struct {
	mu      sync.Mutex
	byEmail map[string]*user.User
}

func (m *memUsers) Create(_ context.Context, email, hash string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[email]; ok {
		return nil, user.ErrAlreadyExists
	}
	u := &user.User{ID: "id-" + email, Email: email, PasswordHash: hash}
	m.byEmail[email] = u
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byEmail[email]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func newTestService() *Service {
	return NewService(user.NewService(&memUsers{byEmail: make(map[string]*user.User)}), testSecret)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	token, u, err := svc.Register(ctx, "ana@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	sub, err := middleware.ParseBearer(r, testSecret)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sub)

	_, _, err = svc.Register(ctx, "ana@example.com", "another-pass")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, got, err := svc.Login(ctx, "ANA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, _, err = svc.Login(ctx, "ana@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "bob@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestHandlers(t *testing.T) {
	h := NewHandler(newTestService())

	assert.Equal(t, http.StatusBadRequest, post(h.Register, "{").Code)
	assert.Equal(t, http.StatusBadRequest, post(h.Register, `{"email":"nope","password":"correct-horse"}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h.Register, `{"email":"ana@example.com","password":"short"}`).Code)

	body, _ := json.Marshal(map[string]string{"email": "ana@example.com", "password": "correct-horse"})
	rec := post(h.Register, string(body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var env struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Data.Token)
	assert.False(t, bytes.Contains(rec.Body.Bytes(), []byte("$2a$")), "password hash leaked")

	assert.Equal(t, http.StatusConflict, post(h.Register, string(body)).Code)
	assert.Equal(t, http.StatusOK, post(h.Login, string(body)).Code)
	assert.Equal(t, http.StatusUnauthorized, post(h.Login, `{"email":"ana@example.com","password":"not-the-pass"}`).Code)
}
