package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ayush/pawpal-api/internal/auth"
	"github.com/ayush/pawpal-api/internal/logging"
	"github.com/ayush/pawpal-api/internal/models"
	"github.com/ayush/pawpal-api/internal/pets"
	"github.com/ayush/pawpal-api/internal/store"
)

type memUsers struct {
	mu    sync.Mutex
	users []*models.User
}

func (m *memUsers) CreateUser(_ context.Context, name, email, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return nil, store.ErrConflict
		}
	}
	u := &models.User{ID: int64(len(m.users) + 1), Name: name, Email: email, PasswordHash: hash, IsActive: true, CreatedAt: time.Now()}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.users) {
		return nil, store.ErrNotFound
	}
	return m.users[id-1], nil
}

func (m *memUsers) UpdatePassword(context.Context, int64, string) error { return nil }

// noPets is a pet store with nothing in it.
type noPets struct{}

func (noPets) CreatePet(_ context.Context, p *models.Pet) (*models.Pet, error) {
	cp := *p
	cp.ID = 1
	return &cp, nil
}
func (noPets) ListPets(context.Context, int64) ([]models.Pet, error) { return nil, nil }
func (noPets) GetPet(context.Context, int64, int64) (*models.Pet, error) {
	return nil, store.ErrNotFound
}
func (noPets) UpdatePet(context.Context, *models.Pet) (*models.Pet, error) {
	return nil, store.ErrNotFound
}
func (noPets) SetPetPhoto(context.Context, int64, int64, string) (string, error) {
	return "", store.ErrNotFound
}
func (noPets) DeletePet(context.Context, int64, int64) (*models.Pet, error) {
	return nil, store.ErrNotFound
}
func (noPets) CreateMedication(context.Context, *models.Medication) (*models.Medication, error) {
	return nil, store.ErrNotFound
}
func (noPets) ListMedications(context.Context, int64) ([]models.Medication, error) { return nil, nil }
func (noPets) GetMedication(context.Context, int64, int64) (*models.Medication, error) {
	return nil, store.ErrNotFound
}
func (noPets) UpdateMedication(context.Context, *models.Medication) (*models.Medication, error) {
	return nil, store.ErrNotFound
}
func (noPets) DeleteMedication(context.Context, int64, int64) error { return store.ErrNotFound }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logging.Discard()
	users := &memUsers{}

	hasher, err := auth.NewHasher(auth.AlgorithmBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec([]byte("router-test-secret-key"), auth.DefaultTokenTTL)
	require.NoError(t, err)
	authHandler, err := auth.NewHandler(users, hasher, codec, log)
	require.NoError(t, err)

	return NewRouter(Deps{
		Log:         log,
		Tokens:      codec,
		Users:       users,
		Auth:        authHandler,
		Pets:        pets.NewHandler(noPets{}, nil, nil, log),
		CORSOrigins: []string{"http://localhost:8000"},
	})
}

func serve(h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(t), http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestFallbacks(t *testing.T) {
	r := newTestRouter(t)

	rec := serve(r, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Endpoint not found"}`, rec.Body.String())

	rec = serve(r, http.MethodGet, "/auth/signup", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/auth/logout"},
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/auth/change-password"},
		{http.MethodPost, "/pets/create"},
		{http.MethodGet, "/pets"},
		{http.MethodPut, "/pets/1"},
		{http.MethodDelete, "/pets/1"},
		{http.MethodGet, "/pets/1/medications"},
	} {
		rec := serve(r, route.method, route.path, "{}", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
		assert.JSONEq(t, `{"error":"Token is missing"}`, rec.Body.String())
	}

	rec := serve(r, http.MethodGet, "/pets", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Token is invalid or expired"}`, rec.Body.String())
}

func TestSignupThenUseToken(t *testing.T) {
	r := newTestRouter(t)

	rec := serve(r, http.MethodPost, "/auth/signup",
		`{"name":"A","email":"A@X.com","password":"secret1","confirmPassword":"secret1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var signup struct {
		User struct {
			Token string `json:"token"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signup))
	token := signup.User.Token

	rec = serve(r, http.MethodGet, "/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"a@x.com"`)

	rec = serve(r, http.MethodGet, "/pets", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = serve(r, http.MethodPut, "/pets/42", `{"name":"x"}`, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Pet not found"}`, rec.Body.String())

	// dose log and photos are not configured
	rec = serve(r, http.MethodGet, "/pets/42/doses", "", token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Endpoint not found"}`, rec.Body.String())

	rec = serve(r, http.MethodPost, "/auth/logout", "", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Logout successful"}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:8000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:8000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
