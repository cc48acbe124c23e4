package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chitly/chit/internal/config"
	"github.com/chitly/chit/internal/identity"
	"github.com/chitly/chit/internal/notes"
	"github.com/chitly/chit/internal/oauth"
	"github.com/chitly/chit/internal/sessions"
	"github.com/chitly/chit/internal/tokens"
)

// fakeAdapter resolves codes from a fixed table; unknown codes are invalid.
type fakeAdapter struct {
	users map[string]oauth.ProviderUser
}

func (f *fakeAdapter) ProviderID() string { return identity.ProviderFacebook }

func (f *fakeAdapter) AuthURL(state string) (string, error) {
	return "https://provider.test/auth?state=" + state, nil
}

func (f *fakeAdapter) ResolveProfile(ctx context.Context, code string) (oauth.ProviderUser, error) {
	u, ok := f.users[code]
	if !ok {
		return oauth.ProviderUser{}, oauth.ErrInvalidCode
	}
	return u, nil
}

// fakeObjectStore keeps uploads in memory.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = b
	return nil
}

func (f *fakeObjectStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return io.NopCloser(bytes.NewReader(f.objects[key])), nil
}

func (f *fakeObjectStore) PresignedURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://files.test/" + key + "?sig=test", nil
}

type testEnv struct {
	router  *gin.Engine
	cfg     *config.Config
	ids     *identity.Service
	adapter *fakeAdapter
	objects *fakeObjectStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.JWT.Secret = "handler-test-secret-32-bytes-xxxxxxx"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	cfg.OAuth.StateTTL = 10 * time.Minute

	ids := identity.NewService(identity.NewMemoryStore(), identity.WithBcryptCost(bcrypt.MinCost))
	sess := sessions.NewService(sessions.NewMemoryRepository())
	ver := tokens.NewVerifier(cfg.JWT.Secret, nil)
	adapter := &fakeAdapter{users: map[string]oauth.ProviderUser{}}
	objects := newFakeObjectStore()

	r := gin.New()
	api := r.Group("/api")
	load := IdentityLoader(ids.Store())

	NewAuthHandler(cfg, ids, sess, map[string]oauth.Adapter{identity.ProviderFacebook: adapter}, oauth.NewMemoryStateStore()).Register(api, ver)
	NewNotesHandler(notes.NewService(notes.NewMemoryRepository()), objects).Register(api, ver, load)
	NewUsersHandler(ids).Register(api, ver, load)

	return &testEnv{router: r, cfg: cfg, ids: ids, adapter: adapter, objects: objects}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

// signupUser creates a local account and returns its id and access token.
func (e *testEnv) signupUser(t *testing.T, email, password string) (string, string) {
	t.Helper()
	w := e.do(t, "POST", "/api/auth/signup", `{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, 201, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	var data struct {
		AccessToken string `json:"accessToken"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.User.ID, data.AccessToken
}
