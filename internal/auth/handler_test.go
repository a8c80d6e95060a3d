package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/amparo-app/amparo/internal/auth"
	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/shared"
	"github.com/amparo-app/amparo/internal/users"
	_ "github.com/amparo-app/amparo/testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type accountsRepo struct {
	byID   map[int64]users.User
	nextID int64
}

func newAccountsRepo() *accountsRepo {
	return &accountsRepo{byID: make(map[int64]users.User), nextID: 1}
}

func (a *accountsRepo) Create(ctx context.Context, user users.User) (users.User, error) {
	for _, existing := range a.byID {
		if existing.Email == user.Email {
			return users.User{}, shared.ErrDuplicateEmail
		}
	}
	if len(a.byID) == 0 {
		user.Role = authz.RoleAdmin
		user.Status = authz.StatusApproved
	}
	user.ID = a.nextID
	a.nextID++
	a.byID[user.ID] = user
	return user, nil
}

func (a *accountsRepo) Get(ctx context.Context, id int64) (users.User, error) {
	user, ok := a.byID[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return user, nil
}

func (a *accountsRepo) FindByEmail(ctx context.Context, email string) (users.User, error) {
	for _, user := range a.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return users.User{}, shared.ErrNotFound
}

func (a *accountsRepo) List(ctx context.Context, status authz.Status, offset, limit int) ([]users.User, int, error) {
	return nil, 0, nil
}

func (a *accountsRepo) UpdateStatus(ctx context.Context, id int64, status authz.Status) error {
	user, ok := a.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.Status = status
	a.byID[id] = user
	return nil
}

// subjectsFromAccounts adapts the account store to the snapshot loader.
type subjectsFromAccounts struct {
	repo *accountsRepo
}

func (s subjectsFromAccounts) Subject(ctx context.Context, userID int64) (*authz.Subject, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &authz.Subject{
		ID:     user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
		Status: user.Status,
	}, nil
}

func (s subjectsFromAccounts) SaveOverrides(ctx context.Context, userID int64, overrides authz.OverrideSet) error {
	return nil
}

type sessionRecords struct {
	created []string
	deleted []string
}

func (s *sessionRecords) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.created = append(s.created, id)
	return nil
}

func (s *sessionRecords) DeleteSession(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type authHarness struct {
	router   http.Handler
	repo     *accountsRepo
	sessions *shared.SessionManager
	records  *sessionRecords
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repo := newAccountsRepo()
	sessionManager := shared.NewSessionManager(client, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrf-test-secret")
	logger := testLogger()
	subjectsService := authz.NewService(subjectsFromAccounts{repo: repo}, client,
		authz.NewEvaluator(authz.DefaultPolicy()), nil, time.Second, logger)
	accountsService := users.NewService(repo, nil, nil, nil, logger)
	records := &sessionRecords{}
	authService := auth.NewService(repo, records)

	handler := auth.NewHandler(logger, authService, accountsService, subjectsService, sessionManager, csrfManager)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return &authHarness{router: r, repo: repo, sessions: sessionManager, records: records}
}

// seedUser places an account directly into the store, bypassing the
// repository's first-account promotion.
func (h *authHarness) seedUser(t *testing.T, email, password string, role authz.Role, status authz.Status) users.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := users.User{
		ID:           h.repo.nextID,
		Email:        email,
		Name:         "Seeded",
		PasswordHash: string(hash),
		Role:         role,
		Status:       status,
	}
	h.repo.nextID++
	h.repo.byID[user.ID] = user
	return user
}

func (h *authHarness) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	sess, err := h.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	h.router.ServeHTTP(res, req)
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "sec@amparo.local", "correcthorse", authz.RoleSecretary, authz.StatusApproved)

	res, sess := h.do(t, http.MethodPost, "/auth/login",
		`{"email":"sec@amparo.local","password":"correcthorse"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "1", sess.User())
	assert.NotEmpty(t, h.records.created)

	var payload struct {
		Subject     *authz.Subject             `json:"subject"`
		Permissions map[string]map[string]bool `json:"permissions"`
		AnyManage   bool                       `json:"any_manage"`
		CSRFToken   string                     `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	require.NotNil(t, payload.Subject)
	assert.Equal(t, authz.RoleSecretary, payload.Subject.Role)
	assert.True(t, payload.Permissions["members"]["view"])
	assert.False(t, payload.Permissions["members"]["delete"])
	assert.True(t, payload.AnyManage)
	assert.NotEmpty(t, payload.CSRFToken)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "sec@amparo.local", "correcthorse", authz.RoleSecretary, authz.StatusApproved)

	res, sess := h.do(t, http.MethodPost, "/auth/login",
		`{"email":"sec@amparo.local","password":"wrongwrong"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Empty(t, sess.User())
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	h := newAuthHarness(t)
	res, _ := h.do(t, http.MethodPost, "/auth/login",
		`{"email":"ghost@amparo.local","password":"whatever123"}`)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginRejectedAccount(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "rej@amparo.local", "correcthorse", authz.RoleMember, authz.StatusRejected)

	res, _ := h.do(t, http.MethodPost, "/auth/login",
		`{"email":"rej@amparo.local","password":"correcthorse"}`)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestLoginPendingAccountAllowed(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "pend@amparo.local", "correcthorse", authz.RoleMember, authz.StatusPending)

	res, sess := h.do(t, http.MethodPost, "/auth/login",
		`{"email":"pend@amparo.local","password":"correcthorse"}`)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "1", sess.User())

	var payload struct {
		Permissions map[string]map[string]bool `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	// Pending subjects only hold the setup-exempt pairs.
	assert.True(t, payload.Permissions["notifications"]["view"])
	assert.False(t, payload.Permissions["dashboard"]["view"])
}

func TestRegister(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "root@amparo.local", "bootstrap1", authz.RoleAdmin, authz.StatusApproved)

	res, _ := h.do(t, http.MethodPost, "/auth/register",
		`{"name":"Novo","email":"novo@amparo.local","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	var created users.User
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	assert.Equal(t, authz.RoleMember, created.Role)
	assert.Equal(t, authz.StatusPending, created.Status)
	assert.NotContains(t, res.Body.String(), "password_hash")

	t.Run("duplicate email conflicts", func(t *testing.T) {
		res, _ := h.do(t, http.MethodPost, "/auth/register",
			`{"name":"Outro","email":"novo@amparo.local","password":"longenough"}`)
		assert.Equal(t, http.StatusConflict, res.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		res, _ := h.do(t, http.MethodPost, "/auth/register",
			`{"name":"Novo","email":"x@amparo.local","password":"short"}`)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		res, _ := h.do(t, http.MethodPost, "/auth/register",
			`{"name":"Novo","email":"not-an-email","password":"longenough"}`)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})
}

func TestRegisterFirstAccountIsAdmin(t *testing.T) {
	h := newAuthHarness(t)

	res, _ := h.do(t, http.MethodPost, "/auth/register",
		`{"name":"Founder","email":"founder@amparo.local","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, res.Code)

	var created users.User
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	assert.Equal(t, authz.RoleAdmin, created.Role)
	assert.Equal(t, authz.StatusApproved, created.Status)
}

func TestMeAnonymous(t *testing.T) {
	h := newAuthHarness(t)

	res, _ := h.do(t, http.MethodGet, "/auth/me", "")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Subject   *authz.Subject `json:"subject"`
		CSRFToken string         `json:"csrf_token"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Nil(t, payload.Subject)
	assert.NotEmpty(t, payload.CSRFToken)
}

func TestLogout(t *testing.T) {
	h := newAuthHarness(t)
	h.seedUser(t, "sec@amparo.local", "correcthorse", authz.RoleSecretary, authz.StatusApproved)

	_, sess := h.do(t, http.MethodPost, "/auth/login",
		`{"email":"sec@amparo.local","password":"correcthorse"}`)
	require.Equal(t, "1", sess.User())

	res, _ := h.do(t, http.MethodPost, "/auth/logout", "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.NotEmpty(t, h.records.deleted)
}
