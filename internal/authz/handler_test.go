package authz_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/shared"
	_ "github.com/amparo-app/amparo/testing"
)

type permRepo struct {
	subjects map[int64]*authz.Subject
	saved    map[int64]authz.OverrideSet
}

func (p *permRepo) Subject(ctx context.Context, userID int64) (*authz.Subject, error) {
	subject, ok := p.subjects[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return subject, nil
}

func (p *permRepo) SaveOverrides(ctx context.Context, userID int64, overrides authz.OverrideSet) error {
	if p.saved == nil {
		p.saved = make(map[int64]authz.OverrideSet)
	}
	p.saved[userID] = overrides
	return nil
}

func newPermissionsRouter(t *testing.T, repo *permRepo) http.Handler {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := authz.NewService(repo, client, authz.NewEvaluator(authz.DefaultPolicy()), nil, time.Second, nil)
	guard := authz.Guard{Service: svc}
	handler := authz.NewHandler(nil, svc, guard)

	r := chi.NewRouter()
	r.Route("/permissions", handler.MountRoutes)
	return r
}

func doAs(t *testing.T, router http.Handler, userID int64, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	sess := &shared.Session{}
	sess.SetUser(strconv.FormatInt(userID, 10))
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestShowPolicy(t *testing.T) {
	repo := &permRepo{subjects: map[int64]*authz.Subject{
		1: {ID: 1, Role: authz.RoleAdmin, Status: authz.StatusApproved},
		2: {ID: 2, Role: authz.RoleMember, Status: authz.StatusApproved},
	}}
	router := newPermissionsRouter(t, repo)

	res := doAs(t, router, 1, http.MethodGet, "/permissions/policy", "")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Modules []string `json:"modules"`
		Actions []string `json:"actions"`
		Exempt  []string `json:"exempt"`
		Roles   []string `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.Len(t, payload.Modules, 22)
	assert.Equal(t, []string{"view", "create", "update", "delete", "manage"}, payload.Actions)
	assert.ElementsMatch(t, []string{"users.create", "notifications.view"}, payload.Exempt)

	// Members have no permissions.view grant.
	res = doAs(t, router, 2, http.MethodGet, "/permissions/policy", "")
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestShowUserPermissions(t *testing.T) {
	repo := &permRepo{subjects: map[int64]*authz.Subject{
		1: {ID: 1, Role: authz.RoleAdmin, Status: authz.StatusApproved},
		5: {ID: 5, Role: authz.RoleMember, Status: authz.StatusApproved, Overrides: authz.OverrideSet{
			{Module: authz.ModuleForum, Action: authz.ActionManage}: true,
		}},
	}}
	router := newPermissionsRouter(t, repo)

	res := doAs(t, router, 1, http.MethodGet, "/permissions/users/5", "")
	require.Equal(t, http.StatusOK, res.Code)

	var payload struct {
		Overrides map[string]bool            `json:"overrides"`
		Effective map[string]map[string]bool `json:"effective"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &payload))
	assert.True(t, payload.Overrides["forum.manage"])
	assert.True(t, payload.Effective["forum"]["view"], "manage override implies view")
	assert.False(t, payload.Effective["forum"]["delete"], "manage never implies delete")
	assert.True(t, payload.Effective["dashboard"]["view"], "role default present in matrix")

	res = doAs(t, router, 1, http.MethodGet, "/permissions/users/404", "")
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = doAs(t, router, 1, http.MethodGet, "/permissions/users/nope", "")
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestSetUserOverrides(t *testing.T) {
	repo := &permRepo{subjects: map[int64]*authz.Subject{
		1: {ID: 1, Role: authz.RoleAdmin, Status: authz.StatusApproved},
		5: {ID: 5, Role: authz.RoleMember, Status: authz.StatusApproved},
	}}
	router := newPermissionsRouter(t, repo)

	res := doAs(t, router, 1, http.MethodPut, "/permissions/users/5",
		`{"grants":{"forum.manage":true,"events.delete":false}}`)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, repo.saved, int64(5))
	assert.True(t, repo.saved[5][authz.Permission{Module: authz.ModuleForum, Action: authz.ActionManage}])

	t.Run("unknown permission key rejected", func(t *testing.T) {
		res := doAs(t, router, 1, http.MethodPut, "/permissions/users/5",
			`{"grants":{"warpcore.eject":true}}`)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		res := doAs(t, router, 1, http.MethodPut, "/permissions/users/5", `{"grants":`)
		assert.Equal(t, http.StatusBadRequest, res.Code)
	})

	t.Run("non admin denied", func(t *testing.T) {
		res := doAs(t, router, 5, http.MethodPut, "/permissions/users/5",
			`{"grants":{"forum.view":true}}`)
		assert.Equal(t, http.StatusForbidden, res.Code)
	})
}
