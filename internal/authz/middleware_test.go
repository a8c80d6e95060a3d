package authz_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amparo-app/amparo/internal/authz"
	"github.com/amparo-app/amparo/internal/shared"
	_ "github.com/amparo-app/amparo/testing"
)

type guardRepo struct {
	subjects map[int64]*authz.Subject
	err      error
}

func (g *guardRepo) Subject(ctx context.Context, userID int64) (*authz.Subject, error) {
	if g.err != nil {
		return nil, g.err
	}
	subject, ok := g.subjects[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return subject, nil
}

func (g *guardRepo) SaveOverrides(ctx context.Context, userID int64, overrides authz.OverrideSet) error {
	return nil
}

type denialCounter struct {
	modules []string
}

func (d *denialCounter) CountDenial(module string) {
	d.modules = append(d.modules, module)
}

func newGuard(t *testing.T, repo authz.Repository) (authz.Guard, *denialCounter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := authz.NewService(repo, client, authz.NewEvaluator(authz.DefaultPolicy()), nil, time.Second, nil)
	counter := &denialCounter{}
	return authz.Guard{Service: svc, Denials: counter}, counter
}

func requestAs(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/members", nil)
	sess := &shared.Session{}
	if userID != 0 {
		sess.SetUser(strconv.FormatInt(userID, 10))
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestGuardRequire(t *testing.T) {
	repo := &guardRepo{subjects: map[int64]*authz.Subject{
		1: {ID: 1, Role: authz.RoleSecretary, Status: authz.StatusApproved},
		2: {ID: 2, Role: authz.RoleMember, Status: authz.StatusApproved},
		3: {ID: 3, Role: authz.RoleSecretary, Status: authz.StatusPending},
	}}
	guard, counter := newGuard(t, repo)

	var seen *authz.Subject
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authz.SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	protected := guard.Require(authz.ModuleMembers, authz.ActionView)(next)

	t.Run("anonymous gets 401", func(t *testing.T) {
		res := httptest.NewRecorder()
		protected.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/members", nil))
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("session without user gets 401", func(t *testing.T) {
		res := httptest.NewRecorder()
		protected.ServeHTTP(res, requestAs(0))
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("allowed role passes and sees subject", func(t *testing.T) {
		res := httptest.NewRecorder()
		protected.ServeHTTP(res, requestAs(1))
		assert.Equal(t, http.StatusOK, res.Code)
		require.NotNil(t, seen)
		assert.Equal(t, int64(1), seen.ID)
	})

	t.Run("role without grant gets 403", func(t *testing.T) {
		res := httptest.NewRecorder()
		protected.ServeHTTP(res, requestAs(2))
		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.Contains(t, counter.modules, "members")
	})

	t.Run("pending account gets 403", func(t *testing.T) {
		res := httptest.NewRecorder()
		protected.ServeHTTP(res, requestAs(3))
		assert.Equal(t, http.StatusForbidden, res.Code)
	})

	t.Run("unknown user gets 403 not 500", func(t *testing.T) {
		res := httptest.NewRecorder()
		protected.ServeHTTP(res, requestAs(99))
		assert.Equal(t, http.StatusForbidden, res.Code)
	})
}

func TestGuardRequireAnyManage(t *testing.T) {
	repo := &guardRepo{subjects: map[int64]*authz.Subject{
		1: {ID: 1, Role: authz.RoleProfessional, Status: authz.StatusApproved},
		2: {ID: 2, Role: authz.RoleVisitor, Status: authz.StatusApproved},
	}}
	guard, counter := newGuard(t, repo)
	protected := guard.RequireAnyManage()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	res := httptest.NewRecorder()
	protected.ServeHTTP(res, requestAs(1))
	assert.Equal(t, http.StatusOK, res.Code)

	res = httptest.NewRecorder()
	protected.ServeHTTP(res, requestAs(2))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Contains(t, counter.modules, "admin")
}

func TestGuardLoadFailureDenies(t *testing.T) {
	guard, counter := newGuard(t, &guardRepo{err: context.DeadlineExceeded})
	protected := guard.Require(authz.ModuleMembers, authz.ActionView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	res := httptest.NewRecorder()
	protected.ServeHTTP(res, requestAs(1))
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, []string{"members"}, counter.modules)
}
