package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/rulestore"
	"github.com/openpath/gatekeeper/internal/gatekeeper/service"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store/drivers/sqlite"
	"github.com/openpath/gatekeeper/internal/gatekeeper/tokenstore"
	"github.com/openpath/gatekeeper/pkg/jwtx"
)

const testAdminToken = "secret123"

type testEnv struct {
	router http.Handler
	store  store.Store
	tokens *service.TokenService
	roles  *service.RolesService
	users  *service.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	st.DB().SetMaxOpenConns(1)
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewHS256("router-test-secret", "gatekeeper-test")
	require.NoError(t, err)

	blacklist := tokenstore.NewMemory(slog.Default(), time.Hour)
	t.Cleanup(func() { _ = blacklist.Close() })

	rules := &rulestore.Service{Backend: rulestore.NewMemoryBackend()}

	tokens := &service.TokenService{
		Codec:      codec,
		Blacklist:  blacklist,
		Store:      st,
		Issuer:     "gatekeeper-test",
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
	users := &service.UserService{Store: st}
	roles := &service.RolesService{Store: st}
	workflow := &service.RequestWorkflow{Store: st, Rules: rules}

	router := NewRouter(RouterConfig{
		Logger:       slog.Default(),
		Store:        st,
		Tokens:       tokens,
		Users:        users,
		Roles:        roles,
		Workflow:     workflow,
		Rules:        rules,
		AdminToken:   testAdminToken,
		SharedSecret: "machine-secret",
	})

	return &testEnv{router: router, store: st, tokens: tokens, roles: roles, users: users}
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

// teacherToken registers a user, grants a teacher role and logs in.
func (e *testEnv) teacherToken(t *testing.T, username string, groups ...string) string {
	t.Helper()
	ctx := context.Background()

	user, err := e.users.Register(ctx, service.RegisterInput{
		Username: username,
		Password: "teacher-password",
	})
	require.NoError(t, err)

	_, err = e.roles.Assign(ctx, user.ID, domain.RoleTeacher, groups)
	require.NoError(t, err)

	pair, err := e.tokens.Login(ctx, username, "teacher-password")
	require.NoError(t, err)
	return pair.AccessToken
}

func TestRequestLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	// Student submits without any credentials.
	rec := env.do(t, "POST", "/v1/requests", "", map[string]any{
		"domain":          "Maths.Example.COM",
		"reason":          "homework",
		"requester_email": "kid@example.com",
		"group_id":        "year7",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	reqID := body["request"].(map[string]any)["id"].(string)
	require.Equal(t, "maths.example.com", body["request"].(map[string]any)["domain"])

	// Duplicate submission conflicts.
	rec = env.do(t, "POST", "/v1/requests", "", map[string]any{
		"domain":          "maths.example.com",
		"requester_email": "kid2@example.com",
		"group_id":        "year7",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "CONFLICT", decodeBody(t, rec)["code"])

	// Unauthenticated approval is refused.
	rec = env.do(t, "POST", "/v1/requests/"+reqID+"/approve", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A teacher outside the group is forbidden.
	outsider := env.teacherToken(t, "outsider", "year8")
	rec = env.do(t, "POST", "/v1/requests/"+reqID+"/approve", outsider, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, "FORBIDDEN", decodeBody(t, rec)["code"])

	// The legacy admin token carries wildcard scope.
	rec = env.do(t, "POST", "/v1/requests/"+reqID+"/approve", testAdminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body = decodeBody(t, rec)
	require.Equal(t, "approved", body["request"].(map[string]any)["status"])

	// Approving twice is a bad request, not a second rule write.
	rec = env.do(t, "POST", "/v1/requests/"+reqID+"/approve", testAdminToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "BAD_REQUEST", decodeBody(t, rec)["code"])

	// The export now carries the approved domain.
	req := httptest.NewRequest("GET", "/v1/rules/year7/export", nil)
	req.Header.Set("Authorization", "Bearer machine-secret")
	recExp := httptest.NewRecorder()
	env.router.ServeHTTP(recExp, req)
	require.Equal(t, http.StatusOK, recExp.Code)
	require.Equal(t, "maths.example.com\n", recExp.Body.String())
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "POST", "/v1/auth/register", "", map[string]any{
		"username": "alex",
		"password": "a strong password",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, "POST", "/v1/auth/login", "", map[string]any{
		"username": "alex",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "UNAUTHORIZED", decodeBody(t, rec)["code"])

	rec = env.do(t, "POST", "/v1/auth/login", "", map[string]any{
		"username": "alex",
		"password": "a strong password",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	access := body["access_token"].(string)
	refresh := body["refresh_token"].(string)

	// Rotate and confirm single use.
	rec = env.do(t, "POST", "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "POST", "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logout revokes the access token.
	rec = env.do(t, "POST", "/v1/auth/logout", access, map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/v1/requests", access, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnlyRoutes(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.teacherToken(t, "plainteacher", "year7")

	rec := env.do(t, "POST", "/v1/roles", teacher, map[string]any{
		"user_id": "whoever", "role": "teacher",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, "GET", "/v1/machines", teacher, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSharedSecretGuard(t *testing.T) {
	env := newTestEnv(t)

	machineReq := func(hostname string) *http.Request {
		return httptest.NewRequest("POST", "/v1/machines",
			bytes.NewReader([]byte(`{"hostname":"`+hostname+`"}`)))
	}

	t.Run("no credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, machineReq("lab-01"))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer secret", func(t *testing.T) {
		req := machineReq("lab-01")
		req.Header.Set("Authorization", "Bearer machine-secret")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong bearer secret", func(t *testing.T) {
		req := machineReq("lab-02")
		req.Header.Set("Authorization", "Bearer not-the-secret")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("legacy header", func(t *testing.T) {
		req := machineReq("lab-02")
		req.Header.Set("X-Shared-Secret", "machine-secret")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, "GET", "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, "GET", "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
