package service

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/rulestore"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store/drivers/sqlite"
	"github.com/openpath/gatekeeper/internal/gatekeeper/tokenstore"
	"github.com/openpath/gatekeeper/pkg/cryptox"
	"github.com/openpath/gatekeeper/pkg/idx"
	"github.com/openpath/gatekeeper/pkg/jwtx"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	// The pool would otherwise hand each connection its own empty
	// in-memory database.
	st.DB().SetMaxOpenConns(1)

	require.NoError(t, st.ApplyMigrations())
	return st
}

func newTestTokenService(t *testing.T, st store.Store) *TokenService {
	t.Helper()

	codec, err := jwtx.NewHS256("test-signing-secret", "gatekeeper-test")
	require.NoError(t, err)

	blacklist := tokenstore.NewMemory(slog.Default(), time.Hour)
	t.Cleanup(func() { _ = blacklist.Close() })

	return &TokenService{
		Codec:      codec,
		Blacklist:  blacklist,
		Store:      st,
		Issuer:     "gatekeeper-test",
		AccessTTL:  jwtx.DefaultAccessTokenTTL,
		RefreshTTL: jwtx.DefaultRefreshTokenTTL,
	}
}

var seededUsers int

func seedUser(t *testing.T, st store.Store, password string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	seededUsers++
	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     fmt.Sprintf("user%d", seededUsers),
		DisplayName:  "Test User",
		Email:        fmt.Sprintf("user%d@example.com", seededUsers),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func seedRole(t *testing.T, st store.Store, userID string, kind domain.RoleKind, groups ...string) domain.Role {
	t.Helper()

	now := time.Now().UTC()
	r := domain.Role{
		ID:        idx.New().String(),
		UserID:    userID,
		Kind:      kind,
		GroupIDs:  groups,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, st.Roles().CreateRole(context.Background(), r))
	return r
}

func seedPendingRequest(t *testing.T, st store.Store, dom, groupID string) domain.DomainRequest {
	t.Helper()

	req := domain.DomainRequest{
		ID:             idx.New().String(),
		Domain:         dom,
		Reason:         "needed for class",
		RequesterEmail: "student@example.com",
		GroupID:        groupID,
		Priority:       domain.PriorityNormal,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, st.Requests().CreateRequest(context.Background(), req))
	return req
}

func newTestWorkflow(t *testing.T, st store.Store) (*RequestWorkflow, *rulestore.Service) {
	t.Helper()

	rules := &rulestore.Service{Backend: rulestore.NewMemoryBackend()}
	return &RequestWorkflow{Store: st, Rules: rules}, rules
}

func teacherPrincipal(groups ...string) domain.Principal {
	return domain.NewUserPrincipal(idx.New().String(), "Teacher", []domain.RoleGrant{
		{Kind: domain.RoleTeacher, GroupIDs: groups},
	})
}

func adminPrincipal() domain.Principal {
	return domain.NewUserPrincipal(idx.New().String(), "Admin", []domain.RoleGrant{
		{Kind: domain.RoleAdmin},
	})
}
