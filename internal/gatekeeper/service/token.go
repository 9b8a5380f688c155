package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/internal/gatekeeper/tokenstore"
	"github.com/openpath/gatekeeper/pkg/cryptox"
	"github.com/openpath/gatekeeper/pkg/jwtx"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// TokenCodec is the signing and verification surface the service needs;
// *jwtx.HS256 satisfies it.
type TokenCodec interface {
	jwtx.Signer
	jwtx.Verifier
}

// TokenService issues, verifies and revokes the signed token pairs. The
// blacklist is injected; nothing here cares whether it is the in-process
// store or redis.
type TokenService struct {
	Codec      TokenCodec
	Blacklist  tokenstore.Store
	Store      store.Store
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Login verifies credentials and issues a token pair carrying the user's
// current active roles.
func (s *TokenService) Login(ctx context.Context, username, password string) (domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidCredentials
		}
		return domain.TokenPair{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login password verification failed", "username", username)
		return domain.TokenPair{}, ErrInvalidCredentials
	}

	roles, err := s.Store.Roles().ListActiveRolesByUser(ctx, user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return s.Issue(user, roles)
}

// Issue signs an access/refresh pair embedding the subject, display name
// and role grants.
func (s *TokenService) Issue(user domain.User, roles []domain.Role) (domain.TokenPair, error) {
	now := time.Now().UTC()
	roleClaims := roleClaimsFrom(roles)

	access, err := s.Codec.Sign(jwtx.NewClaims(
		jwtx.UseAccess, user.ID, user.DisplayName, roleClaims, s.AccessTTL, s.Issuer, now))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.Codec.Sign(jwtx.NewClaims(
		jwtx.UseRefresh, user.ID, user.DisplayName, roleClaims, s.RefreshTTL, s.Issuer, now))
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    now.Add(s.AccessTTL),
	}, nil
}

// VerifyAccess checks signature, expiry, use and the blacklist. Malformed
// input comes back as ErrInvalidToken, never a panic.
func (s *TokenService) VerifyAccess(ctx context.Context, token string) (jwtx.Claims, error) {
	return s.verify(ctx, token, jwtx.UseAccess)
}

// VerifyRefresh is VerifyAccess restricted to tokens issued as refresh
// tokens.
func (s *TokenService) VerifyRefresh(ctx context.Context, token string) (jwtx.Claims, error) {
	return s.verify(ctx, token, jwtx.UseRefresh)
}

func (s *TokenService) verify(ctx context.Context, token, use string) (jwtx.Claims, error) {
	claims, err := s.Codec.Verify(token)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if err := claims.ValidateUse(use); err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	revoked, err := s.Blacklist.Contains(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		// Cannot prove the token is live; fail closed.
		return jwtx.Claims{}, fmt.Errorf("blacklist lookup: %w", err)
	}
	if revoked {
		return jwtx.Claims{}, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	return claims, nil
}

// Refresh rotates a refresh token: the old token is verified, the user's
// *current* roles are re-read (role changes since issuance must take
// effect), the old token is blacklisted, and only then is the new pair
// returned. If blacklisting fails the whole refresh fails; a rotation that
// leaves the old token usable would defeat the single-use guarantee.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return domain.TokenPair{}, err
	}

	user, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrInvalidToken
		}
		return domain.TokenPair{}, err
	}

	roles, err := s.Store.Roles().ListActiveRolesByUser(ctx, user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	expiresAt := time.Now().UTC().Add(s.RefreshTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.Blacklist.Add(ctx, cryptox.FingerprintToken(refreshToken), expiresAt); err != nil {
		return domain.TokenPair{}, fmt.Errorf("blacklist old refresh token: %w", err)
	}

	return s.Issue(user, roles)
}

// Revoke unconditionally blacklists a token. Used for logout of both
// access and refresh tokens; an unparseable token is still added with a
// conservative expiry so revocation never fails open.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	expiresAt := time.Now().UTC().Add(s.RefreshTTL)
	if claims, err := s.Codec.Verify(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return s.Blacklist.Add(ctx, cryptox.FingerprintToken(token), expiresAt)
}

// PrincipalFromClaims converts verified access-token claims into the
// principal the authorization predicates operate on.
func PrincipalFromClaims(c jwtx.Claims) domain.Principal {
	grants := make([]domain.RoleGrant, 0, len(c.Roles))
	for _, rc := range c.Roles {
		grants = append(grants, domain.RoleGrant{
			Kind:     domain.RoleKind(rc.Role),
			GroupIDs: rc.Groups,
		})
	}
	return domain.NewUserPrincipal(c.Subject, c.Name, grants)
}

func roleClaimsFrom(roles []domain.Role) []jwtx.RoleClaim {
	claims := make([]jwtx.RoleClaim, 0, len(roles))
	for _, r := range roles {
		if !r.Active() {
			continue
		}
		grant := r.Grant()
		claims = append(claims, jwtx.RoleClaim{
			Role:   string(grant.Kind),
			Groups: grant.GroupIDs,
		})
	}
	return claims
}
