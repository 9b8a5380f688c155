package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openpath/gatekeeper/internal/gatekeeper/domain"
	"github.com/openpath/gatekeeper/internal/gatekeeper/store"
	"github.com/openpath/gatekeeper/pkg/cryptox"
	"github.com/openpath/gatekeeper/pkg/idx"
	"github.com/openpath/gatekeeper/pkg/slogx"
)

// UserService handles account registration. Every new account starts as a
// student; admin and teacher roles are granted separately.
type UserService struct {
	Store store.Store
}

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Username    string
	Password    string
	DisplayName string
	Email       string
}

func (in *RegisterInput) validate() error {
	in.Username = strings.TrimSpace(strings.ToLower(in.Username))
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	switch {
	case len(in.Username) < 3 || len(in.Username) > 64:
		return fmt.Errorf("%w: username must be 3-64 characters", ErrValidation)
	case len(in.Password) < 8:
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	case in.Email != "" && !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	if in.DisplayName == "" {
		in.DisplayName = in.Username
	}
	return nil
}

// Register creates the account and its initial student role in one
// transaction. A taken username surfaces as ErrConflict.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	if err := in.validate(); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			return err
		}
		return tx.Roles().CreateRole(ctx, domain.Role{
			ID:        idx.New().String(),
			UserID:    user.ID,
			Kind:      domain.RoleStudent,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, fmt.Errorf("%w: username taken", ErrConflict)
		}
		return domain.User{}, err
	}

	slogx.FromContext(ctx).Info("user registered",
		"user_id", user.ID,
		"username", user.Username,
	)
	return user, nil
}
