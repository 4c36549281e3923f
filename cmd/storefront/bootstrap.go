// AngelaMos | 2026
// bootstrap.go

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nexxstore/storefront/internal/auth"
	"github.com/nexxstore/storefront/internal/config"
	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/user"
)

type adminStore interface {
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	Insert(ctx context.Context, u *user.User) error
}

// ensureAdmin creates the configured admin account when it is missing.
func ensureAdmin(
	ctx context.Context,
	users adminStore,
	cfg config.BootstrapConfig,
	logger *slog.Logger,
) error {
	if cfg.AdminEmail == "" {
		return nil
	}

	_, err := users.FindByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	hash, err := core.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	admin := &user.User{
		Email:        cfg.AdminEmail,
		Phone:        cfg.AdminPhone,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		IsActive:     true,
		ProfileType:  user.ProfileIndividual,
		Profile: user.NewProfile(user.ProfileIndividual, user.ProfileFields{
			FullName: cfg.AdminName,
		}),
		Permissions: auth.PermissionsFor(user.RoleAdmin),
	}

	if err := users.Insert(ctx, admin); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	logger.Info("admin account created", "user_id", admin.ID, "email", admin.Email)
	return nil
}
