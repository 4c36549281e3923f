// AngelaMos | 2026
// bootstrap_test.go

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/nexxstore/storefront/internal/auth"
	"github.com/nexxstore/storefront/internal/config"
	"github.com/nexxstore/storefront/internal/core"
	"github.com/nexxstore/storefront/internal/user"
)

type stubAdminStore struct {
	findErr   error
	insertErr error
	inserted  *user.User
}

func (s *stubAdminStore) FindByEmail(context.Context, string) (*user.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return &user.User{ID: "existing"}, nil
}

func (s *stubAdminStore) Insert(_ context.Context, u *user.User) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	u.ID = "admin-1"
	s.inserted = u
	return nil
}

func TestEnsureAdmin(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.BootstrapConfig{
		AdminEmail:    "root@nexx.ru",
		AdminPhone:    "+70000000000",
		AdminPassword: "changeme",
		AdminName:     "Администратор",
	}
	lookupFailed := errors.New("connection reset")

	tests := []struct {
		name       string
		cfg        config.BootstrapConfig
		store      *stubAdminStore
		wantErr    error
		wantInsert bool
	}{
		{"disabled", config.BootstrapConfig{}, &stubAdminStore{findErr: core.ErrNotFound}, nil, false},
		{"already present", cfg, &stubAdminStore{}, nil, false},
		{"created", cfg, &stubAdminStore{findErr: core.ErrNotFound}, nil, true},
		{"lost insert race", cfg, &stubAdminStore{findErr: core.ErrNotFound, insertErr: core.ErrDuplicateKey}, nil, false},
		{"lookup failure", cfg, &stubAdminStore{findErr: lookupFailed}, lookupFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ensureAdmin(context.Background(), tt.store, tt.cfg, logger)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			if (tt.store.inserted != nil) != tt.wantInsert {
				t.Fatalf("inserted: got %v, want %v", tt.store.inserted != nil, tt.wantInsert)
			}
			if !tt.wantInsert {
				return
			}

			admin := tt.store.inserted
			if admin.Role != user.RoleAdmin || !admin.IsActive {
				t.Errorf("admin identity: %+v", admin)
			}
			if !admin.Permissions.Has(auth.PermSettingsManage) {
				t.Errorf("admin permissions: %v", admin.Permissions)
			}
			if ok, _ := core.VerifyPassword(cfg.AdminPassword, admin.PasswordHash); !ok {
				t.Error("stored hash does not verify the configured password")
			}
			if admin.Profile.Individual == nil || admin.Profile.Individual.FullName != cfg.AdminName {
				t.Errorf("admin profile: %+v", admin.Profile)
			}
		})
	}
}
