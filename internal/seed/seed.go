package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/config"
	userdomain "github.com/smallbiznis/milestone/internal/user/domain"
	"github.com/smallbiznis/milestone/internal/user/password"
	userrepo "github.com/smallbiznis/milestone/internal/user/repository"
	"gorm.io/gorm"
)

const defaultAdminName = "Administrator"

// EnsureAdmin creates the bootstrap operator account when no user exists
// yet. It reports whether a user was created.
func EnsureAdmin(ctx context.Context, db *gorm.DB, cfg config.Config, node *snowflake.Node) (bool, error) {
	if db == nil {
		return false, errors.New("seed database handle is required")
	}
	if node == nil {
		return false, errors.New("seed id generator is required")
	}

	username := strings.TrimSpace(cfg.BootstrapAdminUsername)
	if username == "" || cfg.BootstrapAdminPassword == "" {
		return false, nil
	}

	repo := userrepo.Provide()
	created := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := repo.Count(ctx, tx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		hashed, err := password.Hash(cfg.BootstrapAdminPassword)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user := userdomain.User{
			ID:           node.Generate(),
			Username:     username,
			Name:         defaultAdminName,
			PasswordHash: hashed,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := repo.Insert(ctx, tx, &user); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
