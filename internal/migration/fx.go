package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/config"
	"github.com/smallbiznis/milestone/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if err := Migrate(conn); err != nil {
			return err
		}

		created, err := seed.EnsureAdmin(context.Background(), conn, cfg, node)
		if err != nil {
			return err
		}
		if created {
			log.Warn("bootstrap admin created, change its password",
				zap.String("username", cfg.BootstrapAdminUsername),
			)
		}
		return nil
	}),
)
