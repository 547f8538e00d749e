package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/milestone/internal/clock"
	"github.com/smallbiznis/milestone/internal/config"
	"github.com/smallbiznis/milestone/internal/lock"
	"github.com/smallbiznis/milestone/internal/migration"
	"github.com/smallbiznis/milestone/internal/observability"
	"github.com/smallbiznis/milestone/internal/scheduler"
	"github.com/smallbiznis/milestone/internal/server"
	"github.com/smallbiznis/milestone/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		lock.Module,
		migration.Module,

		// HTTP API and background status refresh
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
