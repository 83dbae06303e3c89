package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"linklock/pkg/config"
	"linklock/pkg/db"
	"linklock/pkg/health"
	"linklock/pkg/logger"
	"linklock/pkg/redis"
	"linklock/pkg/server"
	"linklock/pkg/task"
	"linklock/services/analytics"
	"linklock/services/attribution"
	"linklock/services/catalog"
	"linklock/services/geo"
	"linklock/services/locker"
	"linklock/services/visit"
)

func main() {
	_ = godotenv.Load()

	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		fx.Provide(
			provideSnowflakeNode,
		),
		fx.Invoke(migrate),
		server.ProvideHTTPServer,
		health.Module,
		geo.Module,
		catalog.Module,
		locker.Module,
		analytics.Module,
		attribution.Module,
		visit.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&catalog.Task{},
		&locker.Locker{},
		&attribution.Account{},
		&attribution.RevenueEvent{},
		&analytics.Event{},
	)
}
