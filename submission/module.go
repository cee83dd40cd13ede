package submission

import (
	"context"

	"github.com/go-redis/redis/v8"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/openmrs"
)

var Module = fx.Provide(
	NewConfig,
	NewGuard,
	newOrchestrator,
)

func newOrchestrator(config Config, clients openmrs.ClientProvider, guard Guard, logger *zap.SugaredLogger) Submitter {
	return NewOrchestrator(config, clients, guard, logger)
}

// NewGuard returns a redis backed guard when a redis address is configured, otherwise the guard is
// local to the process
func NewGuard(config Config, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) Guard {
	if config.GuardRedisAddr == "" {
		logger.Info("using in-memory submission guard")
		return NewMemoryGuard()
	}

	guard := NewRedisGuard(redis.NewClient(&redis.Options{Addr: config.GuardRedisAddr}), config.GuardTTL, logger)
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return guard.Ping(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return guard.Close()
		},
	})

	logger.Infow("using redis submission guard", "addr", config.GuardRedisAddr)
	return guard
}
