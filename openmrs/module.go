package openmrs

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Provide(
	NewConfig,
	NewCredentials,
	newRegistry,
	func(registry *Registry) ClientProvider { return registry },
)

func newRegistry(config Config, logger *zap.SugaredLogger) *Registry {
	return NewRegistry(config, logger)
}
