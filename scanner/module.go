package scanner

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Provide(
	NewConfig,
	newDevice,
	NewRelay,
)

// The bridge has no camera, measurements are taken by the mock device
func newDevice(logger *zap.SugaredLogger) Device {
	logger.Info("using mock scanner device")
	return NewMockDevice()
}
