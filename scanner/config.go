package scanner

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey             string            `envconfig:"VITALS_SCANNER_API_KEY"`
	UserID             string            `envconfig:"VITALS_SCANNER_USER_ID"`
	MeasurementPreset  MeasurementPreset `envconfig:"VITALS_SCANNER_MEASUREMENT_PRESET" default:"thirty_seconds_unvalidated"`
	InitAttempts       uint              `envconfig:"VITALS_SCANNER_INIT_ATTEMPTS" default:"3"`
	InitDelay          time.Duration     `envconfig:"VITALS_SCANNER_INIT_DELAY" default:"1s"`
	MeasurementTimeout time.Duration     `envconfig:"VITALS_SCANNER_MEASUREMENT_TIMEOUT" default:"2m"`
}

func NewConfig() (Config, error) {
	cfg := Config{}
	err := envconfig.Process("", &cfg)
	return cfg, err
}
