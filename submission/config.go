package submission

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultVisitTypeUUID     = "7b0f5697-27e3-40c4-8bae-f4049abfb4ed"
	DefaultEncounterTypeUUID = "67a71486-1a54-468f-ac3e-7091a9a79584"
	DefaultMaxDelay          = time.Minute
)

type Config struct {
	MaxAttempts       int           `envconfig:"VITALS_SUBMISSION_MAX_ATTEMPTS" default:"3"`
	BaseDelay         time.Duration `envconfig:"VITALS_SUBMISSION_BASE_DELAY" default:"2s"`
	MaxDelay          time.Duration `envconfig:"VITALS_SUBMISSION_MAX_DELAY" default:"1m"`
	VisitEpsilon      time.Duration `envconfig:"VITALS_SUBMISSION_VISIT_EPSILON" default:"1s"`
	VisitTypeUUID     string        `envconfig:"VITALS_VISIT_TYPE_UUID" default:"7b0f5697-27e3-40c4-8bae-f4049abfb4ed"`
	EncounterTypeUUID string        `envconfig:"VITALS_ENCOUNTER_TYPE_UUID" default:"67a71486-1a54-468f-ac3e-7091a9a79584"`

	// The in-memory guard is used when no redis address is set
	GuardRedisAddr string        `envconfig:"VITALS_GUARD_REDIS_ADDR"`
	GuardTTL       time.Duration `envconfig:"VITALS_GUARD_TTL" default:"2m"`
}

func NewConfig() (Config, error) {
	cfg := Config{}
	err := envconfig.Process("", &cfg)
	return cfg, err
}

// DefaultConfig returns the configuration used when no environment variables are set
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       3,
		BaseDelay:         2 * time.Second,
		MaxDelay:          DefaultMaxDelay,
		VisitEpsilon:      time.Second,
		VisitTypeUUID:     DefaultVisitTypeUUID,
		EncounterTypeUUID: DefaultEncounterTypeUUID,
		GuardTTL:          2 * time.Minute,
	}
}
