package openmrs

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config of the OpenMRS client. LocalClockSkew is subtracted from the local clock when the server
// time is not available, so records are never timestamped in the server's future.
type Config struct {
	RequestTimeout    time.Duration `envconfig:"OPENMRS_REQUEST_TIMEOUT" default:"30s"`
	ServerTimeTimeout time.Duration `envconfig:"OPENMRS_SERVER_TIME_TIMEOUT" default:"5s"`
	LocalClockSkew    time.Duration `envconfig:"OPENMRS_LOCAL_CLOCK_SKEW" default:"5s"`
	VisitEpsilon      time.Duration `envconfig:"OPENMRS_VISIT_EPSILON" default:"1s"`
	RequestsPerSecond uint          `envconfig:"OPENMRS_REQUESTS_PER_SECOND" default:"20"`
}

func NewConfig() (Config, error) {
	cfg := Config{}
	err := envconfig.Process("", &cfg)
	return cfg, err
}

// Credentials identify the OpenMRS server and user a session is established for
type Credentials struct {
	BaseURL      string `envconfig:"OPENMRS_BASE_URL" default:"http://qmorrow.tojest.dev/openmrs"`
	Username     string `envconfig:"OPENMRS_USERNAME" required:"true"`
	Password     string `envconfig:"OPENMRS_PASSWORD" required:"true"`
	LocationUUID string `envconfig:"OPENMRS_LOCATION_UUID"`
}

func NewCredentials() (Credentials, error) {
	creds := Credentials{}
	err := envconfig.Process("", &creds)
	return creds, err
}

// Location returns the location visits and encounters are recorded at. An explicitly configured
// location takes precedence over the location of the matching server preset.
func (c Credentials) Location() string {
	if c.LocationUUID != "" {
		return c.LocationUUID
	}
	if server, ok := LookupServer(c.BaseURL); ok {
		return server.LocationUUID
	}
	return ""
}

func (c Credentials) normalizedBaseURL() string {
	return strings.TrimSuffix(c.BaseURL, "/")
}
