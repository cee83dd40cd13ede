package app

import (
	"net/http"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/openmrs"
	"github.com/tidepool-org/vitals-bridge/scanner"
	"github.com/tidepool-org/vitals-bridge/submission"
)

type Config struct {
	HTTPAddr          string        `envconfig:"VITALS_HTTP_ADDR" default:":8080"`
	ReadHeaderTimeout time.Duration `envconfig:"VITALS_HTTP_READ_HEADER_TIMEOUT" default:"10s"`
}

func configProvider() (Config, error) {
	cfg := Config{}
	err := envconfig.Process("", &cfg)
	return cfg, err
}

func handlerProvider(credentials openmrs.Credentials, registry *openmrs.Registry, submitter submission.Submitter, relay *scanner.Relay, logger *zap.SugaredLogger) *Handler {
	return NewHandler(credentials, registry, submitter, relay, logger)
}

func httpServerProvider(config Config, handler *Handler) *http.Server {
	return &http.Server{
		Addr:              config.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}
}
