package app

import (
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals-bridge/forwarder"
	"github.com/tidepool-org/vitals-bridge/openmrs"
	"github.com/tidepool-org/vitals-bridge/scanner"
	"github.com/tidepool-org/vitals-bridge/submission"
)

var dependencies = fx.Provide(
	loggerProvider,
	configProvider,
	handlerProvider,
	httpServerProvider,
)

var Modules = []fx.Option{
	dependencies,
	openmrs.Module,
	submission.Module,
	forwarder.Module,
	scanner.Module,
}

var Invokes = fx.Invoke(
	startHTTPServer,
)

func New() *fx.App {
	return fx.New(append(Modules, Invokes)...)
}

type Components struct {
	fx.In

	HTTPServer *http.Server
	Handler    *Handler
	Logger     *zap.SugaredLogger
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
}
