package app

import (
	"context"
	"errors"
	"net"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startHTTPServer(components Components) {
	components.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			listener, err := net.Listen("tcp", components.HTTPServer.Addr)
			if err != nil {
				return err
			}
			components.Logger.Infow("starting http server", "addr", listener.Addr().String())

			go func() {
				if err := components.HTTPServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
					components.Logger.Errorw("http serve error", zap.Error(err))
					_ = components.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return components.HTTPServer.Shutdown(ctx)
		},
	})
}
