// Command nursery-api serves the nursery storefront API.
package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	nursery "github.com/xenking/online-nursery/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		lg = lg.Named(nursery.ServiceName)

		cfg, err := nursery.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		lg.Info("Configuration loaded", cfg.Summary()...)
		return nursery.Run(ctx, lg, m, cfg)
	})
}
