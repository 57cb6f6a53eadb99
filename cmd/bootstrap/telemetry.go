package bootstrap

import (
	"context"

	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/telemetry"

	"go.uber.org/fx"
)

var TelemetryModule = fx.Module("telemetry",
	fx.Provide(
		telemetry.NewInstruments,
	),
	fx.Invoke(SetupTelemetry),
)

// SetupTelemetry installs the trace and metric providers; both are flushed on stop.
func SetupTelemetry(lc fx.Lifecycle, cfg config.Config) error {
	shutdown, err := telemetry.Setup(context.Background(), cfg.Telemetry)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStop: shutdown,
	})
	return nil
}
