package bootstrap

import (
	"fmt"
	"log/slog"

	"flightshare/internal/infra/gateway"
	"flightshare/internal/pkg/config"
	"flightshare/internal/usecase/shared"

	"go.uber.org/fx"
)

var GatewayModule = fx.Module("gateway",
	fx.Provide(
		NewPaymentGateway,
	),
)

func NewPaymentGateway(cfg config.Config) (shared.PaymentGateway, error) {
	switch cfg.Gateway.Mode {
	case "sandbox", "":
		slog.Warn("using sandbox payment gateway; no funds move")
		return gateway.NewSandbox(), nil
	case "http":
		return gateway.NewHTTPGateway(cfg.Gateway)
	default:
		return nil, fmt.Errorf("unknown GATEWAY_MODE %q", cfg.Gateway.Mode)
	}
}
