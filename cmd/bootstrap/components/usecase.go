package components

import (
	"flightshare/internal/domain/offer"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/jwt"
	"flightshare/internal/usecase/commands"
	"flightshare/internal/usecase/identity"
	"flightshare/internal/usecase/queries"
	"flightshare/internal/usecase/shared"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseIdentityModule,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	NewSettlementPolicy,
	func(s *jwt.Service) commands.TokenIssuer { return s },
	func(s *jwt.Service) commands.ContinuationGrants { return s },
	func(s *jwt.Service) identity.TokenVerifier { return s },
)

var usecaseIdentityModule = fx.Module("usecase/identity",
	fx.Provide(
		NewPrincipalResolver,
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		NewGuestBridge,
		commands.NewReconciler,
		commands.NewAuthCommands,
		commands.NewOfferCommands,
		commands.NewAcceptanceCommands,
		commands.NewSettlementCommands,
		commands.NewAdminCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewUserQueries,
		queries.NewOfferQueries,
		queries.NewLedgerQueries,
	),
)

func NewSettlementPolicy(cfg config.Config) (commands.SettlementPolicy, error) {
	fees, err := offer.NewFeePolicy(cfg.Settlement.FeeRate.Decimal)
	if err != nil {
		return commands.SettlementPolicy{}, err
	}
	return commands.SettlementPolicy{
		Fees:              fees,
		PendingRetryAfter: cfg.Settlement.PendingRetryAfter,
		GatewayTimeout:    cfg.Gateway.Timeout,
	}, nil
}

// NewPrincipalResolver orders the chain session, bearer, then identity hint.
func NewPrincipalResolver(cfg config.Config, clk clock.Clock, tokens identity.TokenVerifier, users shared.UserRepository) *identity.Resolver {
	strategies := []identity.Strategy{
		identity.NewSessionStrategy(tokens),
		identity.NewBearerStrategy(tokens),
	}
	if cfg.Identity.AllowHints {
		strategies = append(strategies, identity.NewHintStrategy(tokens, users))
	}
	return identity.NewResolver(clk, cfg.Guest.ContinuationTTL, strategies...)
}

func NewGuestBridge(cfg config.Config, store shared.BridgeStore, grants commands.ContinuationGrants, clk clock.Clock) *commands.GuestBridge {
	return commands.NewGuestBridge(store, grants, clk, cfg.Guest.ContinuationTTL, cfg.Guest.ContinuationBaseURL)
}
