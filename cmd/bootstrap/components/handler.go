package components

import (
	"flightshare/internal/handler"
	"flightshare/internal/handler/api"
	"flightshare/internal/handler/dto/request"
	"flightshare/internal/handler/middleware"
	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/jwt"
	"flightshare/internal/usecase/identity"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		func(s *jwt.Service) api.TokenLifetimes { return s },
		api.NewAuthHandler,
		api.NewOfferHandler,
		api.NewAdminHandler,
		NewPrincipalMiddleware,
		func(cfg config.Config) (*middleware.RateLimiter, error) {
			return middleware.NewRateLimiter(cfg.RateLimit)
		},
		func(auth *api.AuthHandler, offer *api.OfferHandler, admin *api.AdminHandler) handler.Handlers {
			return handler.Handlers{Auth: auth, Offer: offer, Admin: admin}
		},
	),
	fx.Invoke(
		request.RegisterValidators,
		handler.NewRouter,
	),
)

func NewPrincipalMiddleware(cfg config.Config, resolver *identity.Resolver) *middleware.PrincipalMiddleware {
	return middleware.NewPrincipalMiddleware(resolver, cfg.Identity.AllowHints)
}
