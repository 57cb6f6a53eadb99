package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"flightshare/internal/domain/user"
	"flightshare/internal/handler/api"
	"flightshare/internal/handler/middleware"
	"flightshare/internal/pkg/config"
	"flightshare/internal/usecase/identity"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Auth  *api.AuthHandler
	Offer *api.OfferHandler
	Admin *api.AdminHandler
}

func NewRouter(engine *gin.Engine, cfg config.Config, logger *slog.Logger, h Handlers, principals *middleware.PrincipalMiddleware, limiter *middleware.RateLimiter) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, h, principals, limiter)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *slog.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h Handlers, principals *middleware.PrincipalMiddleware, limiter *middleware.RateLimiter) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	throttle := limiter.PerClient()

	apiGroup := engine.Group("/api")
	{
		auth := apiGroup.Group("/auth")
		{
			addRoutes(auth, []route{
				{Method: http.MethodPost, Path: "/login", Handler: h.Auth.Login, Mw: []gin.HandlerFunc{throttle}},
				{Method: http.MethodPost, Path: "/refresh", Handler: h.Auth.Refresh},
				{Method: http.MethodPost, Path: "/logout", Handler: h.Auth.Logout,
					Mw: []gin.HandlerFunc{principals.Resolve(identity.OpCurrentUser)}},
				{Method: http.MethodGet, Path: "/me", Handler: h.Auth.Me,
					Mw: []gin.HandlerFunc{principals.Resolve(identity.OpCurrentUser)}},
			})
		}

		offers := apiGroup.Group("/offers")
		{
			addRoutes(offers, []route{
				{Method: http.MethodGet, Path: "", Handler: h.Offer.ListOffers},
				{Method: http.MethodGet, Path: "/:id", Handler: h.Offer.GetOffer},
				{Method: http.MethodPost, Path: "", Handler: h.Offer.CreateOffer,
					Mw: []gin.HandlerFunc{principals.Resolve(identity.OpCreateOffer)}},
				{Method: http.MethodPost, Path: "/:id/accept", Handler: h.Offer.AcceptOffer,
					Mw: []gin.HandlerFunc{throttle, principals.Resolve(identity.OpAcceptOffer)}},
				{Method: http.MethodPost, Path: "/:id/settle", Handler: h.Offer.SettleOffer,
					Mw: []gin.HandlerFunc{throttle, principals.Resolve(identity.OpSettleOffer)}},
				{Method: http.MethodPost, Path: "/:id/cancel", Handler: h.Offer.CancelOffer,
					Mw: []gin.HandlerFunc{principals.Resolve(identity.OpCancelOffer)}},
				{Method: http.MethodGet, Path: "/:id/ledger", Handler: h.Offer.GetLedger,
					Mw: []gin.HandlerFunc{principals.Resolve(identity.OpViewLedger)}},
			})
		}

		admin := apiGroup.Group("/admin/offers")
		admin.Use(principals.Resolve(identity.OpAdministrator), principals.RequireRoleAtLeast(user.RoleAdmin))
		{
			addRoutes(admin, []route{
				{Method: http.MethodPost, Path: "/:id/reset", Handler: h.Admin.ResetOffer},
				{Method: http.MethodPost, Path: "/:id/reconcile", Handler: h.Admin.ReconcileOffer},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
