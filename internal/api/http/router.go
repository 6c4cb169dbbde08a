package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lethalgem/accountability-app/internal/api/http/handlers"
	"github.com/lethalgem/accountability-app/internal/auth"
	"github.com/lethalgem/accountability-app/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Proposals      *handlers.ProposalsHandler
	Ledger         *handlers.LedgerHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	proposals := api.Group("/proposals", cfg.AuthMiddleware.Handle)
	proposals.Get("/", cfg.Proposals.List)
	proposals.Post("/", cfg.Proposals.Create)
	proposals.Get("/:id", cfg.Proposals.Get)
	for _, transition := range []domain.Transition{
		domain.TransitionAccept,
		domain.TransitionReject,
		domain.TransitionComplete,
		domain.TransitionVerify,
		domain.TransitionFail,
		domain.TransitionOverride,
	} {
		proposals.Post("/:id/"+string(transition), cfg.Proposals.Transition(transition))
	}

	ledger := api.Group("/ledger", cfg.AuthMiddleware.Handle)
	ledger.Get("/", cfg.Ledger.Entries)
	ledger.Get("/balance", cfg.Ledger.Balance)
}
