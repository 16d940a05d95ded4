package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jlndre/Capstone-eLife/internal/api/http/handlers"
	"github.com/Jlndre/Capstone-eLife/internal/auth"
	"github.com/Jlndre/Capstone-eLife/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Verification   *handlers.VerificationHandler
	Certificates   *handlers.CertificatesHandler
	Quarters       *handlers.QuartersHandler
	AuthMiddleware *auth.AuthMiddleware
	Gatherer       prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	app.Post("/auth/login", cfg.Auth.Login)

	pensioner := auth.RequireRole(domain.RolePensioner)

	verification := app.Group("/verification", cfg.AuthMiddleware.Handle)
	verification.Post("/document", pensioner, cfg.Verification.Document)
	verification.Post("/live", pensioner, cfg.Verification.Live)
	verification.Get("/submissions", auth.RequireAnyRole(), cfg.Verification.Submissions)

	certificates := app.Group("/certificates", cfg.AuthMiddleware.Handle)
	certificates.Post("/", pensioner, cfg.Certificates.Issue)
	certificates.Get("/", auth.RequireAnyRole(), cfg.Certificates.List)
	certificates.Get("/:id", auth.RequireAnyRole(), cfg.Certificates.Get)
	certificates.Get("/:id/verify", auth.RequireAnyRole(), cfg.Certificates.Verify)

	quarters := app.Group("/quarters", cfg.AuthMiddleware.Handle)
	quarters.Get("/", auth.RequireAnyRole(), cfg.Quarters.List)
}
