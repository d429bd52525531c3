package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/loan-backoffice/internal/api/http/handlers"
	"github.com/spec-kit/loan-backoffice/internal/auth"
	"github.com/spec-kit/loan-backoffice/internal/domain"
	"github.com/spec-kit/loan-backoffice/internal/observability"
)

const apiPrefix = "/api"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Users       *handlers.UsersHandler
	Proposals   *handlers.ProposalsHandler
	Backoffice  *handlers.BackofficeHandler
	Pages       *handlers.PagesHandler
	Gate        *auth.Gate
	Metrics     *observability.Metrics
	MetricsPath string
}

// RegisterRoutes wires HTTP routes. Every protected page and API section is
// registered behind the gate; the sign-in form and auth endpoints are open.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		app.Get(cfg.MetricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	registerPages(app, cfg)

	api := app.Group(apiPrefix)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/session", cfg.Gate.Authenticated(), cfg.Auth.Session)
	api.Get("/menu", cfg.Gate.Authenticated(), cfg.Auth.Menu)

	gated := cfg.Gate.API(apiPrefix)
	adminOnly := auth.RequireRoles(domain.RoleAdmin)
	staff := auth.RequireRoles(domain.RoleAdmin, domain.RoleSupport)

	users := api.Group(auth.RouteUsers, gated)
	users.Get("/", cfg.Users.List)
	users.Post("/", adminOnly, cfg.Users.Create)
	users.Get("/:id", cfg.Users.Get)
	users.Delete("/:id", adminOnly, cfg.Users.Delete)
	users.Post("/:id/upgrade-to-broker", adminOnly, cfg.Users.UpgradeToBroker)
	users.Put("/:id/settings", adminOnly, cfg.Users.UpdateSettings)

	brokers := api.Group(auth.RouteBrokers, gated)
	brokers.Get("/", cfg.Users.Brokers)

	proposals := api.Group(auth.RouteProposals, gated)
	proposals.Get("/", cfg.Proposals.List)
	proposals.Get("/:id", cfg.Proposals.Get)
	proposals.Patch("/:id/status", staff, cfg.Proposals.UpdateStatus)

	dashboard := api.Group(auth.RouteDashboard, gated)
	dashboard.Get("/summary", cfg.Backoffice.Summary)

	settings := api.Group(auth.RouteSettings, gated, adminOnly)
	settings.Get("/", cfg.Backoffice.GetSettings)
	settings.Put("/", cfg.Backoffice.UpdateSettings)

	logs := api.Group(auth.RouteLogs, gated, adminOnly)
	logs.Get("/", cfg.Backoffice.Logs)
	logs.Get("/activities", cfg.Backoffice.Activities)
}

func registerPages(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Pages.Root)
	app.Get(cfg.Gate.Policy().SignInPath(), cfg.Pages.SignIn)

	pageGate := cfg.Gate.Pages()
	for _, prefix := range cfg.Gate.Policy().ProtectedPrefixes() {
		app.Get(prefix, pageGate, cfg.Pages.Section)
		app.Get(prefix+"/*", pageGate, cfg.Pages.Section)
	}
}
