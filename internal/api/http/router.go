package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Leads          *handlers.LeadsHandler
	Clients        *handlers.ClientsHandler
	Products       *handlers.ProductsHandler
	Claims         *handlers.ClaimsHandler
	Dashboard      *handlers.DashboardHandler
	Portal         *handlers.PortalHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Coarse role gates live here; ownership
// rules are enforced again inside the services.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	authenticated := cfg.AuthMiddleware.Handle

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", authenticated, cfg.Auth.Logout)
	authGroup.Get("/me", authenticated, cfg.Auth.Me)
	authGroup.Put("/change-password", authenticated, cfg.Auth.ChangePassword)

	users := api.Group("/users", authenticated)
	users.Get("/assignable", auth.RequireStaff(), cfg.Users.Assignable)
	users.Use(auth.RequireAdmin())
	users.Get("/", cfg.Users.List)
	users.Post("/", cfg.Users.Create)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)
	users.Patch("/:id/toggle-status", cfg.Users.ToggleStatus)
	users.Post("/:id/reset-password", cfg.Users.ResetPassword)

	leads := api.Group("/leads", authenticated, auth.RequireStaff())
	leads.Get("/", cfg.Leads.List)
	leads.Get("/stats", cfg.Leads.Stats)
	leads.Get("/sources", cfg.Leads.Sources)
	leads.Post("/", cfg.Leads.Create)
	leads.Get("/:id", cfg.Leads.Get)
	leads.Put("/:id", cfg.Leads.Update)
	leads.Delete("/:id", auth.RequireManager(), cfg.Leads.Delete)
	leads.Patch("/:id/status", cfg.Leads.UpdateStatus)
	leads.Patch("/:id/assign", auth.RequireManager(), cfg.Leads.Assign)
	leads.Post("/:id/convert", auth.RequireManager(), cfg.Leads.Convert)

	clients := api.Group("/clients", authenticated, auth.RequireStaff())
	clients.Get("/", cfg.Clients.List)
	clients.Get("/income-report", auth.RequireManager(), cfg.Clients.IncomeReport)
	clients.Post("/", auth.RequireManager(), cfg.Clients.Create)
	clients.Get("/:id", cfg.Clients.Get)
	clients.Put("/:id", auth.RequireManager(), cfg.Clients.Update)
	clients.Delete("/:id", auth.RequireAdmin(), cfg.Clients.Delete)
	clients.Get("/:id/income", auth.RequireManager(), cfg.Clients.Income)
	clients.Post("/:id/products", auth.RequireManager(), cfg.Clients.AddProduct)
	clients.Put("/:id/products/:productId", auth.RequireManager(), cfg.Clients.UpdateProduct)
	clients.Delete("/:id/products/:productId", auth.RequireManager(), cfg.Clients.RemoveProduct)
	clients.Post("/:id/create-portal-account", auth.RequireAdmin(), cfg.Clients.CreatePortalAccount)

	products := api.Group("/products", authenticated, auth.RequireStaff())
	products.Get("/", cfg.Products.List)
	products.Get("/active", cfg.Products.Active)
	products.Post("/", auth.RequireAdmin(), cfg.Products.Create)
	products.Get("/:id", cfg.Products.Get)
	products.Get("/:id/stats", cfg.Products.Stats)
	products.Put("/:id", auth.RequireAdmin(), cfg.Products.Update)
	products.Delete("/:id", auth.RequireAdmin(), cfg.Products.Delete)

	claims := api.Group("/claims", authenticated, auth.RequireStaff())
	claims.Get("/", cfg.Claims.List)
	claims.Get("/stats", cfg.Claims.Stats)
	claims.Post("/", cfg.Claims.Create)
	claims.Get("/:id", cfg.Claims.Get)
	claims.Put("/:id", cfg.Claims.Update)
	claims.Delete("/:id", auth.RequireAdmin(), cfg.Claims.Delete)
	claims.Patch("/:id/status", cfg.Claims.UpdateStatus)
	claims.Patch("/:id/assign", auth.RequireManager(), cfg.Claims.Assign)
	claims.Post("/:id/attachments", cfg.Claims.AddAttachment)
	claims.Get("/:id/attachments/:attachmentId", cfg.Claims.DownloadAttachment)
	claims.Delete("/:id/attachments/:attachmentId", auth.RequireManager(), cfg.Claims.DeleteAttachment)

	dashboard := api.Group("/dashboard", authenticated)
	dashboard.Get("/", cfg.Dashboard.Get)
	dashboard.Get("/admin", auth.RequireAdmin(), cfg.Dashboard.Admin)
	dashboard.Get("/supervisor", auth.RequireManager(), cfg.Dashboard.Supervisor)
	dashboard.Get("/operator", auth.RequireStaff(), cfg.Dashboard.Operator)
	dashboard.Get("/client", auth.RequireClientPortal(), cfg.Dashboard.Client)

	portal := api.Group("/portal", authenticated, auth.RequireClientPortal())
	portal.Get("/dashboard", cfg.Portal.Dashboard)
	portal.Get("/profile", cfg.Portal.Profile)
	portal.Put("/profile", cfg.Portal.UpdateProfile)
	portal.Get("/subscriptions", cfg.Portal.Subscriptions)
	portal.Get("/claims", cfg.Portal.Claims)
	portal.Post("/claims", cfg.Portal.CreateClaim)
	portal.Get("/claims/:id", cfg.Portal.Claim)
	portal.Post("/claims/:id/attachments", cfg.Portal.AddAttachment)
	portal.Get("/claims/:id/attachments/:attachmentId", cfg.Portal.DownloadAttachment)
}
