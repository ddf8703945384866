package router

import (
	"github.com/ManuelReschke/ImmoFox/app/controllers"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

func (h HttpRouter) registerAdminRoutes(app *fiber.App) {
	adminGroup := app.Group("/admin", middleware.RequireAdmin)
	adminGroup.Get("/", controllers.HandleAdminDashboard)
	adminGroup.Get("/users", controllers.HandleAdminUsers)
	adminGroup.Post("/users/status/:id", controllers.HandleAdminUserStatus)

	// Listing moderation
	adminGroup.Get("/properties", controllers.HandleAdminProperties)
	adminGroup.Post("/properties/takedown/:uuid", controllers.HandleAdminPropertyTakedown)

	// Static page management
	adminGroup.Get("/pages", controllers.HandleAdminPages)
	adminGroup.Post("/pages", controllers.HandleAdminPages)

	// Billing webhook ledger
	adminGroup.Get("/billing-events", controllers.HandleAdminBillingEvents)
}
