package router

import (
	"strings"
	"time"

	"github.com/ManuelReschke/ImmoFox/app/controllers"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/env"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") ||
				strings.HasPrefix(c.Path(), "/webhooks/") ||
				strings.HasPrefix(c.Path(), "/ws/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", loggedInMiddleware, controllers.HandleHome)
	group.Get("/suche", loggedInMiddleware, controllers.HandleSearch)
	group.Get("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Post("/login", loggedInMiddleware, controllers.HandleAuthLogin)
	group.Get("/register", loggedInMiddleware, controllers.HandleAuthRegister)
	group.Post("/register", loggedInMiddleware, controllers.HandleAuthRegister)

	// Public agent profiles
	group.Get("/makler/:id", loggedInMiddleware, controllers.HandleUserProfile)

	// Own account
	group.Get("/dashboard", middleware.RequireAuth, controllers.HandleUserDashboard)
	group.Get("/user/settings", middleware.RequireAuth, controllers.HandleUserSettings)
	group.Post("/user/settings", middleware.RequireAuth, controllers.HandleUserSettings)
	group.Post("/user/settings/api-key", middleware.RequireAuth, controllers.HandleUserAPIKeyIssue)
	group.Post("/user/settings/api-key/revoke", middleware.RequireAuth, controllers.HandleUserAPIKeyRevoke)

	// Listings
	group.Get("/properties", middleware.RequireAuth, controllers.HandlePropertyList)
	group.Get("/properties/new", middleware.RequireAuth, controllers.HandlePropertyNew)
	group.Post("/properties/new", middleware.RequireAuth, controllers.HandlePropertyNew)
	group.Get("/properties/:uuid/edit", middleware.RequireAuth, controllers.HandlePropertyEdit)
	group.Post("/properties/:uuid/edit", middleware.RequireAuth, controllers.HandlePropertyEdit)
	group.Post("/properties/:uuid/publish", middleware.RequireAuth, controllers.HandlePropertyPublish)
	group.Post("/properties/:uuid/status", middleware.RequireAuth, controllers.HandlePropertyStatus)
	group.Post("/properties/:uuid/feature", middleware.RequireAuth, controllers.HandlePropertyFeature)
	group.Post("/properties/:uuid/delete", middleware.RequireAuth, controllers.HandlePropertyDelete)
	// Foto-Upload antwortet mit JSON, daher 401 statt Redirect.
	group.Post("/properties/:uuid/photos", middleware.RequireAPISessionAuth, controllers.HandlePropertyPhotoUpload)

	// Favorites
	group.Get("/favorites", middleware.RequireAuth, controllers.HandleFavoritesList)
	group.Post("/favorites/:uuid", middleware.RequireAuth, controllers.HandleFavoriteToggle)

	// Messages
	group.Get("/messages", middleware.RequireAuth, controllers.HandleMessageInbox)
	group.Get("/messages/:uuid/:user_id", middleware.RequireAuth, controllers.HandleMessageThread)
	group.Post("/messages/:uuid", middleware.RequireAuth, controllers.HandleMessageSend)
	group.Post("/messages/:uuid/:user_id", middleware.RequireAuth, controllers.HandleMessageSend)

	// Billing
	group.Post("/billing/checkout", middleware.RequireAuth, controllers.HandleBillingCheckout)
	group.Post("/billing/portal", middleware.RequireAuth, controllers.HandleBillingPortal)
}
