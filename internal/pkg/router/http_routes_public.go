package router

import (
	"github.com/ManuelReschke/ImmoFox/app/controllers"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/middleware"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/realtime"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	gothfiber "github.com/shareed2k/goth_fiber"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Static pages
	app.Get("/about", loggedInMiddleware, controllers.HandleAbout)
	app.Get("/preise", loggedInMiddleware, controllers.HandlePricing)

	// Public expose pages via short share links
	app.Get("/expose/:sharelink", loggedInMiddleware, controllers.HandleExpose)

	// Public page display
	app.Get("/page/:slug", loggedInMiddleware, controllers.HandlePage)

	// Account activation from the mail link
	app.Get("/activate/:token", loggedInMiddleware, controllers.HandleAuthActivate)

	// Auth
	app.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)

	// Social OAuth
	app.Get("/auth/:provider", gothfiber.BeginAuthHandler)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Billing provider webhooks (no CSRF, signature-verified in controller)
	app.Post("/webhooks/stripe", controllers.HandleStripeWebhook)

	// Live listing updates over websocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/properties", websocket.New(func(conn *websocket.Conn) {
		hub := realtime.GetHub()
		if hub == nil {
			_ = conn.Close()
			return
		}
		hub.Register(conn)
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}
