package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterHandlers attaches the public v1 endpoints to the given group.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)
	router.Get("/properties", s.GetProperties)
	router.Get("/properties/:uuid", func(c *fiber.Ctx) error {
		return s.GetProperty(c, c.Params("uuid"))
	})
}

// RegisterProtectedHandlers attaches the endpoints that require an API key.
// The caller is responsible for installing the key middleware on the group.
func RegisterProtectedHandlers(router fiber.Router, s *APIServer) {
	router.Get("/user/profile", s.GetUserProfile)
	router.Get("/user/properties", s.GetMyProperties)
	router.Get("/photos/:uuid/status", func(c *fiber.Ctx) error {
		return s.GetPhotoStatus(c, c.Params("uuid"))
	})
}
