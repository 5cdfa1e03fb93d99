package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"messaging-backend/internal/services"
	"messaging-backend/internal/utils"
)

// AuthHandler exchanges approved-service credentials for a service token.
func AuthHandler(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Name     string `json:"name"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "Invalid request",
			})
		}

		token, err := authService.Login(c.Context(), req.Name, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUnknownService):
				log.Printf("User with name '%s' doesn't exist", req.Name)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"message": "Wrong name",
				})
			case errors.Is(err, services.ErrWrongPassword):
				log.Printf("User with name '%s' provided wrong password", req.Name)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"message": "Wrong password",
				})
			default:
				utils.LogError(err, "Auth")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"success": false,
					"message": "Authentication failed",
				})
			}
		}

		log.Printf("AUTHENTICATED: service with name '%s'", req.Name)
		return c.JSON(fiber.Map{"success": true, "token": token})
	}
}
