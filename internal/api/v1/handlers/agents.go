package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deepcritic/deepcritic/internal/review"
)

// ListAgents handles the request to list the configured agents.
func ListAgents(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"agents": review.Agents()})
}
