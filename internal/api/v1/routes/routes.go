// Package routes wires the API surface onto the fiber app.
package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deepcritic/deepcritic/internal/api/v1/handlers"
)

// API path constants
const (
	// DefaultBaseURL is the default address of a locally running server
	DefaultBaseURL = "http://localhost:8080"
	// APIPrefix is the prefix of every API route
	APIPrefix = "/api"
)

// Register registers the review API routes
func Register(app *fiber.App, reviews *handlers.ReviewHandler, ws *handlers.WebSocketHandler) {
	api := app.Group(APIPrefix)

	api.Post("/review", reviews.Submit)
	api.Get("/review/:jobId", reviews.Status)
	api.Get("/review/:jobId/results", reviews.Results)

	api.Get("/agents", handlers.ListAgents)
	api.Get("/reviews", reviews.ListReviews)

	api.Use("/ws", handlers.UpgradeRequired)
	api.Get("/ws", ws.Handle())
}
