package handlers

import "github.com/gofiber/fiber/v2"

// errMessage is the error response envelope for the review API.
func errMessage(msg string) fiber.Map {
	return fiber.Map{"message": msg}
}
