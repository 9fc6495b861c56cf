package handlers

import (
	"errors"
	"strconv"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var errInvalidActor = errors.New("invalid actor")

func parseProfileUserID(c *fiber.Ctx) (int64, error) {
	userIDValue := c.Locals("user_id")
	userIDStr, ok := userIDValue.(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(userIDStr, 10, 64)
}

// parseActor reads the authenticated user and role set by AuthRequired.
func parseActor(c *fiber.Ctx) (int64, string, error) {
	userID, err := parseProfileUserID(c)
	if err != nil {
		return 0, "", errInvalidActor
	}
	role, ok := c.Locals("role").(string)
	if !ok || (role != models.RoleStudent && role != models.RoleTutor) {
		return 0, "", errInvalidActor
	}
	return userID, role, nil
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

func invalidToken(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
}

// bindJSON parses and validates the body, writing the 400 response itself.
func bindJSON(c *fiber.Ctx, validate *validator.Validate, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validate.Struct(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}
	return true, nil
}
