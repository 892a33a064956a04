package api

import "github.com/gofiber/fiber/v2"

// SetPeriodRequest is the body for POST /v2/periods/active.
type SetPeriodRequest struct {
	ID string `json:"id"`
}

// ListPeriods handles GET /v2/periods
func ListPeriods(c *fiber.Ctx) error {
	registry, err := registryFrom(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	return c.JSON(fiber.Map{
		"periods": registry.Periods(),
		"active":  registry.ActiveID(),
	})
}

// SetActivePeriod handles POST /v2/periods/active
func SetActivePeriod(c *fiber.Ctx) error {
	registry, err := registryFrom(c)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "internal_server_error", "message": err.Error()})
	}

	var req SetPeriodRequest
	if err := c.BodyParser(&req); err != nil || req.ID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "invalid_request", "message": "id is required"})
	}

	if err := registry.SetActive(req.ID); err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "not_found", "message": err.Error()})
	}

	return c.JSON(fiber.Map{"active": req.ID})
}
