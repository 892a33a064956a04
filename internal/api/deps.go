// Package api holds the Fiber handlers for the public journey-planning
// surface and the partner dashboard. Handlers read their dependencies
// (routing facade, admin db pool, redis client) from fiber.Ctx Locals,
// populated once at server startup, rather than from package-level state.
package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/transitcore/raptorcore/internal/network"
	"github.com/transitcore/raptorcore/internal/period"
	"github.com/transitcore/raptorcore/internal/routing"
)

func facadeFrom(c *fiber.Ctx) (*routing.Facade, error) {
	f, ok := c.Locals("facade").(*routing.Facade)
	if !ok || f == nil {
		return nil, fmt.Errorf("routing facade not configured")
	}
	return f, nil
}

func registryFrom(c *fiber.Ctx) (*period.Registry, error) {
	r, ok := c.Locals("registry").(*period.Registry)
	if !ok || r == nil {
		return nil, fmt.Errorf("period registry not configured")
	}
	return r, nil
}

func networkFrom(c *fiber.Ctx) (*network.Network, error) {
	r, err := registryFrom(c)
	if err != nil {
		return nil, err
	}
	net := r.Active()
	if net == nil {
		return nil, fmt.Errorf("no active period loaded")
	}
	return net, nil
}
