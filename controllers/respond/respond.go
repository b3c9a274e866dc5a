// Package respond renders service results and errors as JSON responses.
package respond

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/meinhoongagan/carenest/services"
	"github.com/meinhoongagan/carenest/utils"
	"github.com/meinhoongagan/carenest/validation"
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{services.ErrBadRequest, fiber.StatusBadRequest},
	{services.ErrUnauthorized, fiber.StatusUnauthorized},
	{services.ErrForbidden, fiber.StatusForbidden},
	{services.ErrNotFound, fiber.StatusNotFound},
	{services.ErrConflict, fiber.StatusConflict},
	{services.ErrInvalidState, fiber.StatusConflict},
}

// Error maps err onto a status code and error body. Unknown errors become a logged 500.
func Error(c *fiber.Ctx, err error) error {
	var fields validation.Violations
	if errors.As(err, &fields) {
		return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
			Message: "Validation failed",
			Error:   fields.Error(),
			Fields:  fields,
		})
	}

	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			return c.Status(m.status).JSON(utils.ErrorResponse{
				Message: err.Error(),
				Error:   m.kind.Error(),
			})
		}
	}

	zap.L().Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(utils.ErrorResponse{
		Message: "Internal server error",
		Error:   "internal error",
	})
}

// BadBody answers a request whose body could not be parsed.
func BadBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{
		Message: "Failed to parse request body",
		Error:   err.Error(),
	})
}

// ID reads a positive integer route parameter.
func ID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, validation.Violations{name: "invalid_id"}
	}
	return uint(v), nil
}

// Created renders v with 201.
func Created(c *fiber.Ctx, v interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(v)
}
