package routes

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/meinhoongagan/carenest/config"
	"github.com/meinhoongagan/carenest/controllers"
	"github.com/meinhoongagan/carenest/middleware"
	"github.com/meinhoongagan/carenest/utils"
)

// NewApp builds the HTTP API with every route group mounted under /api.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "carenest",
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", controllers.Health)

	api := app.Group("/api")
	SetupAuthRoutes(api)
	SetupProfileRoutes(api)
	SetupBookingRoutes(api)
	SetupMessagingRoutes(api)
	SetupNotificationRoutes(api)
	SetupReviewRoutes(api)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		zap.L().Error("unhandled error",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(code).JSON(utils.ErrorResponse{
			Message: "Internal server error",
			Error:   "internal error",
		})
	}
	return c.Status(code).JSON(utils.ErrorResponse{
		Message: err.Error(),
		Error:   fiberutils.StatusMessage(code),
	})
}
