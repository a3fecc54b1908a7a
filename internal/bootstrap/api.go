package bootstrap

import (
	"errors"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpin "github.com/clouderp-code/email-processor/adapter/in/http"
	"github.com/clouderp-code/email-processor/config"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

// NewAPI builds the Fiber app with the full pipeline wired in.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler(),
		DisableStartupMessage: cfg.IsProduction(),

		// go-json: faster JSON serialization than encoding/json
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	healthHandler := httpin.NewHealthHandler(deps.DB, deps.Redis)
	healthHandler.Register(app)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	processHandler := httpin.NewProcessHandler(deps.Pipeline, deps.Log)
	processHandler.Register(app)

	deps.Log.Info().Str("port", cfg.Port).Msg("[bootstrap.NewAPI] api server initialized")

	return app, cleanup, nil
}

// errorHandler converts AppErrors into structured JSON responses.
func errorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			return c.Status(appErr.HTTPStatus()).JSON(fiber.Map{"error": appErr})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{"code": apperr.CodeInternalError, "message": fiberErr.Message},
			})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{"code": apperr.CodeInternalError, "message": "internal server error"},
		})
	}
}
