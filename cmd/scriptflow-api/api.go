// Package main provides the ScriptFlow API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/scriptflow/scriptflow/pkg/persistence"
	"github.com/scriptflow/scriptflow/pkg/queue"
	"github.com/scriptflow/scriptflow/pkg/web"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	runQueue *queue.Consumer
	validate *validator.Validate
}

// NewAPI creates the API server. runQueue may be nil when Redis is down; the
// run endpoints then answer 503 while CRUD keeps working.
func NewAPI(logger *slog.Logger, store persistence.Persistence, runQueue *queue.Consumer) *API {
	return &API{
		logger:   logger,
		store:    store,
		runQueue: runQueue,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	var enqueuer web.RunEnqueuer
	if a.runQueue != nil {
		enqueuer = a.runQueue
	}

	handlers := web.NewAPIHandlers(a.store, a.validate, enqueuer)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ScriptFlow API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
