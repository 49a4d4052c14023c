// Package web provides HTTP handlers and REST API endpoints for suite and
// pipeline management.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/scriptflow/scriptflow/pkg/engine"
	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/persistence"
	"github.com/scriptflow/scriptflow/pkg/queue"
	"github.com/scriptflow/scriptflow/pkg/registry"
)

// RunEnqueuer pushes run requests onto the run queue consumed by the runner.
type RunEnqueuer interface {
	Enqueue(ctx context.Context, request queue.RunRequest) error
}

type APIHandlers struct {
	store     persistence.Persistence
	validator *validator.Validate
	runQueue  RunEnqueuer
}

// NewAPIHandlers creates the handler set. runQueue may be nil; run endpoints
// then answer 503.
func NewAPIHandlers(store persistence.Persistence, validate *validator.Validate, runQueue RunEnqueuer) *APIHandlers {
	return &APIHandlers{
		store:     store,
		validator: validate,
		runQueue:  runQueue,
	}
}

// Register mounts every route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	app.Get("/suites", h.GetSuites)
	app.Post("/suites", h.CreateSuite)
	app.Get("/suites/:id", h.GetSuite)
	app.Patch("/suites/:id", h.UpdateSuite)
	app.Delete("/suites/:id", h.DeleteSuite)
	app.Post("/suites/:id/run", h.RunSuite)

	app.Get("/pipelines", h.GetPipelines)
	app.Post("/pipelines", h.CreatePipeline)
	app.Get("/pipelines/:id", h.GetPipeline)
	app.Patch("/pipelines/:id", h.UpdatePipeline)
	app.Delete("/pipelines/:id", h.DeletePipeline)
	app.Post("/pipelines/:id/run", h.RunPipeline)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.store.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetSuites(c fiber.Ctx) error {
	suites, err := h.store.SuiteRepository().Suites(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"suites": suites})
}

func (h *APIHandlers) GetSuite(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Suite ID is required")
	}

	suite, err := h.store.SuiteRepository().SuiteByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(suite)
}

func (h *APIHandlers) CreateSuite(c fiber.Ctx) error {
	var req CreateSuiteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	suite := &models.Suite{
		ID:       req.ID,
		Name:     req.Name,
		Language: req.Language,
		Code:     req.Code,
		Tags:     req.Tags,
	}

	if err := h.validator.Struct(suite); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.store.SuiteRepository().SaveSuite(c.Context(), suite); err != nil {
		return handleStoreError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(suite)
}

func (h *APIHandlers) UpdateSuite(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Suite ID is required")
	}

	var req UpdateSuiteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.store.SuiteRepository().SuiteByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Language != nil {
		existing.Language = *req.Language
	}

	if req.Code != nil {
		existing.Code = *req.Code
	}

	if req.Tags != nil {
		existing.Tags = req.Tags
	}

	if err := h.store.SuiteRepository().SaveSuite(c.Context(), existing); err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteSuite(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Suite ID is required")
	}

	if err := h.store.SuiteRepository().DeleteSuite(c.Context(), id); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RunSuite(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Suite ID is required")
	}

	if h.runQueue == nil {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	// The suite must exist before the run is announced.
	if _, err := h.store.SuiteRepository().SuiteByID(c.Context(), id); err != nil {
		return handleStoreError(c, err)
	}

	var body RunRequestBody
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.runQueue.Enqueue(c.Context(), queue.RunRequest{SuiteID: id, Inputs: body.Inputs}); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *APIHandlers) GetPipelines(c fiber.Ctx) error {
	pipelines, err := h.store.PipelineRepository().Pipelines(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"pipelines": pipelines})
}

func (h *APIHandlers) GetPipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	pipeline, err := h.store.PipelineRepository().PipelineByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(pipeline)
}

func (h *APIHandlers) CreatePipeline(c fiber.Ctx) error {
	var req CreatePipelineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	pipeline := &models.Pipeline{
		ID:     req.ID,
		Name:   req.Name,
		Type:   req.Type,
		Nodes:  req.Nodes,
		Edges:  req.Edges,
		Stages: req.Stages,
	}

	if err := validatePipelineDefinition(pipeline); err != nil {
		return handleStoreError(c, err)
	}

	if err := h.store.PipelineRepository().SavePipeline(c.Context(), pipeline); err != nil {
		return handleStoreError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(pipeline)
}

func (h *APIHandlers) UpdatePipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	var req UpdatePipelineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.store.PipelineRepository().PipelineByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Type != nil {
		existing.Type = *req.Type
	}

	if req.Nodes != nil {
		existing.Nodes = req.Nodes
	}

	if req.Edges != nil {
		existing.Edges = req.Edges
	}

	if req.Stages != nil {
		existing.Stages = req.Stages
	}

	if err := validatePipelineDefinition(existing); err != nil {
		return handleStoreError(c, err)
	}

	if err := h.store.PipelineRepository().SavePipeline(c.Context(), existing); err != nil {
		return handleStoreError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeletePipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	if err := h.store.PipelineRepository().DeletePipeline(c.Context(), id); err != nil {
		return handleStoreError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) RunPipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	if h.runQueue == nil {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	pipeline, err := h.store.PipelineRepository().PipelineByID(c.Context(), id)
	if err != nil {
		return handleStoreError(c, err)
	}

	// A definition that would be rejected at execution time is rejected here
	// instead of occupying the queue.
	if err := engine.ValidatePipeline(pipeline); err != nil {
		return handleStoreError(c, err)
	}

	var body RunRequestBody
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	if err := h.runQueue.Enqueue(c.Context(), queue.RunRequest{PipelineID: id, Inputs: body.Inputs}); err != nil {
		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// validatePipelineDefinition applies structural validation plus per-node
// config schemas for graph pipelines. A definition with no work yet is a
// draft and passes; the run endpoint rejects it.
func validatePipelineDefinition(pipeline *models.Pipeline) error {
	if len(pipeline.Nodes) == 0 && len(pipeline.Stages) == 0 {
		return nil
	}

	if err := engine.ValidatePipeline(pipeline); err != nil {
		return err
	}

	if pipeline.IsGraph() {
		for _, node := range pipeline.Nodes {
			if err := registry.ValidateNodeConfig(node); err != nil {
				return engine.NewConfigurationError(err, "node "+node.ID)
			}
		}
	}

	return nil
}
