package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/clouderp-code/email-processor/core/service/pipeline"
	"github.com/clouderp-code/email-processor/pkg/apperr"
)

// ProcessRequest is the submission payload for one raw email.
type ProcessRequest struct {
	MessageID  string     `json:"message_id"`
	RawContent string     `json:"raw_content"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
}

// ProcessHandler exposes the pipeline over HTTP.
type ProcessHandler struct {
	pipeline *pipeline.Pipeline
	log      zerolog.Logger
}

func NewProcessHandler(p *pipeline.Pipeline, log zerolog.Logger) *ProcessHandler {
	return &ProcessHandler{pipeline: p, log: log}
}

func (h *ProcessHandler) Register(app *fiber.App) {
	app.Post("/api/v1/emails/process", h.Process)
}

// Process runs one email through the pipeline. Pipeline faults come
// back as structured failure bodies, never as unhandled errors.
func (h *ProcessHandler) Process(c *fiber.Ctx) error {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body").WithError(err)
	}
	if req.RawContent == "" {
		return apperr.MissingField("raw_content")
	}

	var receivedAt time.Time
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	result := h.pipeline.ProcessEmail(c.UserContext(), []byte(req.RawContent), req.MessageID, receivedAt)
	if !result.Success {
		appErr := apperr.AsAppError(result.Err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success": false,
			"stage":   result.Stage,
			"error": fiber.Map{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
			"classification": result.Classification,
			"draft":          result.Draft,
			"draft_id":       result.DraftID,
		})
	}

	return c.JSON(result)
}
