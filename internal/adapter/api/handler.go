package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"sentinel-bfsi/internal/domain/entity"
	"sentinel-bfsi/internal/usecase/formatter"
)

// QueryHandler is what the delivery layer needs from the pipeline.
type QueryHandler interface {
	HandleQuery(ctx context.Context, raw, sessionID string) (formatter.Response, error)
}

type PromptHandler struct {
	orchestrator QueryHandler
	timeout      time.Duration
}

// NewPromptHandler bounds each request by timeout; zero means no bound.
func NewPromptHandler(orch QueryHandler, timeout time.Duration) *PromptHandler {
	return &PromptHandler{orchestrator: orch, timeout: timeout}
}

func (h *PromptHandler) HandleQuery(c *fiber.Ctx) error {
	var req entity.QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		// Anonymous callers are limited per client address, not in one
		// shared bucket.
		req.SessionID = "anon:" + c.IP()
	}

	// Cancelling ctx aborts any outstanding tier call.
	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	resp, err := h.orchestrator.HandleQuery(ctx, req.Query, req.SessionID)
	if err != nil {
		if errors.Is(err, entity.ErrServiceUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service unavailable"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal gateway error"})
	}

	c.Set("X-Sentinel-Tier", resp.Tier().String())
	c.Set("X-Sentinel-Reason", string(resp.Reason()))

	return c.Status(fiber.StatusOK).JSON(resp)
}
