package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/mcpboard-dev/mcpboard/internal/ai"
	"github.com/mcpboard-dev/mcpboard/internal/services"
)

type InsightsHandler struct {
	ai      *ai.Client
	servers *services.ServerService
}

func NewInsightsHandler(client *ai.Client, servers *services.ServerService) *InsightsHandler {
	return &InsightsHandler{ai: client, servers: servers}
}

type insightsRequest struct {
	Question string `json:"question"`
}

const insightsSystemPrompt = "You are an operations assistant for a fleet of MCP servers. " +
	"Answer briefly using only the status data provided."

// Ask summarizes the current fleet state for the operator's question.
func (h *InsightsHandler) Ask(c *fiber.Ctx) error {
	if !h.ai.Enabled() {
		return c.Status(http.StatusServiceUnavailable).JSON(fiber.Map{"error": "insights are not configured"})
	}

	var req insightsRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "question is required"})
	}

	statuses, err := h.servers.Statuses(c.Context())
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not load server status"})
	}

	var sb strings.Builder
	sb.WriteString("Current servers:\n")
	for _, s := range statuses {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", s.Name, s.ID, s.Status)
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(req.Question)

	answer, err := h.ai.Complete(c.Context(), insightsSystemPrompt, sb.String())
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "insights request failed"})
	}

	return c.JSON(fiber.Map{"answer": answer})
}
