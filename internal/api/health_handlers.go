package api

import (
	"database/sql"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/mcpboard-dev/mcpboard/internal/bridge"
)

type HealthHandler struct {
	db     *sql.DB
	bridge *bridge.Client
}

func NewHealthHandler(db *sql.DB, b *bridge.Client) *HealthHandler {
	return &HealthHandler{db: db, bridge: b}
}

// Check reports app, database and bridge reachability. The endpoint stays
// 200 unless the database is down; a degraded bridge is reported but not
// fatal, since the dashboard can still serve persisted data.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	status := http.StatusOK
	dbStatus := "ok"
	if err := h.db.PingContext(c.Context()); err != nil {
		dbStatus = "down"
		status = http.StatusServiceUnavailable
	}

	bridgeStatus := "ok"
	if err := h.bridge.Health(c.Context()); err != nil {
		bridgeStatus = "down"
	}

	overall := "ok"
	if dbStatus != "ok" || bridgeStatus != "ok" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"db":     dbStatus,
		"bridge": bridgeStatus,
	})
}
