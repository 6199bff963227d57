package api

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/mcpboard-dev/mcpboard/internal/bridge"
	"github.com/mcpboard-dev/mcpboard/internal/cache"
	"github.com/mcpboard-dev/mcpboard/internal/services"
)

type ServerHandler struct {
	servers *services.ServerService
	metrics *services.MetricsService
	audit   *services.AuditService
	bridge  *bridge.Client
	cache   *cache.Cache
}

func NewServerHandler(servers *services.ServerService, metrics *services.MetricsService, audit *services.AuditService, b *bridge.Client, c *cache.Cache) *ServerHandler {
	return &ServerHandler{
		servers: servers,
		metrics: metrics,
		audit:   audit,
		bridge:  b,
		cache:   c,
	}
}

type serverRequest struct {
	Name        string `json:"name"`
	Transport   string `json:"transport"`
	Endpoint    string `json:"endpoint"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

func (h *ServerHandler) List(c *fiber.Ctx) error {
	servers, err := h.servers.List(c.Context())
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not list servers"})
	}
	if servers == nil {
		servers = []services.Server{}
	}
	return c.JSON(servers)
}

func (h *ServerHandler) Get(c *fiber.Ctx) error {
	srv, err := h.servers.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "server not found"})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not load server"})
	}
	return c.JSON(srv)
}

func (h *ServerHandler) Create(c *fiber.Ctx) error {
	var req serverRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.Name == "" || req.Endpoint == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "name and endpoint are required"})
	}

	srv := services.Server{
		Name:        req.Name,
		Transport:   req.Transport,
		Endpoint:    req.Endpoint,
		Description: req.Description,
		Enabled:     req.Enabled,
	}
	if err := h.servers.Create(c.Context(), &srv); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not create server"})
	}

	h.recordAudit(c, "server.create", srv.ID)
	return c.Status(http.StatusCreated).JSON(srv)
}

func (h *ServerHandler) Update(c *fiber.Ctx) error {
	var req serverRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	srv := services.Server{
		ID:          c.Params("id"),
		Name:        req.Name,
		Transport:   req.Transport,
		Endpoint:    req.Endpoint,
		Description: req.Description,
		Enabled:     req.Enabled,
	}
	if err := h.servers.Update(c.Context(), &srv); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "server not found"})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not update server"})
	}

	h.recordAudit(c, "server.update", srv.ID)
	return c.JSON(fiber.Map{"updated": true})
}

func (h *ServerHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.servers.Delete(c.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "server not found"})
		}
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not delete server"})
	}

	h.recordAudit(c, "server.delete", id)
	return c.SendStatus(http.StatusNoContent)
}

// GetStatus proxies the bridge's live status for one server, cached briefly.
func (h *ServerHandler) GetStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	return cachedJSON(c, h.cache, "server_status:"+id, func() (interface{}, error) {
		return h.bridge.GetServerStatus(c.Context(), id)
	})
}

func (h *ServerHandler) GetMetrics(c *fiber.Ctx) error {
	raw, err := h.metrics.Get(c.Context(), c.Params("id"), c.Query("timeRange"))
	if err != nil {
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "could not fetch metrics"})
	}
	return c.Type("json").Send(raw)
}

func (h *ServerHandler) ListAudit(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	events, err := h.audit.List(c.Context(), limit)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "could not list audit events"})
	}
	if events == nil {
		events = []services.AuditEvent{}
	}
	return c.JSON(events)
}

func (h *ServerHandler) recordAudit(c *fiber.Ctx, action, target string) {
	userID, _ := c.Locals("userID").(string)
	// Audit failures never fail the request.
	if err := h.audit.Record(context.Background(), userID, action, target, ""); err != nil {
		log.Printf("audit record failed (action=%s target=%s): %v", action, target, err)
	}
}
