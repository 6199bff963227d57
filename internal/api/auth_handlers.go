package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mcpboard-dev/mcpboard/internal/auth"
	"github.com/mcpboard-dev/mcpboard/internal/services"
)

type AuthHandler struct {
	authService  *services.AuthService
	jwtSecret    string
	jwtExpiresIn string
}

func NewAuthHandler(authService *services.AuthService, jwtSecret, jwtExpiresIn string) *AuthHandler {
	return &AuthHandler{authService: authService, jwtSecret: jwtSecret, jwtExpiresIn: jwtExpiresIn}
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || len(req.Password) < 8 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "username and a password of at least 8 characters are required"})
	}

	u, err := h.authService.CreateUser(context.Background(), req.Username, req.Password, req.Role)
	if err != nil {
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": "could not create user"})
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user": fiber.Map{
			"id":       u.ID,
			"username": u.Username,
			"role":     u.Role,
		},
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	u, err := h.authService.GetByUsername(context.Background(), req.Username)
	if err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}
	if err := h.authService.CheckPassword(u, req.Password); err != nil {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	duration, err := time.ParseDuration(h.jwtExpiresIn)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "invalid token duration"})
	}

	permissions := services.PermissionsForRole(u.Role)
	token, err := auth.GenerateToken(u.ID, permissions, h.jwtSecret, duration)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "token error"})
	}

	return c.JSON(fiber.Map{
		"accessToken": token,
		"user": fiber.Map{
			"id":          u.ID,
			"username":    u.Username,
			"role":        u.Role,
			"permissions": permissions,
		},
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	// JWT-only logout: client just drops the token
	return c.SendStatus(http.StatusNoContent)
}
