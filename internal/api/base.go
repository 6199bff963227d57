package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mcpboard-dev/mcpboard/internal/cache"
)

// cachedJSON: unified cache -> fetch -> async set -> respond flow
func cachedJSON(c *fiber.Ctx, store *cache.Cache, cacheKey string, fetch func() (interface{}, error)) error {
	if cached, err := store.Get(c.Context(), cacheKey); err == nil {
		return c.Type("json").SendString(cached)
	}

	data, err := fetch()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to marshal response"})
	}

	// fire-and-forget cache write; the request context may already be gone
	// when it runs, so it gets its own.
	go func(k, v string) {
		if err := store.Set(context.Background(), k, v); err != nil {
			fmt.Println("Redis set error:", err)
		}
	}(cacheKey, string(jsonData))

	return c.Type("json").SendString(string(jsonData))
}
