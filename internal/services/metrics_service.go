package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/mcpboard-dev/mcpboard/internal/bridge"
	"github.com/mcpboard-dev/mcpboard/internal/cache"
)

// MetricsService answers metrics queries from the bridge with a short-lived
// cache in front, since dashboards poll the same windows repeatedly.
type MetricsService struct {
	bridge *bridge.Client
	cache  *cache.Cache
}

func NewMetricsService(b *bridge.Client, c *cache.Cache) *MetricsService {
	return &MetricsService{bridge: b, cache: c}
}

func (s *MetricsService) Get(ctx context.Context, serverID, timeRange string) (json.RawMessage, error) {
	key := "metrics:" + serverID + ":" + timeRange
	if cached, err := s.cache.Get(ctx, key); err == nil {
		return json.RawMessage(cached), nil
	}

	raw, err := s.bridge.GetMetrics(ctx, serverID, timeRange)
	if err != nil {
		return nil, err
	}

	// fire-and-forget cache write, detached from the request context
	go func(k, v string) {
		if err := s.cache.Set(context.Background(), k, v); err != nil {
			log.Println("Redis set error:", err)
		}
	}(key, string(raw))

	return raw, nil
}
