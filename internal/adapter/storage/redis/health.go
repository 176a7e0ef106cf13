package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// HealthCheck probes Redis connectivity for the simulator's health route.
type HealthCheck struct {
	client *goredis.Client
}

func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

// Ping reports whether Redis answers within a short deadline. The health
// route must stay responsive even when Redis is wedged.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return h.client.Ping(ctx).Err()
}

// Name identifies the dependency in health reports.
func (h *HealthCheck) Name() string {
	return "redis"
}
