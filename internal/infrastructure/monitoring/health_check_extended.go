package monitoring

import (
	"context"
	"time"

	"vodgate/internal/core/ports"
)

// AddStoreCheck adds a connectivity check for a store adapter
func (h *HealthChecker) AddStoreCheck(name string, store ports.HealthChecker, interval, timeout time.Duration) {
	h.AddCheck(name, func(ctx context.Context) (bool, error) {
		if err := store.Ping(ctx); err != nil {
			return false, err
		}
		return true, nil
	}, interval, timeout)
}

// IsReady checks if the service is ready to accept traffic
func (h *HealthChecker) IsReady(ctx context.Context) bool {
	status := h.CheckAll(ctx)
	return status.Status == "healthy"
}
