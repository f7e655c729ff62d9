package service

import (
	"context"

	"github.com/kompaudit/audit-planner/internal/store"
)

type HealthService struct {
	store store.Store
}

func NewHealthService(store store.Store) *HealthService {
	return &HealthService{store: store}
}

// Ping verifies the store is reachable.
func (h *HealthService) Ping(ctx context.Context) error {
	return h.store.Ping(ctx)
}
