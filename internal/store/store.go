package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"antroute/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Warehouses
	CreateWarehouse(ctx context.Context, tenantID string, w model.Warehouse) (model.Warehouse, error)
	GetWarehouse(ctx context.Context, tenantID, id string) (model.Warehouse, error)

	// Runs
	CreateRun(ctx context.Context, run model.Run) (model.Run, error)
	UpdateRun(ctx context.Context, run model.Run) error
	GetRun(ctx context.Context, tenantID, id string) (model.Run, error)
	ListRuns(ctx context.Context, tenantID, cursor string, limit int) ([]model.Run, string, error)
	SaveRunHistory(ctx context.Context, tenantID, runID string, history []model.ScorePoint) error
	ListRunHistory(ctx context.Context, tenantID, runID string) ([]model.ScorePoint, error)

	// Optimizer config per tenant
	GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error
}

var ErrNotFound = errors.New("not found")

// newID returns a time-ordered id so that id order is creation order.
func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
