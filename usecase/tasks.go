package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/internal/registry"
)

func ptr(v float64) *float64 {
	return &v
}

func applyProgress(ctx context.Context, reg *registry.Registry, taskID string, status entities.TaskStatus, progress float64) error {
	_, err := reg.Apply(ctx, taskID, registry.Update{Status: &status, Progress: &progress})
	return err
}

// failTask marks a task failed with the cause message. A worker canceled
// from the outside still lands here, so the failure is recorded with a
// background context rather than the worker's canceled one.
func failTask(ctx context.Context, reg *registry.Registry, logger *zap.Logger, taskID string, cause error) {
	status := entities.TaskStatusFailed
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	if _, err := reg.Apply(ctx, taskID, registry.Update{Status: &status, Error: cause.Error()}); err != nil {
		logger.Error("failed to mark task failed",
			zap.String("taskID", taskID),
			zap.NamedError("applyError", err),
			zap.NamedError("cause", cause))
		return
	}
	logger.Warn("task failed",
		zap.String("taskID", taskID),
		zap.Error(cause))
}
