// Package registry provides the authoritative store of asynchronous pipeline
// task records: collision-free id allocation, atomic state-machine updates,
// durable persistence, and completion signaling for waiters.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
)

// Update describes a partial mutation of a task record. Nil fields are left
// unchanged.
type Update struct {
	Status   *entities.TaskStatus
	Progress *float64
	Error    string
	Artifact *entities.TaskArtifact
	Extra    map[string]any
}

// Registry owns task lifecycle. Every mutation is persisted through the
// repository before the call returns, so a crash mid-pipeline loses at most
// the in-flight update, never the task.
type Registry struct {
	repo   repositories.TaskRepository
	logger *zap.Logger

	mu      sync.Mutex
	done    map[string]chan struct{}
	cancels map[string]context.CancelFunc
}

// New creates a registry backed by the given repository.
func New(repo repositories.TaskRepository, logger *zap.Logger) *Registry {
	return &Registry{
		repo:    repo,
		logger:  logger,
		done:    make(map[string]chan struct{}),
		cancels: make(map[string]context.CancelFunc),
	}
}

// Create allocates a fresh task in pending state. The id embeds the kind and
// a wall-clock second plus a random suffix, so concurrent creation within
// the same second stays collision-free.
func (r *Registry) Create(ctx context.Context, kind entities.TaskKind, inputRef string) (*entities.PipelineTask, error) {
	now := time.Now()
	task := &entities.PipelineTask{
		ID:        fmt.Sprintf("%s_%d_%s", kind, now.Unix(), uuid.NewString()[:8]),
		Kind:      kind,
		InputRef:  inputRef,
		Status:    entities.TaskStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("persist task %s: %w", task.ID, err)
	}

	r.mu.Lock()
	r.done[task.ID] = make(chan struct{})
	r.mu.Unlock()

	r.logger.Info("task created",
		zap.String("taskID", task.ID),
		zap.String("kind", string(kind)),
		zap.String("inputRef", inputRef))
	return task, nil
}

// Get returns a snapshot of the task record.
func (r *Registry) Get(ctx context.Context, id string) (*entities.PipelineTask, error) {
	return r.repo.Get(ctx, id)
}

// List returns stored tasks, optionally filtered by kind.
func (r *Registry) List(ctx context.Context, kind entities.TaskKind) ([]*entities.PipelineTask, error) {
	return r.repo.List(ctx, kind)
}

// Apply validates and persists a partial update. It fails with
// ErrInvalidTransition when the task already reached a terminal state.
// Progress never moves backwards: a lower value than the stored one is
// ignored rather than applied.
func (r *Registry) Apply(ctx context.Context, id string, upd Update) (*entities.PipelineTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, err := r.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, fmt.Errorf("task %s is %s: %w", id, task.Status, entities.ErrInvalidTransition)
	}

	if upd.Status != nil {
		if err := task.CanTransition(*upd.Status); err != nil {
			return nil, err
		}
		task.Status = *upd.Status
	}
	if upd.Progress != nil {
		p := *upd.Progress
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("progress %.3f out of range: %w", p, entities.ErrInvalidTransition)
		}
		if task.ValidProgress(p) {
			task.Progress = p
		}
	}
	if upd.Error != "" {
		task.Error = upd.Error
	}
	if upd.Artifact != nil {
		task.Artifact = upd.Artifact
	}
	if len(upd.Extra) > 0 {
		if task.Extra == nil {
			task.Extra = make(map[string]any, len(upd.Extra))
		}
		for k, v := range upd.Extra {
			task.Extra[k] = v
		}
	}
	if task.Status == entities.TaskStatusCompleted {
		task.Progress = 1
	}
	task.UpdatedAt = time.Now()

	if err := r.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("persist task %s: %w", id, err)
	}

	if task.Status.Terminal() {
		if ch, ok := r.done[id]; ok {
			close(ch)
			delete(r.done, id)
		}
		delete(r.cancels, id)
	}
	return task, nil
}

// RegisterCancel associates a cancel func with a running task so stuck
// workers can be terminated from the outside.
func (r *Registry) RegisterCancel(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[id] = cancel
}

// Cancel invokes the registered cancel func for a task, if any. The owning
// worker is responsible for marking the task failed afterwards.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	delete(r.cancels, id)
	r.mu.Unlock()

	if ok {
		cancel()
	}
	return ok
}

// watch returns the completion channel for a task, or nil when the task is
// unknown to this process (e.g. restored from disk after a restart).
func (r *Registry) watch(id string) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done[id]
}

// Await blocks until the task reaches a terminal state, the poll deadline
// logic fires, or ctx is done. Completion is normally signaled through the
// task's channel; a bounded poll ticker covers tasks without an in-process
// channel.
func (r *Registry) Await(ctx context.Context, id string, pollInterval time.Duration) (*entities.PipelineTask, error) {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}

	for {
		task, err := r.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if task.Status.Terminal() {
			return task, nil
		}

		ch := r.watch(id)
		ticker := time.NewTicker(pollInterval)
		select {
		case <-ctx.Done():
			ticker.Stop()
			return nil, ctx.Err()
		case <-ch:
			ticker.Stop()
		case <-ticker.C:
			ticker.Stop()
		}
	}
}
