package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/prasasta/revoice/domain/entities"
)

// memRepo is an in-memory TaskRepository for exercising the registry without
// touching disk.
type memRepo struct {
	mu    sync.Mutex
	tasks map[string]entities.PipelineTask
}

func newMemRepo() *memRepo {
	return &memRepo{tasks: make(map[string]entities.PipelineTask)}
}

func (m *memRepo) Create(ctx context.Context, task *entities.PipelineTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = *task
	return nil
}

func (m *memRepo) Get(ctx context.Context, id string) (*entities.PipelineTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, entities.ErrNotFound)
	}
	copied := task
	return &copied, nil
}

func (m *memRepo) Update(ctx context.Context, task *entities.PipelineTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return fmt.Errorf("task %s: %w", task.ID, entities.ErrNotFound)
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memRepo) List(ctx context.Context, kind entities.TaskKind) ([]*entities.PipelineTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entities.PipelineTask
	for id := range m.tasks {
		task := m.tasks[id]
		if kind == "" || task.Kind == kind {
			copied := task
			out = append(out, &copied)
		}
	}
	return out, nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(newMemRepo(), zaptest.NewLogger(t))
}

func ptr[T any](v T) *T { return &v }

func TestCreate_IDEmbedsKind(t *testing.T) {
	reg := newTestRegistry(t)

	task, err := reg.Create(context.Background(), entities.TaskKindSynthesis, "voice-1")
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != entities.TaskStatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
	wantPrefix := string(entities.TaskKindSynthesis) + "_"
	if len(task.ID) <= len(wantPrefix) || task.ID[:len(wantPrefix)] != wantPrefix {
		t.Errorf("id %q does not start with %q", task.ID, wantPrefix)
	}

	other, err := reg.Create(context.Background(), entities.TaskKindSynthesis, "voice-1")
	if err != nil {
		t.Fatal(err)
	}
	if other.ID == task.ID {
		t.Error("two tasks created in the same second must not collide")
	}
}

func TestApply_ProgressNeverRegresses(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	task, _ := reg.Create(ctx, entities.TaskKindTranscription, "asset-1")

	got, err := reg.Apply(ctx, task.ID, Update{
		Status:   ptr(entities.TaskStatusProcessing),
		Progress: ptr(0.6),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 0.6 {
		t.Fatalf("progress = %v, want 0.6", got.Progress)
	}

	// A lower value is ignored, not an error.
	got, err = reg.Apply(ctx, task.ID, Update{Progress: ptr(0.3)})
	if err != nil {
		t.Fatal(err)
	}
	if got.Progress != 0.6 {
		t.Errorf("progress regressed to %v", got.Progress)
	}

	if _, err := reg.Apply(ctx, task.ID, Update{Progress: ptr(1.5)}); !errors.Is(err, entities.ErrInvalidTransition) {
		t.Errorf("out-of-range progress: err = %v, want ErrInvalidTransition", err)
	}
}

func TestApply_TerminalIsImmutable(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	task, _ := reg.Create(ctx, entities.TaskKindReplace, "asset-1")

	if _, err := reg.Apply(ctx, task.ID, Update{Status: ptr(entities.TaskStatusProcessing)}); err != nil {
		t.Fatal(err)
	}
	done, err := reg.Apply(ctx, task.ID, Update{Status: ptr(entities.TaskStatusCompleted)})
	if err != nil {
		t.Fatal(err)
	}
	if done.Progress != 1.0 {
		t.Errorf("completed task progress = %v, want forced 1.0", done.Progress)
	}

	_, err = reg.Apply(ctx, task.ID, Update{Status: ptr(entities.TaskStatusProcessing)})
	if !errors.Is(err, entities.ErrInvalidTransition) {
		t.Errorf("mutating completed task: err = %v, want ErrInvalidTransition", err)
	}
	_, err = reg.Apply(ctx, task.ID, Update{Progress: ptr(0.5)})
	if !errors.Is(err, entities.ErrInvalidTransition) {
		t.Errorf("progress on completed task: err = %v, want ErrInvalidTransition", err)
	}
}

func TestApply_UnknownTask(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Apply(context.Background(), "tts_0_deadbeef", Update{Progress: ptr(0.5)})
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestAwait_SignaledByCompletion(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	task, _ := reg.Create(ctx, entities.TaskKindSynthesis, "voice-1")

	go func() {
		time.Sleep(50 * time.Millisecond)
		reg.Apply(ctx, task.ID, Update{Status: ptr(entities.TaskStatusProcessing)})
		reg.Apply(ctx, task.ID, Update{Status: ptr(entities.TaskStatusCompleted)})
	}()

	// Long poll interval proves the done channel, not the ticker, wakes us.
	start := time.Now()
	final, err := reg.Await(ctx, task.ID, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != entities.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("await took %v, should be signaled well before the poll tick", elapsed)
	}
}

func TestAwait_PollsTasksWithoutChannel(t *testing.T) {
	repo := newMemRepo()
	reg := New(repo, zaptest.NewLogger(t))
	ctx := context.Background()

	// Simulate a task restored from disk: present in the repository but with
	// no in-process done channel.
	restored := &entities.PipelineTask{
		ID:     "replace_0_restored",
		Kind:   entities.TaskKindReplace,
		Status: entities.TaskStatusProcessing,
	}
	repo.Create(ctx, restored)

	go func() {
		time.Sleep(30 * time.Millisecond)
		restored.Status = entities.TaskStatusCompleted
		restored.Progress = 1
		repo.Update(ctx, restored)
	}()

	final, err := reg.Await(ctx, restored.ID, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if final.Status != entities.TaskStatusCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
}

func TestAwait_ContextCancel(t *testing.T) {
	reg := newTestRegistry(t)
	task, _ := reg.Create(context.Background(), entities.TaskKindSynthesis, "voice-1")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := reg.Await(ctx, task.ID, time.Second)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestCancel_FiresRegisteredFunc(t *testing.T) {
	reg := newTestRegistry(t)
	task, _ := reg.Create(context.Background(), entities.TaskKindTranscription, "asset-1")

	ctx, cancel := context.WithCancel(context.Background())
	reg.RegisterCancel(task.ID, cancel)

	if !reg.Cancel(task.ID) {
		t.Fatal("Cancel returned false for a registered task")
	}
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("registered cancel func was not invoked")
	}

	if reg.Cancel(task.ID) {
		t.Error("second Cancel should report no registered func")
	}
	if reg.Cancel("unknown") {
		t.Error("Cancel of unknown task should return false")
	}
}
