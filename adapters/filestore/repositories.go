package filestore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
)

// TaskRepository implements repositories.TaskRepository on a Store.
type TaskRepository struct {
	col *collection
}

var _ repositories.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository returns the task collection of the store.
func NewTaskRepository(s *Store) *TaskRepository {
	return &TaskRepository{col: s.Tasks}
}

func (r *TaskRepository) Create(ctx context.Context, task *entities.PipelineTask) error {
	return r.col.put(task.ID, task)
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*entities.PipelineTask, error) {
	var task entities.PipelineTask
	ok, err := r.col.get(id, &task)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, entities.ErrNotFound)
	}
	return &task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *entities.PipelineTask) error {
	return r.col.put(task.ID, task)
}

func (r *TaskRepository) List(ctx context.Context, kind entities.TaskKind) ([]*entities.PipelineTask, error) {
	var tasks []*entities.PipelineTask
	err := r.col.all(func(body json.RawMessage) error {
		var task entities.PipelineTask
		if err := json.Unmarshal(body, &task); err != nil {
			return err
		}
		if kind == "" || task.Kind == kind {
			tasks = append(tasks, &task)
		}
		return nil
	})
	return tasks, err
}

// MediaRepository implements repositories.MediaRepository on a Store.
type MediaRepository struct {
	col *collection
}

var _ repositories.MediaRepository = (*MediaRepository)(nil)

func NewMediaRepository(s *Store) *MediaRepository {
	return &MediaRepository{col: s.Media}
}

func (r *MediaRepository) Create(ctx context.Context, asset *entities.MediaAsset) error {
	return r.col.put(asset.ID, asset)
}

func (r *MediaRepository) Get(ctx context.Context, id string) (*entities.MediaAsset, error) {
	var asset entities.MediaAsset
	ok, err := r.col.get(id, &asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("media asset %s: %w", id, entities.ErrNotFound)
	}
	return &asset, nil
}

func (r *MediaRepository) Update(ctx context.Context, asset *entities.MediaAsset) error {
	return r.col.put(asset.ID, asset)
}

func (r *MediaRepository) List(ctx context.Context) ([]*entities.MediaAsset, error) {
	var assets []*entities.MediaAsset
	err := r.col.all(func(body json.RawMessage) error {
		var asset entities.MediaAsset
		if err := json.Unmarshal(body, &asset); err != nil {
			return err
		}
		assets = append(assets, &asset)
		return nil
	})
	return assets, err
}

// VoiceRepository implements repositories.VoiceRepository on a Store.
type VoiceRepository struct {
	col *collection
}

var _ repositories.VoiceRepository = (*VoiceRepository)(nil)

func NewVoiceRepository(s *Store) *VoiceRepository {
	return &VoiceRepository{col: s.Voices}
}

func (r *VoiceRepository) Create(ctx context.Context, profile *entities.VoiceProfile) error {
	return r.col.put(profile.ID, profile)
}

func (r *VoiceRepository) Get(ctx context.Context, id string) (*entities.VoiceProfile, error) {
	var profile entities.VoiceProfile
	ok, err := r.col.get(id, &profile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("voice profile %s: %w", id, entities.ErrNotFound)
	}
	return &profile, nil
}

func (r *VoiceRepository) Update(ctx context.Context, profile *entities.VoiceProfile) error {
	return r.col.put(profile.ID, profile)
}

func (r *VoiceRepository) List(ctx context.Context) ([]*entities.VoiceProfile, error) {
	var profiles []*entities.VoiceProfile
	err := r.col.all(func(body json.RawMessage) error {
		var profile entities.VoiceProfile
		if err := json.Unmarshal(body, &profile); err != nil {
			return err
		}
		profiles = append(profiles, &profile)
		return nil
	})
	return profiles, err
}

func (r *VoiceRepository) Delete(ctx context.Context, id string) error {
	ok, err := r.col.delete(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("voice profile %s: %w", id, entities.ErrNotFound)
	}
	return nil
}

// CoursewareRepository implements repositories.CoursewareRepository on a Store.
type CoursewareRepository struct {
	col *collection
}

var _ repositories.CoursewareRepository = (*CoursewareRepository)(nil)

func NewCoursewareRepository(s *Store) *CoursewareRepository {
	return &CoursewareRepository{col: s.Courseware}
}

func (r *CoursewareRepository) Create(ctx context.Context, cw *entities.Courseware) error {
	return r.col.put(cw.ID, cw)
}

func (r *CoursewareRepository) Get(ctx context.Context, id string) (*entities.Courseware, error) {
	var cw entities.Courseware
	ok, err := r.col.get(id, &cw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("courseware %s: %w", id, entities.ErrNotFound)
	}
	return &cw, nil
}

func (r *CoursewareRepository) Update(ctx context.Context, cw *entities.Courseware) error {
	return r.col.put(cw.ID, cw)
}

func (r *CoursewareRepository) List(ctx context.Context) ([]*entities.Courseware, error) {
	var items []*entities.Courseware
	err := r.col.all(func(body json.RawMessage) error {
		var cw entities.Courseware
		if err := json.Unmarshal(body, &cw); err != nil {
			return err
		}
		items = append(items, &cw)
		return nil
	})
	return items, err
}
