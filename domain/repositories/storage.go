package repositories

import (
	"context"

	"github.com/prasasta/revoice/domain/entities"
)

// TaskRepository is the backing store of the task registry. Implementations
// must persist every mutation before returning (durability over latency) and
// must apply each update atomically per task id.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.PipelineTask) error
	Get(ctx context.Context, id string) (*entities.PipelineTask, error)
	Update(ctx context.Context, task *entities.PipelineTask) error
	List(ctx context.Context, kind entities.TaskKind) ([]*entities.PipelineTask, error)
}

// MediaRepository stores uploaded media asset records.
type MediaRepository interface {
	Create(ctx context.Context, asset *entities.MediaAsset) error
	Get(ctx context.Context, id string) (*entities.MediaAsset, error)
	Update(ctx context.Context, asset *entities.MediaAsset) error
	List(ctx context.Context) ([]*entities.MediaAsset, error)
}

// VoiceRepository stores voice profiles. Embeddings are write-once, read
// many; there is no concurrent-write hazard on a stored profile.
type VoiceRepository interface {
	Create(ctx context.Context, profile *entities.VoiceProfile) error
	Get(ctx context.Context, id string) (*entities.VoiceProfile, error)
	Update(ctx context.Context, profile *entities.VoiceProfile) error
	List(ctx context.Context) ([]*entities.VoiceProfile, error)
	Delete(ctx context.Context, id string) error
}

// CoursewareRepository stores uploaded courseware and extracted slide text.
type CoursewareRepository interface {
	Create(ctx context.Context, cw *entities.Courseware) error
	Get(ctx context.Context, id string) (*entities.Courseware, error)
	Update(ctx context.Context, cw *entities.Courseware) error
	List(ctx context.Context) ([]*entities.Courseware, error)
}
