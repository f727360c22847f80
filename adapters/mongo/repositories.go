package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prasasta/revoice/domain/entities"
	"github.com/prasasta/revoice/domain/repositories"
)

// TaskRepository persists pipeline tasks in the "tasks" collection.
type TaskRepository struct {
	collection *mongo.Collection
}

// NewTaskRepository creates a new MongoDB task repository
func NewTaskRepository(db *mongo.Database) repositories.TaskRepository {
	return &TaskRepository{
		collection: db.Collection("tasks"),
	}
}

// Create implements repositories.TaskRepository
func (r *TaskRepository) Create(ctx context.Context, task *entities.PipelineTask) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}

	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Get implements repositories.TaskRepository
func (r *TaskRepository) Get(ctx context.Context, id string) (*entities.PipelineTask, error) {
	var task entities.PipelineTask
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("task %s: %w", id, entities.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// Update implements repositories.TaskRepository
func (r *TaskRepository) Update(ctx context.Context, task *entities.PipelineTask) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	task.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"id": task.ID}, task)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("task %s: %w", task.ID, entities.ErrNotFound)
	}
	return nil
}

// List implements repositories.TaskRepository
func (r *TaskRepository) List(ctx context.Context, kind entities.TaskKind) ([]*entities.PipelineTask, error) {
	filter := bson.M{}
	if kind != "" {
		filter["kind"] = kind
	}

	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer cursor.Close(ctx)

	var tasks []*entities.PipelineTask
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}

// MediaRepository persists media assets in the "media" collection.
type MediaRepository struct {
	collection *mongo.Collection
}

// NewMediaRepository creates a new MongoDB media repository
func NewMediaRepository(db *mongo.Database) repositories.MediaRepository {
	return &MediaRepository{
		collection: db.Collection("media"),
	}
}

// Create implements repositories.MediaRepository
func (r *MediaRepository) Create(ctx context.Context, asset *entities.MediaAsset) error {
	if asset == nil {
		return errors.New("asset cannot be nil")
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, asset); err != nil {
		return fmt.Errorf("failed to create media asset: %w", err)
	}
	return nil
}

// Get implements repositories.MediaRepository
func (r *MediaRepository) Get(ctx context.Context, id string) (*entities.MediaAsset, error) {
	var asset entities.MediaAsset
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&asset)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("media asset %s: %w", id, entities.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get media asset: %w", err)
	}
	return &asset, nil
}

// Update implements repositories.MediaRepository
func (r *MediaRepository) Update(ctx context.Context, asset *entities.MediaAsset) error {
	if asset == nil {
		return errors.New("asset cannot be nil")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"id": asset.ID}, asset)
	if err != nil {
		return fmt.Errorf("failed to update media asset: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("media asset %s: %w", asset.ID, entities.ErrNotFound)
	}
	return nil
}

// List implements repositories.MediaRepository
func (r *MediaRepository) List(ctx context.Context) ([]*entities.MediaAsset, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list media assets: %w", err)
	}
	defer cursor.Close(ctx)

	var assets []*entities.MediaAsset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("failed to decode media assets: %w", err)
	}
	return assets, nil
}

// VoiceRepository persists voice profiles in the "voices" collection.
type VoiceRepository struct {
	collection *mongo.Collection
}

// NewVoiceRepository creates a new MongoDB voice repository
func NewVoiceRepository(db *mongo.Database) repositories.VoiceRepository {
	return &VoiceRepository{
		collection: db.Collection("voices"),
	}
}

// Create implements repositories.VoiceRepository
func (r *VoiceRepository) Create(ctx context.Context, profile *entities.VoiceProfile) error {
	if profile == nil {
		return errors.New("profile cannot be nil")
	}

	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = now
	}

	if _, err := r.collection.InsertOne(ctx, profile); err != nil {
		return fmt.Errorf("failed to create voice profile: %w", err)
	}
	return nil
}

// Get implements repositories.VoiceRepository
func (r *VoiceRepository) Get(ctx context.Context, id string) (*entities.VoiceProfile, error) {
	var profile entities.VoiceProfile
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&profile)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("voice profile %s: %w", id, entities.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get voice profile: %w", err)
	}
	return &profile, nil
}

// Update implements repositories.VoiceRepository
func (r *VoiceRepository) Update(ctx context.Context, profile *entities.VoiceProfile) error {
	if profile == nil {
		return errors.New("profile cannot be nil")
	}
	profile.UpdatedAt = time.Now()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"id": profile.ID}, profile)
	if err != nil {
		return fmt.Errorf("failed to update voice profile: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("voice profile %s: %w", profile.ID, entities.ErrNotFound)
	}
	return nil
}

// List implements repositories.VoiceRepository
func (r *VoiceRepository) List(ctx context.Context) ([]*entities.VoiceProfile, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list voice profiles: %w", err)
	}
	defer cursor.Close(ctx)

	var profiles []*entities.VoiceProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode voice profiles: %w", err)
	}
	return profiles, nil
}

// Delete implements repositories.VoiceRepository
func (r *VoiceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete voice profile: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("voice profile %s: %w", id, entities.ErrNotFound)
	}
	return nil
}

// CoursewareRepository persists courseware documents in the "courseware" collection.
type CoursewareRepository struct {
	collection *mongo.Collection
}

// NewCoursewareRepository creates a new MongoDB courseware repository
func NewCoursewareRepository(db *mongo.Database) repositories.CoursewareRepository {
	return &CoursewareRepository{
		collection: db.Collection("courseware"),
	}
}

// Create implements repositories.CoursewareRepository
func (r *CoursewareRepository) Create(ctx context.Context, course *entities.Courseware) error {
	if course == nil {
		return errors.New("courseware cannot be nil")
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, course); err != nil {
		return fmt.Errorf("failed to create courseware: %w", err)
	}
	return nil
}

// Get implements repositories.CoursewareRepository
func (r *CoursewareRepository) Get(ctx context.Context, id string) (*entities.Courseware, error) {
	var course entities.Courseware
	err := r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&course)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("courseware %s: %w", id, entities.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get courseware: %w", err)
	}
	return &course, nil
}

// Update implements repositories.CoursewareRepository
func (r *CoursewareRepository) Update(ctx context.Context, course *entities.Courseware) error {
	if course == nil {
		return errors.New("courseware cannot be nil")
	}

	result, err := r.collection.ReplaceOne(ctx, bson.M{"id": course.ID}, course)
	if err != nil {
		return fmt.Errorf("failed to update courseware: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("courseware %s: %w", course.ID, entities.ErrNotFound)
	}
	return nil
}

// List implements repositories.CoursewareRepository
func (r *CoursewareRepository) List(ctx context.Context) ([]*entities.Courseware, error) {
	opts := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list courseware: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*entities.Courseware
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode courseware: %w", err)
	}
	return docs, nil
}
