package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"
	"github.com/chatuz-park/gym-now-back/internal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const exerciseMediaFolder = "exercises"

// MediaKind selects which media slot of an exercise an upload fills.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

type ExerciseInput struct {
	Name         string
	Description  string
	MuscleGroups []string
	Equipment    []string
	Difficulty   domain.Difficulty
	Instructions []string
	VideoURL     string
	ImageURL     string
}

type ExerciseService interface {
	CreateExercise(ctx context.Context, input ExerciseInput) (*domain.Exercise, error)
	GetExercise(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	ListExercises(ctx context.Context, filter repository.ExerciseFilter) ([]domain.Exercise, error)
	UpdateExercise(ctx context.Context, id primitive.ObjectID, input ExerciseInput) (*domain.Exercise, error)
	DeleteExercise(ctx context.Context, id primitive.ObjectID) error
	UploadMedia(ctx context.Context, id primitive.ObjectID, kind MediaKind, file Upload) (*domain.Exercise, error)
	// MediaURL returns a temporary download URL for uploaded media and the
	// stored URL for external media.
	MediaURL(ctx context.Context, id primitive.ObjectID, kind MediaKind) (string, error)
}

type exerciseService struct {
	exerciseRepo repository.ExerciseRepository
	files        storage.FileStorage
	log          *zap.Logger
}

func NewExerciseService(exerciseRepo repository.ExerciseRepository, files storage.FileStorage, log *zap.Logger) ExerciseService {
	return &exerciseService{
		exerciseRepo: exerciseRepo,
		files:        files,
		log:          log,
	}
}

func validateExerciseInput(in ExerciseInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("exercise name is required")
	}
	if !in.Difficulty.Valid() {
		return validationError("unknown difficulty %q", in.Difficulty)
	}
	return nil
}

func (s *exerciseService) CreateExercise(ctx context.Context, in ExerciseInput) (*domain.Exercise, error) {
	if err := validateExerciseInput(in); err != nil {
		return nil, err
	}
	exercise := &domain.Exercise{
		Name:         strings.TrimSpace(in.Name),
		Description:  in.Description,
		MuscleGroups: nonNil(in.MuscleGroups),
		Equipment:    nonNil(in.Equipment),
		Difficulty:   in.Difficulty,
		Instructions: nonNil(in.Instructions),
		VideoURL:     in.VideoURL,
		ImageURL:     in.ImageURL,
	}
	if _, err := s.exerciseRepo.Create(ctx, exercise); err != nil {
		return nil, err
	}
	return exercise, nil
}

func (s *exerciseService) GetExercise(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	exercise, err := s.exerciseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}

func (s *exerciseService) ListExercises(ctx context.Context, filter repository.ExerciseFilter) ([]domain.Exercise, error) {
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		return nil, validationError("unknown difficulty %q", filter.Difficulty)
	}
	return s.exerciseRepo.List(ctx, filter)
}

// UpdateExercise replaces the descriptive fields. A URL that changes away
// from an uploaded object releases that object.
func (s *exerciseService) UpdateExercise(ctx context.Context, id primitive.ObjectID, in ExerciseInput) (*domain.Exercise, error) {
	if err := validateExerciseInput(in); err != nil {
		return nil, err
	}
	exercise, err := s.GetExercise(ctx, id)
	if err != nil {
		return nil, err
	}

	var released []string
	if in.VideoURL != exercise.VideoURL && exercise.VideoKey != "" {
		released = append(released, exercise.VideoKey)
		exercise.VideoKey = ""
	}
	if in.ImageURL != exercise.ImageURL && exercise.ImageKey != "" {
		released = append(released, exercise.ImageKey)
		exercise.ImageKey = ""
	}

	exercise.Name = strings.TrimSpace(in.Name)
	exercise.Description = in.Description
	exercise.MuscleGroups = nonNil(in.MuscleGroups)
	exercise.Equipment = nonNil(in.Equipment)
	exercise.Difficulty = in.Difficulty
	exercise.Instructions = nonNil(in.Instructions)
	exercise.VideoURL = in.VideoURL
	exercise.ImageURL = in.ImageURL

	if err := s.exerciseRepo.Update(ctx, exercise); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	for _, key := range released {
		discardObject(ctx, s.files, s.log, key)
	}
	return exercise, nil
}

func (s *exerciseService) DeleteExercise(ctx context.Context, id primitive.ObjectID) error {
	exercise, err := s.GetExercise(ctx, id)
	if err != nil {
		return err
	}
	if err := s.exerciseRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrExerciseNotFound
		}
		return err
	}
	discardObject(ctx, s.files, s.log, exercise.ImageKey)
	discardObject(ctx, s.files, s.log, exercise.VideoKey)
	return nil
}

func (s *exerciseService) UploadMedia(ctx context.Context, id primitive.ObjectID, kind MediaKind, file Upload) (*domain.Exercise, error) {
	switch kind {
	case MediaImage:
		if err := validateUpload(file, "image", maxImageSize); err != nil {
			return nil, err
		}
	case MediaVideo:
		if err := validateUpload(file, "video", maxVideoSize); err != nil {
			return nil, err
		}
	default:
		return nil, validationError("media kind must be image or video, got %q", kind)
	}

	exercise, err := s.GetExercise(ctx, id)
	if err != nil {
		return nil, err
	}
	key, url, err := storeUpload(ctx, s.files, exerciseMediaFolder+"/"+string(kind)+"s", file)
	if err != nil {
		return nil, fmt.Errorf("store exercise %s: %w", kind, err)
	}

	var oldKey string
	if kind == MediaImage {
		oldKey, exercise.ImageKey, exercise.ImageURL = exercise.ImageKey, key, url
	} else {
		oldKey, exercise.VideoKey, exercise.VideoURL = exercise.VideoKey, key, url
	}
	if err := s.exerciseRepo.Update(ctx, exercise); err != nil {
		discardObject(ctx, s.files, s.log, key)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	discardObject(ctx, s.files, s.log, oldKey)
	s.log.Info("exercise_media_updated",
		zap.String("exercise_id", id.Hex()),
		zap.String("kind", string(kind)),
		zap.String("key", key),
	)
	return exercise, nil
}

func (s *exerciseService) MediaURL(ctx context.Context, id primitive.ObjectID, kind MediaKind) (string, error) {
	exercise, err := s.GetExercise(ctx, id)
	if err != nil {
		return "", err
	}

	var key, url string
	switch kind {
	case MediaImage:
		key, url = exercise.ImageKey, exercise.ImageURL
	case MediaVideo:
		key, url = exercise.VideoKey, exercise.VideoURL
	default:
		return "", validationError("media kind must be image or video, got %q", kind)
	}
	if key == "" {
		if url == "" {
			return "", ErrMediaNotFound
		}
		return url, nil
	}

	signed, err := s.files.PresignGetURL(ctx, key, 0)
	if err != nil {
		return "", fmt.Errorf("presign exercise %s: %w", kind, err)
	}
	return signed, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
