package service

import (
	"context"
	"errors"
	"strings"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type WorkoutInput struct {
	Name              string
	Description       string
	EstimatedDuration int
	Difficulty        domain.Difficulty
	Category          domain.WorkoutCategory
	Sets              []domain.WorkoutSet
}

type WorkoutService interface {
	CreateWorkout(ctx context.Context, input WorkoutInput) (*domain.Workout, error)
	GetWorkout(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	ListWorkouts(ctx context.Context, filter repository.WorkoutFilter) ([]domain.Workout, error)
	UpdateWorkout(ctx context.Context, id primitive.ObjectID, input WorkoutInput) (*domain.Workout, error)
	DeleteWorkout(ctx context.Context, id primitive.ObjectID) error
}

type workoutService struct {
	workoutRepo  repository.WorkoutRepository
	exerciseRepo repository.ExerciseRepository
	log          *zap.Logger
}

func NewWorkoutService(workoutRepo repository.WorkoutRepository, exerciseRepo repository.ExerciseRepository, log *zap.Logger) WorkoutService {
	return &workoutService{
		workoutRepo:  workoutRepo,
		exerciseRepo: exerciseRepo,
		log:          log,
	}
}

func (s *workoutService) validate(ctx context.Context, in WorkoutInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("workout name is required")
	}
	if !in.Difficulty.Valid() {
		return validationError("unknown difficulty %q", in.Difficulty)
	}
	if !in.Category.Valid() {
		return validationError("unknown category %q", in.Category)
	}
	if in.EstimatedDuration < 0 {
		return validationError("estimatedDuration cannot be negative")
	}

	seen := map[primitive.ObjectID]bool{}
	var ids []primitive.ObjectID
	for i, set := range in.Sets {
		if set.ExerciseID.IsZero() {
			return validationError("set %d has no exercise", i)
		}
		if set.Reps <= 0 || set.Weight < 0 || set.RestTime < 0 {
			return validationError("set %d: reps must be positive, weight and restTime non-negative", i)
		}
		if !seen[set.ExerciseID] {
			seen[set.ExerciseID] = true
			ids = append(ids, set.ExerciseID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	n, err := s.exerciseRepo.CountByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if n != len(ids) {
		return ErrExerciseNotFound
	}
	return nil
}

func (s *workoutService) CreateWorkout(ctx context.Context, in WorkoutInput) (*domain.Workout, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	workout := &domain.Workout{
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		EstimatedDuration: in.EstimatedDuration,
		Difficulty:        in.Difficulty,
		Category:          in.Category,
		Sets:              in.Sets,
	}
	if _, err := s.workoutRepo.Create(ctx, workout); err != nil {
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) GetWorkout(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	workout, err := s.workoutRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) ListWorkouts(ctx context.Context, filter repository.WorkoutFilter) ([]domain.Workout, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, validationError("unknown category %q", filter.Category)
	}
	if filter.Difficulty != "" && !filter.Difficulty.Valid() {
		return nil, validationError("unknown difficulty %q", filter.Difficulty)
	}
	return s.workoutRepo.List(ctx, filter)
}

func (s *workoutService) UpdateWorkout(ctx context.Context, id primitive.ObjectID, in WorkoutInput) (*domain.Workout, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	workout, err := s.GetWorkout(ctx, id)
	if err != nil {
		return nil, err
	}
	workout.Name = strings.TrimSpace(in.Name)
	workout.Description = in.Description
	workout.EstimatedDuration = in.EstimatedDuration
	workout.Difficulty = in.Difficulty
	workout.Category = in.Category
	workout.Sets = in.Sets
	if err := s.workoutRepo.Update(ctx, workout); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}
	return workout, nil
}

func (s *workoutService) DeleteWorkout(ctx context.Context, id primitive.ObjectID) error {
	if err := s.workoutRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		return err
	}
	s.log.Info("workout_deleted", zap.String("workout_id", id.Hex()))
	return nil
}
