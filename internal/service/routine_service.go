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

type RoutineInput struct {
	Name          string
	Description   string
	WorkoutIDs    []primitive.ObjectID
	Frequency     domain.Frequency
	DaysPerWeek   int
	Duration      int // weeks
	ScheduledDays []domain.Weekday
}

// popularRoutineLimit caps the popular routines returned by Statistics.
const popularRoutineLimit = 10

type RoutineService interface {
	CreateRoutine(ctx context.Context, input RoutineInput) (*domain.Routine, error)
	GetRoutine(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error)
	ListRoutines(ctx context.Context, filter repository.RoutineFilter) ([]domain.Routine, error)
	// RoutineWorkouts returns the workouts of a routine in routine order.
	RoutineWorkouts(ctx context.Context, id primitive.ObjectID) ([]domain.Workout, error)
	UpdateRoutine(ctx context.Context, id primitive.ObjectID, input RoutineInput) (*domain.Routine, error)
	// DeleteRoutine refuses routines that were ever assigned, so that the
	// assignment history keeps pointing at an existing routine.
	DeleteRoutine(ctx context.Context, id primitive.ObjectID) error
	// Statistics summarizes the catalog and lists the ten routines assigned
	// to the most distinct clients.
	Statistics(ctx context.Context) (*repository.RoutineStats, error)
}

type routineService struct {
	routineRepo       repository.RoutineRepository
	workoutRepo       repository.WorkoutRepository
	clientRoutineRepo repository.ClientRoutineRepository
	log               *zap.Logger
}

func NewRoutineService(routineRepo repository.RoutineRepository, workoutRepo repository.WorkoutRepository, clientRoutineRepo repository.ClientRoutineRepository, log *zap.Logger) RoutineService {
	return &routineService{
		routineRepo:       routineRepo,
		workoutRepo:       workoutRepo,
		clientRoutineRepo: clientRoutineRepo,
		log:               log,
	}
}

func (s *routineService) validate(ctx context.Context, in RoutineInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("routine name is required")
	}
	if !in.Frequency.Valid() {
		return validationError("unknown frequency %q", in.Frequency)
	}
	if in.DaysPerWeek < 1 || in.DaysPerWeek > 7 {
		return validationError("daysPerWeek must be between 1 and 7")
	}
	if in.Duration < 1 {
		return validationError("duration must be at least one week")
	}
	for _, d := range in.ScheduledDays {
		if _, err := domain.ParseWeekday(string(d)); err != nil {
			return validationError("%v", err)
		}
	}
	if len(in.WorkoutIDs) == 0 {
		return nil
	}
	// A workout may appear several times in a routine.
	workouts, err := s.workoutRepo.ListByIDs(ctx, in.WorkoutIDs)
	if err != nil {
		return err
	}
	found := make(map[primitive.ObjectID]bool, len(workouts))
	for _, w := range workouts {
		found[w.ID] = true
	}
	for _, id := range in.WorkoutIDs {
		if !found[id] {
			return ErrWorkoutNotFound
		}
	}
	return nil
}

func (s *routineService) CreateRoutine(ctx context.Context, in RoutineInput) (*domain.Routine, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	routine := &domain.Routine{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		WorkoutIDs:    in.WorkoutIDs,
		Frequency:     in.Frequency,
		DaysPerWeek:   in.DaysPerWeek,
		Duration:      in.Duration,
		ScheduledDays: canonicalDays(in.ScheduledDays),
	}
	if _, err := s.routineRepo.Create(ctx, routine); err != nil {
		return nil, err
	}
	return routine, nil
}

// canonicalDays orders days Monday first and drops repeats.
func canonicalDays(days []domain.Weekday) []domain.Weekday {
	raw := make([]string, len(days))
	for i, d := range days {
		raw[i] = string(d)
	}
	normalized, err := domain.NormalizeAssignedDays(raw)
	if err != nil {
		return days
	}
	return normalized
}

func (s *routineService) GetRoutine(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	routine, err := s.routineRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}
	return routine, nil
}

func (s *routineService) ListRoutines(ctx context.Context, filter repository.RoutineFilter) ([]domain.Routine, error) {
	if filter.Frequency != "" && !filter.Frequency.Valid() {
		return nil, validationError("unknown frequency %q", filter.Frequency)
	}
	return s.routineRepo.List(ctx, filter)
}

func (s *routineService) RoutineWorkouts(ctx context.Context, id primitive.ObjectID) ([]domain.Workout, error) {
	routine, err := s.GetRoutine(ctx, id)
	if err != nil {
		return nil, err
	}
	workouts, err := s.workoutRepo.ListByIDs(ctx, routine.WorkoutIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.Workout, len(workouts))
	for _, w := range workouts {
		byID[w.ID] = w
	}
	ordered := make([]domain.Workout, 0, len(routine.WorkoutIDs))
	for _, wid := range routine.WorkoutIDs {
		if w, ok := byID[wid]; ok {
			ordered = append(ordered, w)
		}
	}
	return ordered, nil
}

func (s *routineService) UpdateRoutine(ctx context.Context, id primitive.ObjectID, in RoutineInput) (*domain.Routine, error) {
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}
	routine, err := s.GetRoutine(ctx, id)
	if err != nil {
		return nil, err
	}
	routine.Name = strings.TrimSpace(in.Name)
	routine.Description = in.Description
	routine.WorkoutIDs = in.WorkoutIDs
	routine.Frequency = in.Frequency
	routine.DaysPerWeek = in.DaysPerWeek
	routine.Duration = in.Duration
	routine.ScheduledDays = canonicalDays(in.ScheduledDays)
	if err := s.routineRepo.Update(ctx, routine); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoutineNotFound
		}
		return nil, err
	}
	return routine, nil
}

func (s *routineService) DeleteRoutine(ctx context.Context, id primitive.ObjectID) error {
	assignments, err := s.clientRoutineRepo.List(ctx, repository.ClientRoutineFilter{RoutineID: &id})
	if err != nil {
		return err
	}
	if len(assignments) > 0 {
		return ErrRoutineInUse
	}
	if err := s.routineRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoutineNotFound
		}
		return err
	}
	s.log.Info("routine_deleted", zap.String("routine_id", id.Hex()))
	return nil
}

func (s *routineService) Statistics(ctx context.Context) (*repository.RoutineStats, error) {
	return s.routineRepo.Statistics(ctx, popularRoutineLimit)
}
