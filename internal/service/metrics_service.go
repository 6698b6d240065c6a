package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type SnapshotInput struct {
	ClientID     primitive.ObjectID
	Date         *time.Time // defaults to today
	Weight       float64
	BodyFat      *float64
	MuscleMass   *float64
	Measurements map[string]float64
	Photos       []string
}

// SnapshotCorrection rewrites measured values of a recorded snapshot. Nil
// fields are left as they are.
type SnapshotCorrection struct {
	Date         *time.Time
	Weight       *float64
	BodyFat      *float64
	MuscleMass   *float64
	Measurements map[string]float64
	Photos       []string
}

// GoalUpdate edits a goal. Nil fields are left as they are; completion is
// recomputed from the resulting values.
type GoalUpdate struct {
	Title        *string
	Description  *string
	TargetValue  *float64
	CurrentValue *float64
	Unit         *string
	Deadline     *time.Time
	Category     *domain.GoalCategory
}

type GoalInput struct {
	ClientID     primitive.ObjectID
	Title        string
	Description  string
	TargetValue  float64
	CurrentValue float64
	Unit         string
	Deadline     time.Time
	Category     domain.GoalCategory
}

// MetricsService tracks body metrics snapshots and client goals.
type MetricsService interface {
	// RecordSnapshot appends a snapshot. Snapshots are never deduplicated,
	// several may share a date.
	RecordSnapshot(ctx context.Context, input SnapshotInput) (*domain.ProgressSnapshot, error)
	ListSnapshots(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressSnapshot, error)
	GetSnapshot(ctx context.Context, id primitive.ObjectID) (*domain.ProgressSnapshot, error)
	// CorrectSnapshot is the only way a recorded snapshot changes. The client
	// of a snapshot never changes.
	CorrectSnapshot(ctx context.Context, id primitive.ObjectID, correction SnapshotCorrection) (*domain.ProgressSnapshot, error)
	DeleteSnapshot(ctx context.Context, id primitive.ObjectID) error

	CreateGoal(ctx context.Context, input GoalInput) (*domain.Goal, error)
	GetGoal(ctx context.Context, id primitive.ObjectID) (*domain.Goal, error)
	// UpdateGoalProgress sets the current value and recomputes completion.
	// A nil value is a validation error.
	UpdateGoalProgress(ctx context.Context, id primitive.ObjectID, currentValue *float64) (*domain.Goal, error)
	UpdateGoal(ctx context.Context, id primitive.ObjectID, update GoalUpdate) (*domain.Goal, error)
	ListGoals(ctx context.Context, filter repository.GoalFilter) ([]domain.Goal, error)
	DeleteGoal(ctx context.Context, id primitive.ObjectID) error
}

type metricsService struct {
	clientRepo   repository.ClientRepository
	progressRepo repository.ProgressRepository
	goalRepo     repository.GoalRepository
	now          func() time.Time
	log          *zap.Logger
}

func NewMetricsService(clientRepo repository.ClientRepository, progressRepo repository.ProgressRepository, goalRepo repository.GoalRepository, log *zap.Logger) MetricsService {
	return &metricsService{
		clientRepo:   clientRepo,
		progressRepo: progressRepo,
		goalRepo:     goalRepo,
		now:          time.Now,
		log:          log,
	}
}

func (s *metricsService) requireClient(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.clientRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	return nil
}

func validateSnapshot(weight float64, bodyFat, muscleMass *float64, measurements map[string]float64) error {
	if weight <= 0 {
		return validationError("weight must be positive")
	}
	if (bodyFat != nil && (*bodyFat < 0 || *bodyFat > 100)) || (muscleMass != nil && *muscleMass < 0) {
		return validationError("bodyFat must be a percentage and muscleMass non-negative")
	}
	for name := range measurements {
		if strings.TrimSpace(name) == "" {
			return validationError("measurement names cannot be empty")
		}
	}
	return nil
}

func (s *metricsService) RecordSnapshot(ctx context.Context, in SnapshotInput) (*domain.ProgressSnapshot, error) {
	if err := validateSnapshot(in.Weight, in.BodyFat, in.MuscleMass, in.Measurements); err != nil {
		return nil, err
	}
	if err := s.requireClient(ctx, in.ClientID); err != nil {
		return nil, err
	}

	date := domain.TruncateDay(s.now())
	if in.Date != nil {
		date = domain.TruncateDay(*in.Date)
	}
	measurements := in.Measurements
	if measurements == nil {
		measurements = map[string]float64{}
	}
	snapshot := &domain.ProgressSnapshot{
		ClientID:     in.ClientID,
		Date:         date,
		Weight:       in.Weight,
		BodyFat:      in.BodyFat,
		MuscleMass:   in.MuscleMass,
		Measurements: measurements,
		Photos:       in.Photos,
	}
	if _, err := s.progressRepo.Create(ctx, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *metricsService) ListSnapshots(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressSnapshot, error) {
	if err := s.requireClient(ctx, clientID); err != nil {
		return nil, err
	}
	return s.progressRepo.ListByClientID(ctx, clientID)
}

func (s *metricsService) GetSnapshot(ctx context.Context, id primitive.ObjectID) (*domain.ProgressSnapshot, error) {
	snapshot, err := s.progressRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	return snapshot, nil
}

func (s *metricsService) CorrectSnapshot(ctx context.Context, id primitive.ObjectID, c SnapshotCorrection) (*domain.ProgressSnapshot, error) {
	snapshot, err := s.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *snapshot
	if c.Date != nil {
		next.Date = domain.TruncateDay(*c.Date)
	}
	if c.Weight != nil {
		next.Weight = *c.Weight
	}
	if c.BodyFat != nil {
		next.BodyFat = c.BodyFat
	}
	if c.MuscleMass != nil {
		next.MuscleMass = c.MuscleMass
	}
	if c.Measurements != nil {
		next.Measurements = c.Measurements
	}
	if c.Photos != nil {
		next.Photos = c.Photos
	}
	if err := validateSnapshot(next.Weight, next.BodyFat, next.MuscleMass, next.Measurements); err != nil {
		return nil, err
	}

	if err := s.progressRepo.Update(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	s.log.Info("progress_snapshot_corrected",
		zap.String("snapshot_id", id.Hex()),
		zap.String("client_id", next.ClientID.Hex()),
	)
	return &next, nil
}

func (s *metricsService) DeleteSnapshot(ctx context.Context, id primitive.ObjectID) error {
	if err := s.progressRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSnapshotNotFound
		}
		return err
	}
	return nil
}

func (s *metricsService) CreateGoal(ctx context.Context, in GoalInput) (*domain.Goal, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, validationError("goal title is required")
	}
	if strings.TrimSpace(in.Unit) == "" {
		return nil, validationError("goal unit is required")
	}
	if in.Deadline.IsZero() {
		return nil, validationError("goal deadline is required")
	}
	category := in.Category
	if category == "" {
		category = domain.GoalCustom
	}
	if !category.Valid() {
		return nil, validationError("unknown goal category %q", in.Category)
	}
	if err := s.requireClient(ctx, in.ClientID); err != nil {
		return nil, err
	}

	goal := &domain.Goal{
		ClientID:    in.ClientID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		TargetValue: in.TargetValue,
		Unit:        in.Unit,
		Deadline:    domain.TruncateDay(in.Deadline),
		Category:    category,
	}
	goal.SetCurrentValue(in.CurrentValue)
	if _, err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

func (s *metricsService) GetGoal(ctx context.Context, id primitive.ObjectID) (*domain.Goal, error) {
	goal, err := s.goalRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return goal, nil
}

func (s *metricsService) UpdateGoalProgress(ctx context.Context, id primitive.ObjectID, currentValue *float64) (*domain.Goal, error) {
	if currentValue == nil {
		return nil, ErrCurrentValueRequired
	}
	goal, err := s.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	wasCompleted := goal.IsCompleted
	goal.SetCurrentValue(*currentValue)

	// Both fields go out in a single document update.
	if err := s.goalRepo.UpdateProgress(ctx, goal.ID, goal.CurrentValue, goal.IsCompleted); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	goal.UpdatedAt = s.now().UTC()
	if goal.IsCompleted && !wasCompleted {
		s.log.Info("goal_completed", zap.String("goal_id", goal.ID.Hex()), zap.String("client_id", goal.ClientID.Hex()))
	}
	return goal, nil
}

func (s *metricsService) UpdateGoal(ctx context.Context, id primitive.ObjectID, u GoalUpdate) (*domain.Goal, error) {
	goal, err := s.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	wasCompleted := goal.IsCompleted

	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return nil, validationError("goal title is required")
		}
		goal.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		goal.Description = *u.Description
	}
	if u.Unit != nil {
		if strings.TrimSpace(*u.Unit) == "" {
			return nil, validationError("goal unit is required")
		}
		goal.Unit = *u.Unit
	}
	if u.Deadline != nil {
		goal.Deadline = domain.TruncateDay(*u.Deadline)
	}
	if u.Category != nil {
		if !u.Category.Valid() {
			return nil, validationError("unknown goal category %q", *u.Category)
		}
		goal.Category = *u.Category
	}
	if u.TargetValue != nil {
		goal.TargetValue = *u.TargetValue
	}
	current := goal.CurrentValue
	if u.CurrentValue != nil {
		current = *u.CurrentValue
	}
	// a new target alone can flip completion
	goal.SetCurrentValue(current)

	if err := s.goalRepo.Update(ctx, goal); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	if goal.IsCompleted && !wasCompleted {
		s.log.Info("goal_completed", zap.String("goal_id", goal.ID.Hex()), zap.String("client_id", goal.ClientID.Hex()))
	}
	return goal, nil
}

func (s *metricsService) ListGoals(ctx context.Context, filter repository.GoalFilter) ([]domain.Goal, error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, validationError("unknown goal category %q", filter.Category)
	}
	return s.goalRepo.List(ctx, filter)
}

func (s *metricsService) DeleteGoal(ctx context.Context, id primitive.ObjectID) error {
	if err := s.goalRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrGoalNotFound
		}
		return err
	}
	return nil
}
