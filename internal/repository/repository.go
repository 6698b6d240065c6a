package repository

import (
	"context"
	"errors"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// DuplicateKeyError is returned when a write violates the unique index over
// Field. It matches ErrDuplicate with errors.Is.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return "duplicate key: " + e.Field
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicate
}

// DuplicateField returns the field named by a DuplicateKeyError in err's
// chain, or "" when the duplicate field is unknown.
func DuplicateField(err error) string {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Field
	}
	return ""
}

// Transactor runs fn atomically. Repository calls made with the ctx passed to
// fn take part in the transaction; if fn returns an error nothing is persisted.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	SetRole(ctx context.Context, id primitive.ObjectID, role domain.Role) error
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.User, error)
}

// ClientFilter narrows a client listing. Zero values mean "no constraint".
type ClientFilter struct {
	Search             string
	SubscriptionTypes  []domain.SubscriptionType
	SubscriptionStatus domain.SubscriptionStatus
	BornOnOrBefore     *time.Time // min age
	BornAfter          *time.Time // max age
	HasIdentity        *bool
	HasGoals           *bool
	// HasRoutines and RoutineCount look at active assignments only.
	HasRoutines  *bool
	RoutineCount *int
	Today        time.Time
}

type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Client, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Client, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, error)
	Update(ctx context.Context, client *domain.Client) error
	LinkUser(ctx context.Context, clientID, userID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type ExerciseFilter struct {
	Difficulty  domain.Difficulty
	MuscleGroup string
	Search      string
}

type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	List(ctx context.Context, filter ExerciseFilter) ([]domain.Exercise, error)
	CountByIDs(ctx context.Context, ids []primitive.ObjectID) (int, error)
	Update(ctx context.Context, exercise *domain.Exercise) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type WorkoutFilter struct {
	Category   domain.WorkoutCategory
	Difficulty domain.Difficulty
	Search     string
}

type WorkoutRepository interface {
	Create(ctx context.Context, workout *domain.Workout) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	List(ctx context.Context, filter WorkoutFilter) ([]domain.Workout, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Workout, error)
	Update(ctx context.Context, workout *domain.Workout) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type RoutineFilter struct {
	Frequency domain.Frequency
	Search    string
}

// RoutineStats summarizes the routine catalog.
type RoutineStats struct {
	Total          int
	ByFrequency    []FrequencyCount
	Duration       ValueRange // weeks
	DaysPerWeek    ValueRange
	ByWorkoutCount []WorkoutCountBucket
	// Popular holds the routines with the most distinct assigned clients.
	Popular []PopularRoutine
}

type FrequencyCount struct {
	Frequency domain.Frequency
	Count     int
}

type ValueRange struct {
	Avg float64
	Min int
	Max int
}

// WorkoutCountBucket counts the routines that hold Workouts workouts.
type WorkoutCountBucket struct {
	Workouts int
	Routines int
}

type PopularRoutine struct {
	ID          primitive.ObjectID
	Name        string
	Frequency   domain.Frequency
	Duration    int
	ClientCount int
}

type RoutineRepository interface {
	Create(ctx context.Context, routine *domain.Routine) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Routine, error)
	List(ctx context.Context, filter RoutineFilter) ([]domain.Routine, error)
	ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Routine, error)
	Update(ctx context.Context, routine *domain.Routine) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// Statistics aggregates the catalog; Popular has at most topN entries.
	Statistics(ctx context.Context, topN int) (*RoutineStats, error)
}

type ClientRoutineFilter struct {
	ClientID  *primitive.ObjectID
	RoutineID *primitive.ObjectID
	IsActive  *bool
}

// ClientRoutineRepository stores routine assignments. Create and Update must
// return ErrDuplicate when they would produce a second active row for the
// same (client, routine) pair.
type ClientRoutineRepository interface {
	Create(ctx context.Context, assignment *domain.ClientRoutine) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ClientRoutine, error)
	FindActive(ctx context.Context, clientID, routineID primitive.ObjectID) (*domain.ClientRoutine, error)
	// List returns assignments ordered by start date, newest first.
	List(ctx context.Context, filter ClientRoutineFilter) ([]domain.ClientRoutine, error)
	Update(ctx context.Context, assignment *domain.ClientRoutine) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error
}

type RoutineProgressFilter struct {
	ClientRoutineID *primitive.ObjectID
	ClientID        *primitive.ObjectID
	WorkoutID       *primitive.ObjectID
}

type RoutineProgressRepository interface {
	Create(ctx context.Context, event *domain.RoutineProgress) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.RoutineProgress, error)
	// List returns events ordered by completion time, newest first.
	List(ctx context.Context, filter RoutineProgressFilter) ([]domain.RoutineProgress, error)
	// Update writes the notes and rating of an event.
	Update(ctx context.Context, event *domain.RoutineProgress) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByClientRoutineID(ctx context.Context, clientRoutineID primitive.ObjectID) error
	DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error
}

type ProgressRepository interface {
	Create(ctx context.Context, snapshot *domain.ProgressSnapshot) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ProgressSnapshot, error)
	// ListByClientID returns snapshots ordered by date, newest first.
	ListByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.ProgressSnapshot, error)
	// Update rewrites the measured values of a snapshot. ClientID and
	// CreatedAt are never changed.
	Update(ctx context.Context, snapshot *domain.ProgressSnapshot) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error
}

type GoalFilter struct {
	ClientID  *primitive.ObjectID
	Completed *bool
	Category  domain.GoalCategory
}

type GoalRepository interface {
	Create(ctx context.Context, goal *domain.Goal) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Goal, error)
	// List returns goals ordered by deadline, earliest first.
	List(ctx context.Context, filter GoalFilter) ([]domain.Goal, error)
	UpdateProgress(ctx context.Context, id primitive.ObjectID, currentValue float64, isCompleted bool) error
	// Update writes every mutable field of a goal, completion included.
	Update(ctx context.Context, goal *domain.Goal) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByClientID(ctx context.Context, clientID primitive.ObjectID) error
}
