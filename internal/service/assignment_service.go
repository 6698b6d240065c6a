package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AssignmentInput struct {
	ClientID  primitive.ObjectID
	RoutineID primitive.ObjectID
	StartDate *time.Time // defaults to today
	EndDate   *time.Time
	// AssignedDays is decoded JSON: a list of weekday names or a map of
	// weekday name to boolean.
	AssignedDays any
}

type CompletionInput struct {
	WorkoutID primitive.ObjectID
	Notes     string
	Rating    *int
	// OwnerID, when set, must be the client of the assignment.
	OwnerID *primitive.ObjectID
}

// AssignmentUpdate changes an assignment. Nil fields are left as they are.
type AssignmentUpdate struct {
	StartDate *time.Time
	EndDate   *time.Time
	// ClearEndDate removes the end date; EndDate is ignored when set.
	ClearEndDate bool
	IsActive     *bool
	// AssignedDays uses the same shapes as AssignmentInput.
	AssignedDays any
}

// CompletionUpdate corrects a logged session. Nil fields are left as they are.
type CompletionUpdate struct {
	Notes  *string
	Rating *int
	// ClearRating removes the rating; Rating is ignored when set.
	ClearRating bool
}

// ActiveRoutine is a routine together with the assignment that makes it
// active for a client.
type ActiveRoutine struct {
	Assignment domain.ClientRoutine
	Routine    domain.Routine
}

type AssignmentService interface {
	// Assign creates an active assignment. An existing active assignment for
	// the same client and routine is a conflict.
	Assign(ctx context.Context, input AssignmentInput) (*domain.ClientRoutine, error)
	GetAssignment(ctx context.Context, id primitive.ObjectID) (*domain.ClientRoutine, error)
	ListAssignments(ctx context.Context, filter repository.ClientRoutineFilter) ([]domain.ClientRoutine, error)
	// UpdateAssignment edits an assignment. Reactivating a row while another
	// is active for the same client and routine is a conflict.
	UpdateAssignment(ctx context.Context, id primitive.ObjectID, update AssignmentUpdate) (*domain.ClientRoutine, error)
	// Deactivate ends an assignment, keeping an end date that was already set.
	Deactivate(ctx context.Context, id primitive.ObjectID) (*domain.ClientRoutine, error)
	// DeleteAssignment removes an assignment together with its logged sessions.
	DeleteAssignment(ctx context.Context, id primitive.ObjectID) error

	LogCompletion(ctx context.Context, assignmentID primitive.ObjectID, input CompletionInput) (*domain.RoutineProgress, error)
	CompletionHistory(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.RoutineProgress, error)
	ListCompletions(ctx context.Context, filter repository.RoutineProgressFilter) ([]domain.RoutineProgress, error)
	GetCompletion(ctx context.Context, id primitive.ObjectID) (*domain.RoutineProgress, error)
	UpdateCompletion(ctx context.Context, id primitive.ObjectID, update CompletionUpdate) (*domain.RoutineProgress, error)
	DeleteCompletion(ctx context.Context, id primitive.ObjectID) error
	// ActiveRoutinesFor lists the routines actively assigned to a client,
	// latest start date first.
	ActiveRoutinesFor(ctx context.Context, clientID primitive.ObjectID) ([]ActiveRoutine, error)
}

type assignmentService struct {
	tx                  repository.Transactor
	clientRepo          repository.ClientRepository
	routineRepo         repository.RoutineRepository
	workoutRepo         repository.WorkoutRepository
	clientRoutineRepo   repository.ClientRoutineRepository
	routineProgressRepo repository.RoutineProgressRepository
	now                 func() time.Time
	log                 *zap.Logger
}

type AssignmentRepositories struct {
	Clients         repository.ClientRepository
	Routines        repository.RoutineRepository
	Workouts        repository.WorkoutRepository
	ClientRoutines  repository.ClientRoutineRepository
	RoutineProgress repository.RoutineProgressRepository
}

func NewAssignmentService(tx repository.Transactor, repos AssignmentRepositories, log *zap.Logger) AssignmentService {
	return &assignmentService{
		tx:                  tx,
		clientRepo:          repos.Clients,
		routineRepo:         repos.Routines,
		workoutRepo:         repos.Workouts,
		clientRoutineRepo:   repos.ClientRoutines,
		routineProgressRepo: repos.RoutineProgress,
		now:                 time.Now,
		log:                 log,
	}
}

func (s *assignmentService) Assign(ctx context.Context, in AssignmentInput) (*domain.ClientRoutine, error) {
	days, err := domain.NormalizeAssignedDays(in.AssignedDays)
	if err != nil {
		return nil, fmt.Errorf("%w: assignedDays: %v", ErrValidation, err)
	}
	start := domain.TruncateDay(s.now())
	if in.StartDate != nil {
		start = domain.TruncateDay(*in.StartDate)
	}
	end := truncatePtr(in.EndDate)
	if end != nil && end.Before(start) {
		return nil, validationError("endDate is before startDate")
	}

	assignment := &domain.ClientRoutine{
		ClientID:     in.ClientID,
		RoutineID:    in.RoutineID,
		StartDate:    start,
		EndDate:      end,
		IsActive:     true,
		AssignedDays: days,
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := s.clientRepo.GetByID(ctx, in.ClientID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrClientNotFound
			}
			return err
		}
		routine, err := s.routineRepo.GetByID(ctx, in.RoutineID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrRoutineNotFound
			}
			return err
		}

		conflict := fmt.Errorf("%w: client %q already has routine %q assigned and active", ErrConflict, client.Name, routine.Name)
		if _, err := s.clientRoutineRepo.FindActive(ctx, client.ID, routine.ID); err == nil {
			return conflict
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		// The partial unique index decides between concurrent assignments.
		if _, err := s.clientRoutineRepo.Create(ctx, assignment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return conflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("routine_assigned",
		zap.String("assignment_id", assignment.ID.Hex()),
		zap.String("client_id", in.ClientID.Hex()),
		zap.String("routine_id", in.RoutineID.Hex()),
	)
	return assignment, nil
}

func (s *assignmentService) GetAssignment(ctx context.Context, id primitive.ObjectID) (*domain.ClientRoutine, error) {
	assignment, err := s.clientRoutineRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return assignment, nil
}

func (s *assignmentService) ListAssignments(ctx context.Context, filter repository.ClientRoutineFilter) ([]domain.ClientRoutine, error) {
	return s.clientRoutineRepo.List(ctx, filter)
}

func (s *assignmentService) UpdateAssignment(ctx context.Context, id primitive.ObjectID, u AssignmentUpdate) (*domain.ClientRoutine, error) {
	assignment, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.StartDate != nil {
		assignment.StartDate = domain.TruncateDay(*u.StartDate)
	}
	switch {
	case u.ClearEndDate:
		assignment.EndDate = nil
	case u.EndDate != nil:
		assignment.EndDate = truncatePtr(u.EndDate)
	}
	if assignment.EndDate != nil && assignment.EndDate.Before(assignment.StartDate) {
		return nil, validationError("endDate is before startDate")
	}
	if u.AssignedDays != nil {
		days, err := domain.NormalizeAssignedDays(u.AssignedDays)
		if err != nil {
			return nil, fmt.Errorf("%w: assignedDays: %v", ErrValidation, err)
		}
		assignment.AssignedDays = days
	}
	if u.IsActive != nil {
		if *u.IsActive {
			assignment.IsActive = true
		} else if assignment.IsActive {
			assignment.Deactivate(s.now())
		}
	}

	// The partial unique index rejects a second active row for the pair.
	if err := s.clientRoutineRepo.Update(ctx, assignment); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAssignmentNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, fmt.Errorf("%w: client already has this routine assigned and active", ErrConflict)
		}
		return nil, err
	}
	s.log.Info("routine_assignment_updated",
		zap.String("assignment_id", id.Hex()),
		zap.Bool("is_active", assignment.IsActive),
	)
	return assignment, nil
}

func (s *assignmentService) Deactivate(ctx context.Context, id primitive.ObjectID) (*domain.ClientRoutine, error) {
	assignment, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !assignment.IsActive {
		return assignment, nil
	}
	assignment.Deactivate(s.now())
	if err := s.clientRoutineRepo.Update(ctx, assignment); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	s.log.Info("routine_deactivated", zap.String("assignment_id", id.Hex()))
	return assignment, nil
}

func (s *assignmentService) DeleteAssignment(ctx context.Context, id primitive.ObjectID) error {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.clientRoutineRepo.Delete(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAssignmentNotFound
			}
			return err
		}
		return s.routineProgressRepo.DeleteByClientRoutineID(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("routine_assignment_deleted", zap.String("assignment_id", id.Hex()))
	return nil
}

func (s *assignmentService) LogCompletion(ctx context.Context, assignmentID primitive.ObjectID, in CompletionInput) (*domain.RoutineProgress, error) {
	if in.Rating != nil && *in.Rating <= 0 {
		return nil, ErrInvalidRating
	}
	assignment, err := s.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if in.OwnerID != nil && *in.OwnerID != assignment.ClientID {
		return nil, fmt.Errorf("%w: assignment belongs to another client", ErrForbidden)
	}
	if _, err := s.workoutRepo.GetByID(ctx, in.WorkoutID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, err
	}

	event := &domain.RoutineProgress{
		ClientRoutineID: assignment.ID,
		ClientID:        assignment.ClientID,
		WorkoutID:       in.WorkoutID,
		CompletedAt:     s.now().UTC(),
		Notes:           in.Notes,
		Rating:          in.Rating,
	}
	if _, err := s.routineProgressRepo.Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *assignmentService) CompletionHistory(ctx context.Context, assignmentID primitive.ObjectID) ([]domain.RoutineProgress, error) {
	if _, err := s.GetAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}
	return s.routineProgressRepo.List(ctx, repository.RoutineProgressFilter{ClientRoutineID: &assignmentID})
}

func (s *assignmentService) ListCompletions(ctx context.Context, filter repository.RoutineProgressFilter) ([]domain.RoutineProgress, error) {
	return s.routineProgressRepo.List(ctx, filter)
}

func (s *assignmentService) GetCompletion(ctx context.Context, id primitive.ObjectID) (*domain.RoutineProgress, error) {
	event, err := s.routineProgressRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCompletionNotFound
		}
		return nil, err
	}
	return event, nil
}

// UpdateCompletion corrects the notes and rating of a session. The
// assignment, workout and completion time are fixed once logged.
func (s *assignmentService) UpdateCompletion(ctx context.Context, id primitive.ObjectID, u CompletionUpdate) (*domain.RoutineProgress, error) {
	if !u.ClearRating && u.Rating != nil && *u.Rating <= 0 {
		return nil, ErrInvalidRating
	}
	event, err := s.GetCompletion(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Notes != nil {
		event.Notes = *u.Notes
	}
	switch {
	case u.ClearRating:
		event.Rating = nil
	case u.Rating != nil:
		rating := *u.Rating
		event.Rating = &rating
	}
	if err := s.routineProgressRepo.Update(ctx, event); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCompletionNotFound
		}
		return nil, err
	}
	return event, nil
}

func (s *assignmentService) DeleteCompletion(ctx context.Context, id primitive.ObjectID) error {
	if err := s.routineProgressRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCompletionNotFound
		}
		return err
	}
	return nil
}

func (s *assignmentService) ActiveRoutinesFor(ctx context.Context, clientID primitive.ObjectID) ([]ActiveRoutine, error) {
	if _, err := s.clientRepo.GetByID(ctx, clientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	active := true
	assignments, err := s.clientRoutineRepo.List(ctx, repository.ClientRoutineFilter{ClientID: &clientID, IsActive: &active})
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return []ActiveRoutine{}, nil
	}

	ids := make([]primitive.ObjectID, len(assignments))
	for i, a := range assignments {
		ids[i] = a.RoutineID
	}
	routines, err := s.routineRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]domain.Routine, len(routines))
	for _, r := range routines {
		byID[r.ID] = r
	}

	// assignments arrive ordered by start date, newest first
	result := make([]ActiveRoutine, 0, len(assignments))
	for _, a := range assignments {
		routine, ok := byID[a.RoutineID]
		if !ok {
			s.log.Warn("assigned_routine_missing", zap.String("assignment_id", a.ID.Hex()))
			continue
		}
		result = append(result, ActiveRoutine{Assignment: a, Routine: routine})
	}
	return result, nil
}
