package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// memStore keeps every collection in memory. WithinTransaction snapshots the
// store and restores it when fn fails, which is what the services rely on.
type memStore struct {
	mu sync.Mutex
	// txMu serializes transactions so a rollback never drops the writes of
	// a concurrent one.
	txMu sync.Mutex

	users           map[primitive.ObjectID]domain.User
	clients         map[primitive.ObjectID]domain.Client
	exercises       map[primitive.ObjectID]domain.Exercise
	workouts        map[primitive.ObjectID]domain.Workout
	routines        map[primitive.ObjectID]domain.Routine
	clientRoutines  map[primitive.ObjectID]domain.ClientRoutine
	routineProgress map[primitive.ObjectID]domain.RoutineProgress
	snapshots       map[primitive.ObjectID]domain.ProgressSnapshot
	goals           map[primitive.ObjectID]domain.Goal

	// failUserCreate, when set, is returned by the next users Create.
	failUserCreate error
	txCount        int
}

var _ repository.Transactor = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		users:           map[primitive.ObjectID]domain.User{},
		clients:         map[primitive.ObjectID]domain.Client{},
		exercises:       map[primitive.ObjectID]domain.Exercise{},
		workouts:        map[primitive.ObjectID]domain.Workout{},
		routines:        map[primitive.ObjectID]domain.Routine{},
		clientRoutines:  map[primitive.ObjectID]domain.ClientRoutine{},
		routineProgress: map[primitive.ObjectID]domain.RoutineProgress{},
		snapshots:       map[primitive.ObjectID]domain.ProgressSnapshot{},
		goals:           map[primitive.ObjectID]domain.Goal{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type memSnapshot struct {
	users           map[primitive.ObjectID]domain.User
	clients         map[primitive.ObjectID]domain.Client
	clientRoutines  map[primitive.ObjectID]domain.ClientRoutine
	routineProgress map[primitive.ObjectID]domain.RoutineProgress
	snapshots       map[primitive.ObjectID]domain.ProgressSnapshot
	goals           map[primitive.ObjectID]domain.Goal
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	s.txCount++
	saved := memSnapshot{
		users:           copyMap(s.users),
		clients:         copyMap(s.clients),
		clientRoutines:  copyMap(s.clientRoutines),
		routineProgress: copyMap(s.routineProgress),
		snapshots:       copyMap(s.snapshots),
		goals:           copyMap(s.goals),
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.users = saved.users
		s.clients = saved.clients
		s.clientRoutines = saved.clientRoutines
		s.routineProgress = saved.routineProgress
		s.snapshots = saved.snapshots
		s.goals = saved.goals
		s.mu.Unlock()
		return err
	}
	return nil
}

func stamp(id *primitive.ObjectID, created, updated *time.Time) {
	*id = primitive.NewObjectID()
	now := time.Now().UTC()
	if created != nil {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

// --- users ---

type memUsers struct{ s *memStore }

var _ repository.UserRepository = memUsers{}

func (r memUsers) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failUserCreate; err != nil {
		r.s.failUserCreate = nil
		return primitive.NilObjectID, err
	}
	for _, existing := range r.s.users {
		if existing.Username == u.Username {
			return primitive.NilObjectID, &repository.DuplicateKeyError{Field: "username"}
		}
		if existing.Email == u.Email {
			return primitive.NilObjectID, &repository.DuplicateKeyError{Field: "email"}
		}
	}
	stamp(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	r.s.users[u.ID] = *u
	return u.ID, nil
}

func (r memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r memUsers) SetRole(_ context.Context, id primitive.ObjectID, role domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	r.s.users[id] = u
	return nil
}

func (r memUsers) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- clients ---

type memClients struct{ s *memStore }

var _ repository.ClientRepository = memClients{}

func (r memClients) conflict(c *domain.Client) error {
	for id, existing := range r.s.clients {
		if id == c.ID {
			continue
		}
		if existing.Email == c.Email {
			return &repository.DuplicateKeyError{Field: "email"}
		}
		if existing.Phone == c.Phone {
			return &repository.DuplicateKeyError{Field: "phone"}
		}
	}
	return nil
}

func (r memClients) Create(_ context.Context, c *domain.Client) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.conflict(c); err != nil {
		return primitive.NilObjectID, err
	}
	stamp(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	r.s.clients[c.ID] = *c
	return c.ID, nil
}

func (r memClients) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r memClients) GetByUserID(_ context.Context, userID primitive.ObjectID) (*domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.clients {
		if c.UserID != nil && *c.UserID == userID {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memClients) List(_ context.Context, f repository.ClientFilter) ([]domain.Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Client{}
	for _, c := range r.s.clients {
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name+c.Email+c.Phone), strings.ToLower(f.Search)) {
			continue
		}
		if f.HasIdentity != nil && (c.UserID != nil) != *f.HasIdentity {
			continue
		}
		if f.SubscriptionStatus != "" && c.SubscriptionStatusOn(f.Today) != f.SubscriptionStatus {
			continue
		}
		if f.BornOnOrBefore != nil && c.BirthDate.After(*f.BornOnOrBefore) {
			continue
		}
		if f.BornAfter != nil && !c.BirthDate.After(*f.BornAfter) {
			continue
		}
		if f.HasGoals != nil && (len(c.Goals) > 0) != *f.HasGoals {
			continue
		}
		active := 0
		for _, a := range r.s.clientRoutines {
			if a.ClientID == c.ID && a.IsActive {
				active++
			}
		}
		if f.HasRoutines != nil && (active > 0) != *f.HasRoutines {
			continue
		}
		if f.RoutineCount != nil && active != *f.RoutineCount {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memClients) Update(_ context.Context, c *domain.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.clients[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.conflict(c); err != nil {
		return err
	}
	next := *c
	next.UserID = existing.UserID
	next.UpdatedAt = time.Now().UTC()
	r.s.clients[c.ID] = next
	return nil
}

func (r memClients) LinkUser(_ context.Context, clientID, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, other := range r.s.clients {
		if id != clientID && other.UserID != nil && *other.UserID == userID {
			return &repository.DuplicateKeyError{Field: "userId"}
		}
	}
	c.UserID = &userID
	r.s.clients[clientID] = c
	return nil
}

func (r memClients) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clients[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.clients, id)
	return nil
}

// --- catalog ---

type memExercises struct{ s *memStore }

var _ repository.ExerciseRepository = memExercises{}

func (r memExercises) Create(_ context.Context, e *domain.Exercise) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	r.s.exercises[e.ID] = *e
	return e.ID, nil
}

func (r memExercises) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r memExercises) List(_ context.Context, f repository.ExerciseFilter) ([]domain.Exercise, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Exercise{}
	for _, e := range r.s.exercises {
		if f.Difficulty != "" && e.Difficulty != f.Difficulty {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r memExercises) CountByIDs(_ context.Context, ids []primitive.ObjectID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := r.s.exercises[id]; ok {
			n++
		}
	}
	return n, nil
}

func (r memExercises) Update(_ context.Context, e *domain.Exercise) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.exercises[e.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.exercises[e.ID] = *e
	return nil
}

func (r memExercises) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.exercises[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.exercises, id)
	return nil
}

type memWorkouts struct{ s *memStore }

var _ repository.WorkoutRepository = memWorkouts{}

func (r memWorkouts) Create(_ context.Context, w *domain.Workout) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	r.s.workouts[w.ID] = *w
	return w.ID, nil
}

func (r memWorkouts) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

func (r memWorkouts) List(context.Context, repository.WorkoutFilter) ([]domain.Workout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Workout{}
	for _, w := range r.s.workouts {
		out = append(out, w)
	}
	return out, nil
}

func (r memWorkouts) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Workout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Workout{}
	seen := map[primitive.ObjectID]bool{}
	for _, id := range ids {
		if w, ok := r.s.workouts[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, w)
		}
	}
	return out, nil
}

func (r memWorkouts) Update(_ context.Context, w *domain.Workout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.workouts[w.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.workouts[w.ID] = *w
	return nil
}

func (r memWorkouts) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.workouts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.workouts, id)
	return nil
}

type memRoutines struct{ s *memStore }

var _ repository.RoutineRepository = memRoutines{}

func (r memRoutines) Create(_ context.Context, rt *domain.Routine) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&rt.ID, &rt.CreatedAt, &rt.UpdatedAt)
	r.s.routines[rt.ID] = *rt
	return rt.ID, nil
}

func (r memRoutines) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Routine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.routines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rt, nil
}

func (r memRoutines) List(context.Context, repository.RoutineFilter) ([]domain.Routine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Routine{}
	for _, rt := range r.s.routines {
		out = append(out, rt)
	}
	return out, nil
}

func (r memRoutines) ListByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Routine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Routine{}
	for _, id := range ids {
		if rt, ok := r.s.routines[id]; ok {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (r memRoutines) Update(_ context.Context, rt *domain.Routine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.routines[rt.ID]; !ok {
		return repository.ErrNotFound
	}
	r.s.routines[rt.ID] = *rt
	return nil
}

func (r memRoutines) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.routines[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.routines, id)
	return nil
}

func (r memRoutines) Statistics(_ context.Context, topN int) (*repository.RoutineStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &repository.RoutineStats{
		Total:          len(r.s.routines),
		ByFrequency:    []repository.FrequencyCount{},
		ByWorkoutCount: []repository.WorkoutCountBucket{},
		Popular:        []repository.PopularRoutine{},
	}
	if stats.Total == 0 {
		return stats, nil
	}

	freq := map[domain.Frequency]int{}
	buckets := map[int]int{}
	var durations, days float64
	first := true
	for _, rt := range r.s.routines {
		freq[rt.Frequency]++
		buckets[len(rt.WorkoutIDs)]++
		durations += float64(rt.Duration)
		days += float64(rt.DaysPerWeek)
		if first || rt.Duration < stats.Duration.Min {
			stats.Duration.Min = rt.Duration
		}
		if first || rt.Duration > stats.Duration.Max {
			stats.Duration.Max = rt.Duration
		}
		if first || rt.DaysPerWeek < stats.DaysPerWeek.Min {
			stats.DaysPerWeek.Min = rt.DaysPerWeek
		}
		if first || rt.DaysPerWeek > stats.DaysPerWeek.Max {
			stats.DaysPerWeek.Max = rt.DaysPerWeek
		}
		first = false

		clients := map[primitive.ObjectID]bool{}
		for _, a := range r.s.clientRoutines {
			if a.RoutineID == rt.ID {
				clients[a.ClientID] = true
			}
		}
		stats.Popular = append(stats.Popular, repository.PopularRoutine{
			ID: rt.ID, Name: rt.Name, Frequency: rt.Frequency, Duration: rt.Duration, ClientCount: len(clients),
		})
	}
	stats.Duration.Avg = durations / float64(stats.Total)
	stats.DaysPerWeek.Avg = days / float64(stats.Total)
	for f, n := range freq {
		stats.ByFrequency = append(stats.ByFrequency, repository.FrequencyCount{Frequency: f, Count: n})
	}
	sort.Slice(stats.ByFrequency, func(i, j int) bool { return stats.ByFrequency[i].Frequency < stats.ByFrequency[j].Frequency })
	for w, n := range buckets {
		stats.ByWorkoutCount = append(stats.ByWorkoutCount, repository.WorkoutCountBucket{Workouts: w, Routines: n})
	}
	sort.Slice(stats.ByWorkoutCount, func(i, j int) bool { return stats.ByWorkoutCount[i].Workouts < stats.ByWorkoutCount[j].Workouts })
	sort.Slice(stats.Popular, func(i, j int) bool {
		if stats.Popular[i].ClientCount != stats.Popular[j].ClientCount {
			return stats.Popular[i].ClientCount > stats.Popular[j].ClientCount
		}
		return stats.Popular[i].Name < stats.Popular[j].Name
	})
	if len(stats.Popular) > topN {
		stats.Popular = stats.Popular[:topN]
	}
	return stats, nil
}

// --- ledger ---

type memClientRoutines struct{ s *memStore }

var _ repository.ClientRoutineRepository = memClientRoutines{}

// activeConflict emulates the partial unique index over active pairs.
func (r memClientRoutines) activeConflict(a *domain.ClientRoutine) bool {
	if !a.IsActive {
		return false
	}
	for id, other := range r.s.clientRoutines {
		if id != a.ID && other.IsActive && other.ClientID == a.ClientID && other.RoutineID == a.RoutineID {
			return true
		}
	}
	return false
}

func (r memClientRoutines) Create(_ context.Context, a *domain.ClientRoutine) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.activeConflict(a) {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	r.s.clientRoutines[a.ID] = *a
	return a.ID, nil
}

func (r memClientRoutines) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ClientRoutine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.clientRoutines[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r memClientRoutines) FindActive(_ context.Context, clientID, routineID primitive.ObjectID) (*domain.ClientRoutine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.clientRoutines {
		if a.IsActive && a.ClientID == clientID && a.RoutineID == routineID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memClientRoutines) List(_ context.Context, f repository.ClientRoutineFilter) ([]domain.ClientRoutine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.ClientRoutine{}
	for _, a := range r.s.clientRoutines {
		if f.ClientID != nil && a.ClientID != *f.ClientID {
			continue
		}
		if f.RoutineID != nil && a.RoutineID != *f.RoutineID {
			continue
		}
		if f.IsActive != nil && a.IsActive != *f.IsActive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (r memClientRoutines) Update(_ context.Context, a *domain.ClientRoutine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clientRoutines[a.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.activeConflict(a) {
		return repository.ErrDuplicate
	}
	r.s.clientRoutines[a.ID] = *a
	return nil
}

func (r memClientRoutines) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.clientRoutines[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.clientRoutines, id)
	return nil
}

func (r memClientRoutines) DeleteByClientID(_ context.Context, clientID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.clientRoutines {
		if a.ClientID == clientID {
			delete(r.s.clientRoutines, id)
		}
	}
	return nil
}

type memRoutineProgress struct{ s *memStore }

var _ repository.RoutineProgressRepository = memRoutineProgress{}

func (r memRoutineProgress) Create(_ context.Context, e *domain.RoutineProgress) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&e.ID, nil, nil)
	r.s.routineProgress[e.ID] = *e
	return e.ID, nil
}

func (r memRoutineProgress) GetByID(_ context.Context, id primitive.ObjectID) (*domain.RoutineProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.routineProgress[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (r memRoutineProgress) List(_ context.Context, f repository.RoutineProgressFilter) ([]domain.RoutineProgress, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.RoutineProgress{}
	for _, e := range r.s.routineProgress {
		if f.ClientRoutineID != nil && e.ClientRoutineID != *f.ClientRoutineID {
			continue
		}
		if f.ClientID != nil && e.ClientID != *f.ClientID {
			continue
		}
		if f.WorkoutID != nil && e.WorkoutID != *f.WorkoutID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	return out, nil
}

func (r memRoutineProgress) Update(_ context.Context, e *domain.RoutineProgress) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.routineProgress[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Notes = e.Notes
	existing.Rating = e.Rating
	r.s.routineProgress[e.ID] = existing
	return nil
}

func (r memRoutineProgress) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.routineProgress[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.routineProgress, id)
	return nil
}

func (r memRoutineProgress) DeleteByClientRoutineID(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for eid, e := range r.s.routineProgress {
		if e.ClientRoutineID == id {
			delete(r.s.routineProgress, eid)
		}
	}
	return nil
}

func (r memRoutineProgress) DeleteByClientID(_ context.Context, clientID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, e := range r.s.routineProgress {
		if e.ClientID == clientID {
			delete(r.s.routineProgress, id)
		}
	}
	return nil
}

// --- metrics ---

type memProgress struct{ s *memStore }

var _ repository.ProgressRepository = memProgress{}

func (r memProgress) Create(_ context.Context, p *domain.ProgressSnapshot) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&p.ID, &p.CreatedAt, nil)
	r.s.snapshots[p.ID] = *p
	return p.ID, nil
}

func (r memProgress) ListByClientID(_ context.Context, clientID primitive.ObjectID) ([]domain.ProgressSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.ProgressSnapshot{}
	for _, p := range r.s.snapshots {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r memProgress) GetByID(_ context.Context, id primitive.ObjectID) (*domain.ProgressSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.snapshots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memProgress) Update(_ context.Context, p *domain.ProgressSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.snapshots[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := *p
	next.ClientID = existing.ClientID
	next.CreatedAt = existing.CreatedAt
	r.s.snapshots[p.ID] = next
	return nil
}

func (r memProgress) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.snapshots[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.snapshots, id)
	return nil
}

func (r memProgress) DeleteByClientID(_ context.Context, clientID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, p := range r.s.snapshots {
		if p.ClientID == clientID {
			delete(r.s.snapshots, id)
		}
	}
	return nil
}

type memGoals struct{ s *memStore }

var _ repository.GoalRepository = memGoals{}

func (r memGoals) Create(_ context.Context, g *domain.Goal) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stamp(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	r.s.goals[g.ID] = *g
	return g.ID, nil
}

func (r memGoals) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Goal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.goals[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (r memGoals) List(_ context.Context, f repository.GoalFilter) ([]domain.Goal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Goal{}
	for _, g := range r.s.goals {
		if f.ClientID != nil && g.ClientID != *f.ClientID {
			continue
		}
		if f.Completed != nil && g.IsCompleted != *f.Completed {
			continue
		}
		if f.Category != "" && g.Category != f.Category {
			continue
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out, nil
}

func (r memGoals) UpdateProgress(_ context.Context, id primitive.ObjectID, current float64, completed bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.goals[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.CurrentValue = current
	g.IsCompleted = completed
	r.s.goals[id] = g
	return nil
}

func (r memGoals) Update(_ context.Context, g *domain.Goal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.goals[g.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := *g
	next.ClientID = existing.ClientID
	next.CreatedAt = existing.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	r.s.goals[g.ID] = next
	return nil
}

func (r memGoals) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.goals[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.goals, id)
	return nil
}

func (r memGoals) DeleteByClientID(_ context.Context, clientID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, g := range r.s.goals {
		if g.ClientID == clientID {
			delete(r.s.goals, id)
		}
	}
	return nil
}

// --- storage ---

type memFiles struct {
	mu      sync.Mutex
	objects map[string]string // key -> content type
	deleted []string
}

func newMemFiles() *memFiles {
	return &memFiles{objects: map[string]string{}}
}

func (f *memFiles) PutObject(_ context.Context, key string, _ io.Reader, _ int64, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = contentType
	return f.ObjectURL(key), nil
}

func (f *memFiles) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *memFiles) PresignGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return f.ObjectURL(key) + "?signed=1", nil
}

func (f *memFiles) ObjectURL(key string) string {
	return "https://cdn.test/" + key
}

// --- fixture ---

// fixedNow is the clock of every test service: 2024-06-15 12:00 UTC.
var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fixture struct {
	store       *memStore
	files       *memFiles
	identities  *identityProvisioner
	clients     *clientService
	assignments *assignmentService
	metrics     *metricsService
	routines    *routineService
	workouts    *workoutService
	exercises   *exerciseService
}

func newFixture() *fixture {
	store := newMemStore()
	files := newMemFiles()
	log := zap.NewNop()

	identities := NewIdentityProvisioner(memUsers{store}, memClients{store}, log).(*identityProvisioner)
	identities.now = clock
	identities.hashCost = bcrypt.MinCost

	clients := NewClientService(store, ClientRepositories{
		Clients:         memClients{store},
		Users:           memUsers{store},
		ClientRoutines:  memClientRoutines{store},
		RoutineProgress: memRoutineProgress{store},
		Progress:        memProgress{store},
		Goals:           memGoals{store},
	}, identities, files, log).(*clientService)
	clients.now = clock

	assignments := NewAssignmentService(store, AssignmentRepositories{
		Clients:         memClients{store},
		Routines:        memRoutines{store},
		Workouts:        memWorkouts{store},
		ClientRoutines:  memClientRoutines{store},
		RoutineProgress: memRoutineProgress{store},
	}, log).(*assignmentService)
	assignments.now = clock

	metrics := NewMetricsService(memClients{store}, memProgress{store}, memGoals{store}, log).(*metricsService)
	metrics.now = clock

	return &fixture{
		store:       store,
		files:       files,
		identities:  identities,
		clients:     clients,
		assignments: assignments,
		metrics:     metrics,
		routines:    NewRoutineService(memRoutines{store}, memWorkouts{store}, memClientRoutines{store}, log).(*routineService),
		workouts:    NewWorkoutService(memWorkouts{store}, memExercises{store}, log).(*workoutService),
		exercises:   NewExerciseService(memExercises{store}, files, log).(*exerciseService),
	}
}

// clientInput returns valid input for a client born on birth.
func clientInput(name, email, phone string, birth time.Time) ClientInput {
	return ClientInput{
		Name:             name,
		Email:            email,
		Phone:            phone,
		BirthDate:        birth,
		Weight:           70,
		Height:           175,
		SubscriptionType: domain.SubscriptionStandard,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
