package service

import (
	"context"
	"strings"
	"testing"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWorkout_RequiresKnownExercises(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	exercise, err := f.exercises.CreateExercise(ctx, ExerciseInput{Name: "Row", Difficulty: domain.DifficultyIntermediate})
	require.NoError(t, err)

	in := WorkoutInput{
		Name:       "Pull",
		Difficulty: domain.DifficultyIntermediate,
		Category:   domain.CategoryStrength,
		Sets: []domain.WorkoutSet{
			{ExerciseID: exercise.ID, Reps: 8, Weight: 50},
			{ExerciseID: exercise.ID, Reps: 8, Weight: 55},
		},
	}
	workout, err := f.workouts.CreateWorkout(ctx, in)
	require.NoError(t, err)
	require.Len(t, workout.Sets, 2)

	in.Sets = append(in.Sets, domain.WorkoutSet{ExerciseID: primitive.NewObjectID(), Reps: 5})
	_, err = f.workouts.CreateWorkout(ctx, in)
	require.ErrorIs(t, err, ErrExerciseNotFound)

	in.Sets = []domain.WorkoutSet{{ExerciseID: exercise.ID, Reps: 0}}
	_, err = f.workouts.CreateWorkout(ctx, in)
	require.ErrorIs(t, err, ErrValidation)

	in.Sets = nil
	in.Category = "yoga"
	_, err = f.workouts.CreateWorkout(ctx, in)
	require.ErrorIs(t, err, ErrValidation)
}

func TestRoutine_WorkoutsInOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	a, err := f.workouts.CreateWorkout(ctx, WorkoutInput{Name: "A", Difficulty: domain.DifficultyBeginner, Category: domain.CategoryCardio})
	require.NoError(t, err)
	b, err := f.workouts.CreateWorkout(ctx, WorkoutInput{Name: "B", Difficulty: domain.DifficultyBeginner, Category: domain.CategoryCardio})
	require.NoError(t, err)

	routine, err := f.routines.CreateRoutine(ctx, RoutineInput{
		Name:          "ABA",
		WorkoutIDs:    []primitive.ObjectID{a.ID, b.ID, a.ID},
		Frequency:     domain.FrequencyCustom,
		DaysPerWeek:   3,
		Duration:      6,
		ScheduledDays: []domain.Weekday{domain.Friday, domain.Monday, domain.Friday},
	})
	require.NoError(t, err)
	require.Equal(t, []domain.Weekday{domain.Monday, domain.Friday}, routine.ScheduledDays)

	workouts, err := f.routines.RoutineWorkouts(ctx, routine.ID)
	require.NoError(t, err)
	require.Len(t, workouts, 3)
	require.Equal(t, []string{"A", "B", "A"}, []string{workouts[0].Name, workouts[1].Name, workouts[2].Name})

	_, err = f.routines.CreateRoutine(ctx, RoutineInput{Name: "Bad", WorkoutIDs: []primitive.ObjectID{primitive.NewObjectID()}, Frequency: domain.FrequencyDaily, DaysPerWeek: 7, Duration: 1})
	require.ErrorIs(t, err, ErrWorkoutNotFound)
	_, err = f.routines.CreateRoutine(ctx, RoutineInput{Name: "Bad", Frequency: domain.FrequencyDaily, DaysPerWeek: 8, Duration: 1})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.routines.CreateRoutine(ctx, RoutineInput{Name: "Bad", Frequency: domain.FrequencyDaily, DaysPerWeek: 2, Duration: 1, ScheduledDays: []domain.Weekday{"someday"}})
	require.ErrorIs(t, err, ErrValidation)
}

func TestExerciseMedia(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	exercise, err := f.exercises.CreateExercise(ctx, ExerciseInput{Name: "Clean", Difficulty: domain.DifficultyAdvanced, VideoURL: "https://video.test/clean"})
	require.NoError(t, err)

	video := Upload{FileName: "clean.mp4", ContentType: "video/mp4", Size: 5, Body: strings.NewReader("video")}
	updated, err := f.exercises.UploadMedia(ctx, exercise.ID, MediaVideo, video)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(updated.VideoKey, "exercises/videos/"))
	require.Equal(t, "https://cdn.test/"+updated.VideoKey, updated.VideoURL)
	require.Empty(t, f.files.deleted)

	signed, err := f.exercises.MediaURL(ctx, exercise.ID, MediaVideo)
	require.NoError(t, err)
	require.Equal(t, updated.VideoURL+"?signed=1", signed)
	_, err = f.exercises.MediaURL(ctx, exercise.ID, MediaImage)
	require.ErrorIs(t, err, ErrMediaNotFound)

	_, err = f.exercises.UploadMedia(ctx, exercise.ID, MediaImage, video)
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.exercises.UploadMedia(ctx, exercise.ID, "audio", video)
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.exercises.UploadMedia(ctx, primitive.NewObjectID(), MediaImage, imageUpload())
	require.ErrorIs(t, err, ErrExerciseNotFound)

	// Pointing the video at an external URL releases the uploaded object.
	_, err = f.exercises.UpdateExercise(ctx, exercise.ID, ExerciseInput{Name: "Clean", Difficulty: domain.DifficultyAdvanced, VideoURL: "https://video.test/other"})
	require.NoError(t, err)
	require.Equal(t, []string{updated.VideoKey}, f.files.deleted)
	require.Empty(t, f.store.exercises[exercise.ID].VideoKey)

	external, err := f.exercises.MediaURL(ctx, exercise.ID, MediaVideo)
	require.NoError(t, err)
	require.Equal(t, "https://video.test/other", external)

	list, err := f.exercises.ListExercises(ctx, repository.ExerciseFilter{Difficulty: domain.DifficultyAdvanced})
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = f.exercises.ListExercises(ctx, repository.ExerciseFilter{Difficulty: "expert"})
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, f.exercises.DeleteExercise(ctx, exercise.ID))
	require.ErrorIs(t, f.exercises.DeleteExercise(ctx, exercise.ID), ErrExerciseNotFound)
}

func TestRoutineStatistics(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	empty, err := f.routines.Statistics(ctx)
	require.NoError(t, err)
	require.Zero(t, empty.Total)
	require.NotNil(t, empty.Popular)

	push := seedRoutine(t, f, "Push")
	pull := seedRoutine(t, f, "Pull")
	_, err = f.routines.CreateRoutine(ctx, RoutineInput{Name: "Daily stretch", Frequency: domain.FrequencyDaily, DaysPerWeek: 7, Duration: 2})
	require.NoError(t, err)

	ana, bo := seedClient(t, f, "ana"), seedClient(t, f, "bo")
	for _, c := range []*domain.Client{ana, bo} {
		_, err := f.assignments.Assign(ctx, AssignmentInput{ClientID: c.ID, RoutineID: pull.ID})
		require.NoError(t, err)
	}
	// A client assigned twice to the same routine counts once.
	first, err := f.assignments.Assign(ctx, AssignmentInput{ClientID: ana.ID, RoutineID: push.ID})
	require.NoError(t, err)
	_, err = f.assignments.Deactivate(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.assignments.Assign(ctx, AssignmentInput{ClientID: ana.ID, RoutineID: push.ID})
	require.NoError(t, err)

	stats, err := f.routines.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, []repository.FrequencyCount{
		{Frequency: domain.FrequencyDaily, Count: 1},
		{Frequency: domain.FrequencyWeekly, Count: 2},
	}, stats.ByFrequency)
	require.Equal(t, repository.ValueRange{Avg: 10.0 / 3, Min: 2, Max: 4}, stats.Duration)
	require.Equal(t, repository.ValueRange{Avg: 13.0 / 3, Min: 3, Max: 7}, stats.DaysPerWeek)
	require.Equal(t, []repository.WorkoutCountBucket{{Workouts: 0, Routines: 1}, {Workouts: 1, Routines: 2}}, stats.ByWorkoutCount)

	require.Len(t, stats.Popular, 3)
	require.Equal(t, "Pull", stats.Popular[0].Name)
	require.Equal(t, 2, stats.Popular[0].ClientCount)
	require.Equal(t, "Push", stats.Popular[1].Name)
	require.Equal(t, 1, stats.Popular[1].ClientCount)
	require.Equal(t, 0, stats.Popular[2].ClientCount)
}
