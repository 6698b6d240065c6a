package api

import (
	"net/http"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services bundles what the HTTP layer depends on.
type Services struct {
	Auth        service.AuthService
	Clients     service.ClientService
	Exercises   service.ExerciseService
	Workouts    service.WorkoutService
	Routines    service.RoutineService
	Assignments service.AssignmentService
	Metrics     service.MetricsService
	Tokens      service.TokenManager
	// Now defaults to time.Now.
	Now func() time.Time
}

func SetupRoutes(router *gin.Engine, svc Services, log *zap.Logger, metrics *Metrics) {
	clock := svc.Now
	if clock == nil {
		clock = time.Now
	}
	r := responder{log: log, metrics: metrics, now: clock}

	authHandler := NewAuthHandler(svc.Auth, r)
	clientHandler := NewClientHandler(svc.Clients, svc.Assignments, svc.Metrics, r)
	exerciseHandler := NewExerciseHandler(svc.Exercises, r)
	workoutHandler := NewWorkoutHandler(svc.Workouts, r)
	routineHandler := NewRoutineHandler(svc.Routines, r)
	assignmentHandler := NewAssignmentHandler(svc.Assignments, svc.Clients, r)
	metricsHandler := NewMetricsHandler(svc.Metrics, r)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/signup", authHandler.SignUp)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(svc.Tokens))
	protected.GET("/me", authHandler.Me)

	staffOnly := RoleMiddleware(domain.RoleOwner, domain.RoleTrainer)

	clients := protected.Group("/clients")
	{
		// Self-service views for the caller's own profile.
		clients.GET("/me", RoleMiddleware(domain.RoleClient), clientHandler.GetMyClient)
		clients.GET("/me/routines", RoleMiddleware(domain.RoleClient), clientHandler.GetMyRoutines)

		staff := clients.Group("", staffOnly)
		staff.POST("", clientHandler.CreateClient)
		staff.GET("", clientHandler.ListClients)
		staff.GET("/credentials", clientHandler.GetAllCredentials)
		staff.GET("/statistics", clientHandler.GetStatistics)
		staff.GET("/:id", clientHandler.GetClient)
		staff.PUT("/:id", clientHandler.UpdateClient)
		staff.DELETE("/:id", clientHandler.DeleteClient)
		staff.POST("/:id/identity", clientHandler.EnsureIdentity)
		staff.GET("/:id/credentials", clientHandler.GetCredentials)
		staff.GET("/:id/routines", clientHandler.GetClientRoutines)
		staff.GET("/:id/progress", clientHandler.GetClientProgress)
		staff.GET("/:id/goals", clientHandler.GetClientGoals)
		staff.POST("/:id/profile-image", clientHandler.UploadProfileImage)
	}

	exercises := protected.Group("/exercises", staffOnly)
	{
		exercises.POST("", exerciseHandler.CreateExercise)
		exercises.GET("", exerciseHandler.ListExercises)
		exercises.GET("/:id", exerciseHandler.GetExercise)
		exercises.PUT("/:id", exerciseHandler.UpdateExercise)
		exercises.DELETE("/:id", exerciseHandler.DeleteExercise)
		exercises.POST("/:id/media", exerciseHandler.UploadMedia)
		exercises.GET("/:id/media/:kind", exerciseHandler.GetMediaURL)
	}

	workouts := protected.Group("/workouts", staffOnly)
	{
		workouts.POST("", workoutHandler.CreateWorkout)
		workouts.GET("", workoutHandler.ListWorkouts)
		workouts.GET("/:id", workoutHandler.GetWorkout)
		workouts.PUT("/:id", workoutHandler.UpdateWorkout)
		workouts.DELETE("/:id", workoutHandler.DeleteWorkout)
	}

	routines := protected.Group("/routines", staffOnly)
	{
		routines.POST("", routineHandler.CreateRoutine)
		routines.GET("", routineHandler.ListRoutines)
		routines.GET("/statistics", routineHandler.GetStatistics)
		routines.GET("/:id", routineHandler.GetRoutine)
		routines.GET("/:id/workouts", routineHandler.GetRoutineWorkouts)
		routines.PUT("/:id", routineHandler.UpdateRoutine)
		routines.DELETE("/:id", routineHandler.DeleteRoutine)
	}

	assignments := protected.Group("/client-routines")
	{
		// Clients may log sessions of their own assignments.
		assignments.POST("/:id/complete-workout",
			RoleMiddleware(domain.RoleOwner, domain.RoleTrainer, domain.RoleClient),
			assignmentHandler.CompleteWorkout)

		staff := assignments.Group("", staffOnly)
		staff.POST("", assignmentHandler.Assign)
		staff.GET("", assignmentHandler.ListAssignments)
		staff.GET("/:id", assignmentHandler.GetAssignment)
		staff.PUT("/:id", assignmentHandler.UpdateAssignment)
		staff.DELETE("/:id", assignmentHandler.DeleteAssignment)
		staff.POST("/:id/deactivate", assignmentHandler.Deactivate)
		staff.GET("/:id/progress", assignmentHandler.GetProgress)
	}

	// Logged workout sessions as a resource of their own.
	completions := protected.Group("/routine-progress", staffOnly)
	{
		completions.POST("", assignmentHandler.CreateCompletion)
		completions.GET("", assignmentHandler.ListCompletions)
		completions.GET("/:id", assignmentHandler.GetCompletion)
		completions.PUT("/:id", assignmentHandler.UpdateCompletion)
		completions.DELETE("/:id", assignmentHandler.DeleteCompletion)
	}

	progress := protected.Group("/progress", staffOnly)
	{
		progress.POST("", metricsHandler.RecordSnapshot)
		progress.GET("", metricsHandler.ListSnapshots)
		progress.GET("/:id", metricsHandler.GetSnapshot)
		progress.PUT("/:id", metricsHandler.CorrectSnapshot)
		progress.DELETE("/:id", metricsHandler.DeleteSnapshot)
	}

	goals := protected.Group("/goals", staffOnly)
	{
		goals.POST("", metricsHandler.CreateGoal)
		goals.GET("", metricsHandler.ListGoals)
		goals.GET("/:id", metricsHandler.GetGoal)
		goals.PUT("/:id", metricsHandler.UpdateGoal)
		goals.POST("/:id/progress", metricsHandler.UpdateGoalProgress)
		goals.DELETE("/:id", metricsHandler.DeleteGoal)
	}

	protected.POST("/staff", RoleMiddleware(domain.RoleOwner), authHandler.CreateStaff)
}
