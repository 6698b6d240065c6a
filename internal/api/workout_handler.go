package api

import (
	"net/http"
	"strings"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"
	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkoutHandler serves workout templates.
type WorkoutHandler struct {
	responder
	workoutService service.WorkoutService
}

func NewWorkoutHandler(workoutService service.WorkoutService, r responder) *WorkoutHandler {
	return &WorkoutHandler{responder: r, workoutService: workoutService}
}

type WorkoutSetRequest struct {
	ExerciseID string  `json:"exerciseId" binding:"required"`
	Reps       int     `json:"reps" binding:"required,gt=0"`
	Weight     float64 `json:"weight" binding:"gte=0"`
	RestTime   int     `json:"restTime" binding:"gte=0"`
	Completed  bool    `json:"completed"`
}

type WorkoutRequest struct {
	Name              string                 `json:"name" binding:"required"`
	Description       string                 `json:"description"`
	EstimatedDuration int                    `json:"estimatedDuration" binding:"gte=0"`
	Difficulty        domain.Difficulty      `json:"difficulty" binding:"required,oneof=beginner intermediate advanced"`
	Category          domain.WorkoutCategory `json:"category" binding:"required,oneof=strength cardio flexibility mixed"`
	Sets              []WorkoutSetRequest    `json:"sets" binding:"dive"`
}

func (r WorkoutRequest) toInput() (service.WorkoutInput, error) {
	sets := make([]domain.WorkoutSet, len(r.Sets))
	for i, s := range r.Sets {
		exerciseID, err := primitive.ObjectIDFromHex(s.ExerciseID)
		if err != nil {
			return service.WorkoutInput{}, err
		}
		sets[i] = domain.WorkoutSet{
			ExerciseID: exerciseID,
			Reps:       s.Reps,
			Weight:     s.Weight,
			RestTime:   s.RestTime,
			Completed:  s.Completed,
		}
	}
	return service.WorkoutInput{
		Name:              r.Name,
		Description:       r.Description,
		EstimatedDuration: r.EstimatedDuration,
		Difficulty:        r.Difficulty,
		Category:          r.Category,
		Sets:              sets,
	}, nil
}

// CreateWorkout godoc
// @Summary Create a workout template
// @Tags Workouts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param workout body WorkoutRequest true "Workout with its sets"
// @Success 201 {object} domain.Workout
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Referenced exercise not found"
// @Router /workouts [post]
func (h *WorkoutHandler) CreateWorkout(c *gin.Context) {
	var req WorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	workout, err := h.workoutService.CreateWorkout(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, workout)
}

func (h *WorkoutHandler) ListWorkouts(c *gin.Context) {
	filter := repository.WorkoutFilter{
		Category:   domain.WorkoutCategory(c.Query("category")),
		Difficulty: domain.Difficulty(c.Query("difficulty")),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	workouts, err := h.workoutService.ListWorkouts(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, workouts)
}

func (h *WorkoutHandler) GetWorkout(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	workout, err := h.workoutService.GetWorkout(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, workout)
}

func (h *WorkoutHandler) UpdateWorkout(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req WorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	workout, err := h.workoutService.UpdateWorkout(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, workout)
}

func (h *WorkoutHandler) DeleteWorkout(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.workoutService.DeleteWorkout(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
