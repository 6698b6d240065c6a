package api

import (
	"net/http"
	"strings"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"
	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
)

// RoutineHandler serves routine programs.
type RoutineHandler struct {
	responder
	routineService service.RoutineService
}

func NewRoutineHandler(routineService service.RoutineService, r responder) *RoutineHandler {
	return &RoutineHandler{responder: r, routineService: routineService}
}

type RoutineRequest struct {
	Name          string           `json:"name" binding:"required"`
	Description   string           `json:"description"`
	WorkoutIDs    []string         `json:"workoutIds"`
	Frequency     domain.Frequency `json:"frequency" binding:"required,oneof=daily weekly custom"`
	DaysPerWeek   int              `json:"daysPerWeek" binding:"required"`
	Duration      int              `json:"duration" binding:"required"`
	ScheduledDays []domain.Weekday `json:"scheduledDays"`
}

func (r RoutineRequest) toInput() (service.RoutineInput, error) {
	ids, err := parseObjectIDs(r.WorkoutIDs)
	if err != nil {
		return service.RoutineInput{}, err
	}
	return service.RoutineInput{
		Name:          r.Name,
		Description:   r.Description,
		WorkoutIDs:    ids,
		Frequency:     r.Frequency,
		DaysPerWeek:   r.DaysPerWeek,
		Duration:      r.Duration,
		ScheduledDays: r.ScheduledDays,
	}, nil
}

// CreateRoutine godoc
// @Summary Create a routine
// @Tags Routines
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param routine body RoutineRequest true "Routine details"
// @Success 201 {object} RoutineResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Referenced workout not found"
// @Router /routines [post]
func (h *RoutineHandler) CreateRoutine(c *gin.Context) {
	var req RoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	routine, err := h.routineService.CreateRoutine(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapRoutineToResponse(routine))
}

func (h *RoutineHandler) ListRoutines(c *gin.Context) {
	filter := repository.RoutineFilter{
		Frequency: domain.Frequency(c.Query("frequency")),
		Search:    strings.TrimSpace(c.Query("search")),
	}
	routines, err := h.routineService.ListRoutines(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]RoutineResponse, len(routines))
	for i := range routines {
		resp[i] = MapRoutineToResponse(&routines[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RoutineHandler) GetRoutine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	routine, err := h.routineService.GetRoutine(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

// GetRoutineWorkouts returns the workouts of a routine in routine order.
func (h *RoutineHandler) GetRoutineWorkouts(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	workouts, err := h.routineService.RoutineWorkouts(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, workouts)
}

func (h *RoutineHandler) UpdateRoutine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req RoutineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.badRequest(c, err)
		return
	}
	routine, err := h.routineService.UpdateRoutine(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineToResponse(routine))
}

// DeleteRoutine refuses routines that have assignments with 409.
func (h *RoutineHandler) DeleteRoutine(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.routineService.DeleteRoutine(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetStatistics godoc
// @Summary Routine catalog statistics
// @Description Totals per frequency, duration and days per week ranges, and the ten routines with the most assigned clients.
// @Tags Routines
// @Security BearerAuth
// @Produce json
// @Success 200 {object} RoutineStatisticsResponse
// @Router /routines/statistics [get]
func (h *RoutineHandler) GetStatistics(c *gin.Context) {
	stats, err := h.routineService.Statistics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapRoutineStatsToResponse(stats))
}
