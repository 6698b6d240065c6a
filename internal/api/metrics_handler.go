package api

import (
	"errors"
	"net/http"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"
	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetricsHandler serves body metrics snapshots and goals.
type MetricsHandler struct {
	responder
	metricsService service.MetricsService
}

func NewMetricsHandler(metricsService service.MetricsService, r responder) *MetricsHandler {
	return &MetricsHandler{responder: r, metricsService: metricsService}
}

type SnapshotRequest struct {
	ClientID     string             `json:"clientId" binding:"required"`
	Date         *Date              `json:"date"`
	Weight       float64            `json:"weight" binding:"required,gt=0"`
	BodyFat      *float64           `json:"bodyFat"`
	MuscleMass   *float64           `json:"muscleMass"`
	Measurements map[string]float64 `json:"measurements"`
	Photos       []string           `json:"photos"`
}

type GoalRequest struct {
	ClientID     string              `json:"clientId" binding:"required"`
	Title        string              `json:"title" binding:"required"`
	Description  string              `json:"description"`
	TargetValue  *float64            `json:"targetValue" binding:"required"` // zero is a valid target
	CurrentValue float64             `json:"currentValue"`
	Unit         string              `json:"unit" binding:"required"`
	Deadline     *Date               `json:"deadline" binding:"required"`
	Category     domain.GoalCategory `json:"category"`
}

// SnapshotCorrectionRequest leaves omitted fields unchanged.
type SnapshotCorrectionRequest struct {
	Date         *Date              `json:"date"`
	Weight       *float64           `json:"weight" binding:"omitempty,gt=0"`
	BodyFat      *float64           `json:"bodyFat"`
	MuscleMass   *float64           `json:"muscleMass"`
	Measurements map[string]float64 `json:"measurements"`
	Photos       []string           `json:"photos"`
}

// GoalUpdateRequest leaves omitted fields unchanged.
type GoalUpdateRequest struct {
	Title        *string              `json:"title"`
	Description  *string              `json:"description"`
	TargetValue  *float64             `json:"targetValue"`
	CurrentValue *float64             `json:"currentValue"`
	Unit         *string              `json:"unit"`
	Deadline     *Date                `json:"deadline"`
	Category     *domain.GoalCategory `json:"category"`
}

type GoalProgressRequest struct {
	CurrentValue *float64 `json:"currentValue"`
}

func clientIDFrom(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errors.New("invalid clientId format")
	}
	return id, nil
}

// RecordSnapshot godoc
// @Summary Record a body metrics snapshot
// @Tags Progress
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param snapshot body SnapshotRequest true "Snapshot"
// @Success 201 {object} SnapshotResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Client not found"
// @Router /progress [post]
func (h *MetricsHandler) RecordSnapshot(c *gin.Context) {
	var req SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	clientID, err := clientIDFrom(req.ClientID)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	snapshot, err := h.metricsService.RecordSnapshot(c.Request.Context(), service.SnapshotInput{
		ClientID:     clientID,
		Date:         req.Date.timePtr(),
		Weight:       req.Weight,
		BodyFat:      req.BodyFat,
		MuscleMass:   req.MuscleMass,
		Measurements: req.Measurements,
		Photos:       req.Photos,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapSnapshotToResponse(snapshot))
}

// ListSnapshots requires the clientId query parameter.
func (h *MetricsHandler) ListSnapshots(c *gin.Context) {
	clientID, ok := h.queryID(c, "clientId")
	if !ok {
		return
	}
	if clientID == nil {
		h.badRequest(c, errors.New("clientId is required"))
		return
	}
	snapshots, err := h.metricsService.ListSnapshots(c.Request.Context(), *clientID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSnapshotsToResponse(snapshots))
}

func (h *MetricsHandler) GetSnapshot(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	snapshot, err := h.metricsService.GetSnapshot(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSnapshotToResponse(snapshot))
}

// CorrectSnapshot godoc
// @Summary Correct a recorded snapshot
// @Tags Progress
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param correction body SnapshotCorrectionRequest true "Corrected values"
// @Success 200 {object} SnapshotResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Snapshot not found"
// @Router /progress/{id} [put]
func (h *MetricsHandler) CorrectSnapshot(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req SnapshotCorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	snapshot, err := h.metricsService.CorrectSnapshot(c.Request.Context(), id, service.SnapshotCorrection{
		Date:         req.Date.timePtr(),
		Weight:       req.Weight,
		BodyFat:      req.BodyFat,
		MuscleMass:   req.MuscleMass,
		Measurements: req.Measurements,
		Photos:       req.Photos,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSnapshotToResponse(snapshot))
}

func (h *MetricsHandler) DeleteSnapshot(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.metricsService.DeleteSnapshot(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateGoal godoc
// @Summary Create a goal for a client
// @Tags Goals
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param goal body GoalRequest true "Goal"
// @Success 201 {object} GoalResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Client not found"
// @Router /goals [post]
func (h *MetricsHandler) CreateGoal(c *gin.Context) {
	var req GoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	clientID, err := clientIDFrom(req.ClientID)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	goal, err := h.metricsService.CreateGoal(c.Request.Context(), service.GoalInput{
		ClientID:     clientID,
		Title:        req.Title,
		Description:  req.Description,
		TargetValue:  *req.TargetValue,
		CurrentValue: req.CurrentValue,
		Unit:         req.Unit,
		Deadline:     req.Deadline.Time,
		Category:     req.Category,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapGoalToResponse(goal))
}

// ListGoals filters by clientId, completed and category.
func (h *MetricsHandler) ListGoals(c *gin.Context) {
	filter := repository.GoalFilter{Category: domain.GoalCategory(c.Query("category"))}
	var ok bool
	if filter.ClientID, ok = h.queryID(c, "clientId"); !ok {
		return
	}
	if filter.Completed, ok = h.queryBool(c, "completed"); !ok {
		return
	}

	goals, err := h.metricsService.ListGoals(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapGoalsToResponse(goals))
}

func (h *MetricsHandler) GetGoal(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	goal, err := h.metricsService.GetGoal(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapGoalToResponse(goal))
}

// UpdateGoalProgress godoc
// @Summary Set the current value of a goal
// @Description Completion is recomputed from the new value.
// @Tags Goals
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param progress body GoalProgressRequest true "New current value"
// @Success 200 {object} GoalResponse
// @Failure 400 {object} gin.H "currentValue missing"
// @Failure 404 {object} gin.H "Goal not found"
// @Router /goals/{id}/progress [post]
func (h *MetricsHandler) UpdateGoalProgress(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req GoalProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	goal, err := h.metricsService.UpdateGoalProgress(c.Request.Context(), id, req.CurrentValue)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapGoalToResponse(goal))
}

// UpdateGoal godoc
// @Summary Update a goal
// @Description Completion is recomputed when the target or current value changes.
// @Tags Goals
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param goal body GoalUpdateRequest true "Changes"
// @Success 200 {object} GoalResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 404 {object} gin.H "Goal not found"
// @Router /goals/{id} [put]
func (h *MetricsHandler) UpdateGoal(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req GoalUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	goal, err := h.metricsService.UpdateGoal(c.Request.Context(), id, service.GoalUpdate{
		Title:        req.Title,
		Description:  req.Description,
		TargetValue:  req.TargetValue,
		CurrentValue: req.CurrentValue,
		Unit:         req.Unit,
		Deadline:     req.Deadline.timePtr(),
		Category:     req.Category,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapGoalToResponse(goal))
}

func (h *MetricsHandler) DeleteGoal(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.metricsService.DeleteGoal(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
