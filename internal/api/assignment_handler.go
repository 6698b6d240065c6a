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

// AssignmentHandler serves the routine assignment ledger.
type AssignmentHandler struct {
	responder
	assignmentService service.AssignmentService
	clientService     service.ClientService
}

func NewAssignmentHandler(assignmentService service.AssignmentService, clientService service.ClientService, r responder) *AssignmentHandler {
	return &AssignmentHandler{responder: r, assignmentService: assignmentService, clientService: clientService}
}

type AssignRequest struct {
	ClientID  string `json:"clientId" binding:"required"`
	RoutineID string `json:"routineId" binding:"required"`
	StartDate *Date  `json:"startDate"`
	EndDate   *Date  `json:"endDate"`
	// Either ["monday", ...] or {"monday": true, ...}.
	AssignedDays any `json:"assignedDays"`
}

// UpdateAssignmentRequest leaves omitted fields unchanged.
type UpdateAssignmentRequest struct {
	StartDate    *Date `json:"startDate"`
	EndDate      *Date `json:"endDate"`
	ClearEndDate bool  `json:"clearEndDate"`
	IsActive     *bool `json:"isActive"`
	AssignedDays any   `json:"assignedDays"`
}

type CompleteWorkoutRequest struct {
	WorkoutID string `json:"workoutId" binding:"required"`
	Notes     string `json:"notes"`
	Rating    *int   `json:"rating"`
}

// CompletionRequest logs a session against the assignment in its body.
type CompletionRequest struct {
	ClientRoutineID string `json:"clientRoutineId" binding:"required"`
	CompleteWorkoutRequest
}

type UpdateCompletionRequest struct {
	Notes       *string `json:"notes"`
	Rating      *int    `json:"rating"`
	ClearRating bool    `json:"clearRating"`
}

// Assign godoc
// @Summary Assign a routine to a client
// @Description Fails with 409 when the client already has the routine assigned and active.
// @Tags Assignments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param assignment body AssignRequest true "Assignment"
// @Success 201 {object} AssignmentResponse
// @Failure 400 {object} gin.H "Invalid input or assigned days"
// @Failure 404 {object} gin.H "Client or routine not found"
// @Failure 409 {object} gin.H "Routine already active for the client"
// @Router /client-routines [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ids, err := parseObjectIDs([]string{req.ClientID, req.RoutineID})
	if err != nil {
		h.badRequest(c, err)
		return
	}

	assignment, err := h.assignmentService.Assign(c.Request.Context(), service.AssignmentInput{
		ClientID:     ids[0],
		RoutineID:    ids[1],
		StartDate:    req.StartDate.timePtr(),
		EndDate:      req.EndDate.timePtr(),
		AssignedDays: req.AssignedDays,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapAssignmentToResponse(assignment))
}

// ListAssignments filters by clientId, routineId and isActive.
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	var filter repository.ClientRoutineFilter
	var ok bool
	if filter.ClientID, ok = h.queryID(c, "clientId"); !ok {
		return
	}
	if filter.RoutineID, ok = h.queryID(c, "routineId"); !ok {
		return
	}
	if filter.IsActive, ok = h.queryBool(c, "isActive"); !ok {
		return
	}

	list, err := h.assignmentService.ListAssignments(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapAssignmentsToResponse(list))
}

func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	assignment, err := h.assignmentService.GetAssignment(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapAssignmentToResponse(assignment))
}

// UpdateAssignment godoc
// @Summary Update a routine assignment
// @Description Reactivating an assignment fails with 409 when the client already has the routine active.
// @Tags Assignments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param assignment body UpdateAssignmentRequest true "Changes"
// @Success 200 {object} AssignmentResponse
// @Failure 400 {object} gin.H "Invalid input or assigned days"
// @Failure 404 {object} gin.H "Assignment not found"
// @Failure 409 {object} gin.H "Routine already active for the client"
// @Router /client-routines/{id} [put]
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	assignment, err := h.assignmentService.UpdateAssignment(c.Request.Context(), id, service.AssignmentUpdate{
		StartDate:    req.StartDate.timePtr(),
		EndDate:      req.EndDate.timePtr(),
		ClearEndDate: req.ClearEndDate,
		IsActive:     req.IsActive,
		AssignedDays: req.AssignedDays,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapAssignmentToResponse(assignment))
}

// DeleteAssignment removes the assignment and its logged sessions.
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.assignmentService.DeleteAssignment(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AssignmentHandler) Deactivate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	assignment, err := h.assignmentService.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapAssignmentToResponse(assignment))
}

// CompleteWorkout godoc
// @Summary Log a completed workout session
// @Description Staff may log for any assignment; clients only for their own.
// @Tags Assignments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param completion body CompleteWorkoutRequest true "Session"
// @Success 201 {object} CompletionResponse
// @Failure 400 {object} gin.H "Invalid input or rating"
// @Failure 403 {object} gin.H "Assignment belongs to another client"
// @Failure 404 {object} gin.H "Assignment or workout not found"
// @Router /client-routines/{id}/complete-workout [post]
func (h *AssignmentHandler) CompleteWorkout(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req CompleteWorkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	h.logCompletion(c, id, req)
}

func (h *AssignmentHandler) logCompletion(c *gin.Context, assignmentID primitive.ObjectID, req CompleteWorkoutRequest) {
	workoutID, err := primitive.ObjectIDFromHex(req.WorkoutID)
	if err != nil {
		h.badRequest(c, errors.New("invalid workoutId format"))
		return
	}

	input := service.CompletionInput{WorkoutID: workoutID, Notes: req.Notes, Rating: req.Rating}
	if role, _ := getUserRoleFromContext(c); role == domain.RoleClient {
		owner, ok := h.callerClientID(c)
		if !ok {
			return
		}
		input.OwnerID = &owner
	}

	event, err := h.assignmentService.LogCompletion(c.Request.Context(), assignmentID, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapCompletionToResponse(event))
}

func (h *AssignmentHandler) callerClientID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return primitive.NilObjectID, false
	}
	client, err := h.clientService.GetClientByUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return primitive.NilObjectID, false
	}
	return client.ID, true
}

// GetProgress lists the logged sessions of an assignment, newest first.
func (h *AssignmentHandler) GetProgress(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	events, err := h.assignmentService.CompletionHistory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapCompletionsToResponse(events))
}

// CreateCompletion logs a session for the assignment named in the body.
func (h *AssignmentHandler) CreateCompletion(c *gin.Context) {
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	assignmentID, err := primitive.ObjectIDFromHex(req.ClientRoutineID)
	if err != nil {
		h.badRequest(c, errors.New("invalid clientRoutineId format"))
		return
	}
	h.logCompletion(c, assignmentID, req.CompleteWorkoutRequest)
}

// ListCompletions filters by clientRoutineId, clientId and workoutId.
func (h *AssignmentHandler) ListCompletions(c *gin.Context) {
	var filter repository.RoutineProgressFilter
	var ok bool
	if filter.ClientRoutineID, ok = h.queryID(c, "clientRoutineId"); !ok {
		return
	}
	if filter.ClientID, ok = h.queryID(c, "clientId"); !ok {
		return
	}
	if filter.WorkoutID, ok = h.queryID(c, "workoutId"); !ok {
		return
	}
	events, err := h.assignmentService.ListCompletions(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapCompletionsToResponse(events))
}

func (h *AssignmentHandler) GetCompletion(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	event, err := h.assignmentService.GetCompletion(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapCompletionToResponse(event))
}

func (h *AssignmentHandler) UpdateCompletion(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	event, err := h.assignmentService.UpdateCompletion(c.Request.Context(), id, service.CompletionUpdate{
		Notes:       req.Notes,
		Rating:      req.Rating,
		ClearRating: req.ClearRating,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapCompletionToResponse(event))
}

func (h *AssignmentHandler) DeleteCompletion(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.assignmentService.DeleteCompletion(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
