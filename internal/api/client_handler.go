package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"
	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientHandler serves client profiles and the per-client views of the
// ledger and metrics.
type ClientHandler struct {
	responder
	clientService     service.ClientService
	assignmentService service.AssignmentService
	metricsService    service.MetricsService
}

func NewClientHandler(clientService service.ClientService, assignmentService service.AssignmentService, metricsService service.MetricsService, r responder) *ClientHandler {
	return &ClientHandler{
		responder:         r,
		clientService:     clientService,
		assignmentService: assignmentService,
		metricsService:    metricsService,
	}
}

// ClientRequest is the body of client create, update and signup.
type ClientRequest struct {
	Name              string                  `json:"name" binding:"required"`
	Email             string                  `json:"email" binding:"required,email"`
	Phone             string                  `json:"phone" binding:"required"`
	BirthDate         *Date                   `json:"birthDate" binding:"required"`
	Weight            float64                 `json:"weight" binding:"gte=0"`
	Height            float64                 `json:"height" binding:"gte=0"`
	Goals             []string                `json:"goals"`
	JoinDate          *Date                   `json:"joinDate"`
	SubscriptionType  domain.SubscriptionType `json:"subscriptionType"`
	SubscriptionStart *Date                   `json:"subscriptionStart"`
	SubscriptionEnd   *Date                   `json:"subscriptionEnd"`
	Notes             string                  `json:"notes"`
	EmergencyContact  string                  `json:"emergencyContact"`
	MedicalConditions string                  `json:"medicalConditions"`
	UserID            *string                 `json:"userId"`
}

func (r ClientRequest) toInput() (service.ClientInput, error) {
	in := service.ClientInput{
		Name:              r.Name,
		Email:             r.Email,
		Phone:             r.Phone,
		BirthDate:         r.BirthDate.Time,
		Weight:            r.Weight,
		Height:            r.Height,
		Goals:             r.Goals,
		JoinDate:          r.JoinDate.timePtr(),
		SubscriptionType:  r.SubscriptionType,
		SubscriptionStart: r.SubscriptionStart.timePtr(),
		SubscriptionEnd:   r.SubscriptionEnd.timePtr(),
		Notes:             r.Notes,
		EmergencyContact:  r.EmergencyContact,
		MedicalConditions: r.MedicalConditions,
	}
	if r.UserID != nil && *r.UserID != "" {
		id, err := primitive.ObjectIDFromHex(*r.UserID)
		if err != nil {
			return in, errors.New("invalid userId format")
		}
		in.UserID = &id
	}
	return in, nil
}

// CreateClientResponse carries the new profile and the credentials of the
// identity provisioned with it.
type CreateClientResponse struct {
	Client      ClientResponse       `json:"client"`
	User        UserResponse         `json:"user"`
	Credentials *CredentialsResponse `json:"credentials,omitempty"`
}

// CreateClient godoc
// @Summary Register a client
// @Description Creates the client and provisions its login identity atomically.
// @Tags Clients
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param client body ClientRequest true "Client profile"
// @Success 201 {object} CreateClientResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 409 {object} gin.H "Email, phone or identity already in use"
// @Router /clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.badRequest(c, err)
		return
	}

	client, user, err := h.clientService.CreateClient(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := CreateClientResponse{
		Client: MapClientToResponse(client, h.now()),
		User:   MapUserToResponse(user),
	}
	// The client is already committed; missing credentials only trim the response.
	if creds, err := h.clientService.Credentials(c.Request.Context(), client.ID); err == nil {
		cr := MapCredentialsToResponse(*creds)
		resp.Credentials = &cr
	}
	c.JSON(http.StatusCreated, resp)
}

// ListClients godoc
// @Summary List clients
// @Tags Clients
// @Security BearerAuth
// @Produce json
// @Param search query string false "Substring of name, email or phone"
// @Param subscriptionType query string false "Comma separated subscription types"
// @Param subscriptionStatus query string false "active, expired or none"
// @Param minAge query int false "Minimum age in years, inclusive"
// @Param maxAge query int false "Maximum age in years, inclusive"
// @Param hasIdentity query bool false "Only clients with or without a login identity"
// @Param hasGoals query bool false "Only clients with or without listed goals"
// @Param hasRoutines query bool false "Only clients with or without active routines"
// @Param routineCount query int false "Exact number of active routines"
// @Success 200 {array} ClientResponse
// @Router /clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	q := service.ClientQuery{
		Search:             strings.TrimSpace(c.Query("search")),
		SubscriptionStatus: domain.SubscriptionStatus(c.Query("subscriptionStatus")),
	}
	for _, raw := range c.QueryArray("subscriptionType") {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				q.SubscriptionTypes = append(q.SubscriptionTypes, domain.SubscriptionType(t))
			}
		}
	}

	var ok bool
	if q.MinAge, ok = h.queryInt(c, "minAge"); !ok {
		return
	}
	if q.MaxAge, ok = h.queryInt(c, "maxAge"); !ok {
		return
	}
	if q.HasIdentity, ok = h.queryBool(c, "hasIdentity"); !ok {
		return
	}
	if q.HasGoals, ok = h.queryBool(c, "hasGoals"); !ok {
		return
	}
	if q.HasRoutines, ok = h.queryBool(c, "hasRoutines"); !ok {
		return
	}
	if q.RoutineCount, ok = h.queryInt(c, "routineCount"); !ok {
		return
	}

	clients, err := h.clientService.ListClients(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapClientsToResponse(clients, h.now()))
}

func (h *ClientHandler) queryInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		h.badRequest(c, fmt.Errorf("%s must be an integer", name))
		return nil, false
	}
	return &v, true
}

func (h *ClientHandler) GetClient(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	client, err := h.clientService.GetClient(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapClientToResponse(client, h.now()))
}

// myClient resolves the client profile of the calling identity.
func (h *ClientHandler) myClient(c *gin.Context) (*domain.Client, bool) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return nil, false
	}
	client, err := h.clientService.GetClientByUser(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	return client, true
}

// GetMyClient returns the profile linked to the caller.
func (h *ClientHandler) GetMyClient(c *gin.Context) {
	client, ok := h.myClient(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, MapClientToResponse(client, h.now()))
}

// GetMyRoutines lists the routines actively assigned to the caller.
func (h *ClientHandler) GetMyRoutines(c *gin.Context) {
	client, ok := h.myClient(c)
	if !ok {
		return
	}
	h.writeActiveRoutines(c, client.ID)
}

func (h *ClientHandler) UpdateClient(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.badRequest(c, err)
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), id, input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapClientToResponse(client, h.now()))
}

// DeleteClient godoc
// @Summary Delete a client
// @Description Removes the client with its assignments, completions, snapshots and goals. The login identity is kept.
// @Tags Clients
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} gin.H "Client not found"
// @Router /clients/{id} [delete]
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.clientService.DeleteClient(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// EnsureIdentity provisions the login identity of a client created without one.
func (h *ClientHandler) EnsureIdentity(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	user, err := h.clientService.EnsureIdentity(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapUserToResponse(user))
}

func (h *ClientHandler) GetCredentials(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	creds, err := h.clientService.Credentials(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapCredentialsToResponse(*creds))
}

func (h *ClientHandler) GetAllCredentials(c *gin.Context) {
	all, err := h.clientService.AllCredentials(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]CredentialsResponse, len(all))
	for i := range all {
		resp[i] = MapCredentialsToResponse(all[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ClientHandler) GetStatistics(c *gin.Context) {
	stats, err := h.clientService.Statistics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, StatisticsResponse(*stats))
}

// GetClientRoutines lists the routines actively assigned to a client.
func (h *ClientHandler) GetClientRoutines(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.writeActiveRoutines(c, id)
}

func (h *ClientHandler) writeActiveRoutines(c *gin.Context, clientID primitive.ObjectID) {
	active, err := h.assignmentService.ActiveRoutinesFor(c.Request.Context(), clientID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := make([]ActiveRoutineResponse, len(active))
	for i := range active {
		resp[i] = ActiveRoutineResponse{
			Assignment: MapAssignmentToResponse(&active[i].Assignment),
			Routine:    MapRoutineToResponse(&active[i].Routine),
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ClientHandler) GetClientProgress(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	snapshots, err := h.metricsService.ListSnapshots(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapSnapshotsToResponse(snapshots))
}

func (h *ClientHandler) GetClientGoals(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	completed, ok := h.queryBool(c, "completed")
	if !ok {
		return
	}
	goals, err := h.metricsService.ListGoals(c.Request.Context(), repository.GoalFilter{ClientID: &id, Completed: completed})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapGoalsToResponse(goals))
}

// UploadProfileImage godoc
// @Summary Upload a client profile image
// @Tags Clients
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 200 {object} ClientResponse
// @Failure 400 {object} gin.H "Missing file or not an image"
// @Router /clients/{id}/profile-image [post]
func (h *ClientHandler) UploadProfileImage(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	upload, f, err := formUpload(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	defer f.Close()

	client, err := h.clientService.UploadProfileImage(c.Request.Context(), id, upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MapClientToResponse(client, h.now()))
}
