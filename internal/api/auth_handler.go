package api

import (
	"net/http"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves login, signup and identity lookups.
type AuthHandler struct {
	responder
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService, r responder) *AuthHandler {
	return &AuthHandler{responder: r, authService: authService}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SessionResponse struct {
	Token  string          `json:"token"`
	User   UserResponse    `json:"user"`
	Client *ClientResponse `json:"client,omitempty"`
}

type MeResponse struct {
	User   UserResponse    `json:"user"`
	Client *ClientResponse `json:"client,omitempty"`
}

type CreateStaffRequest struct {
	Username string      `json:"username" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=8"`
	Role     domain.Role `json:"role" binding:"required,oneof=owner trainer"`
}

func sessionResponse(s *service.Session, now time.Time) SessionResponse {
	resp := SessionResponse{Token: s.Token, User: MapUserToResponse(s.User)}
	if s.Client != nil {
		cr := MapClientToResponse(s.Client, now)
		resp.Client = &cr
	}
	return resp
}

// Login godoc
// @Summary Log in with username and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 401 {object} gin.H "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	session, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse(session, h.now()))
}

// SignUp godoc
// @Summary Self-service client registration
// @Description Creates a client profile and its login identity, then logs in.
// @Tags Auth
// @Accept json
// @Produce json
// @Param client body ClientRequest true "Client profile"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} gin.H "Invalid input"
// @Failure 409 {object} gin.H "Email or phone already registered"
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
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
	session, err := h.authService.SignUp(c.Request.Context(), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionResponse(session, h.now()))
}

// Me returns the caller's identity and, for clients, their profile.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, err.Error())
		return
	}

	user, client, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := MeResponse{User: MapUserToResponse(user)}
	if client != nil {
		cr := MapClientToResponse(client, h.now())
		resp.Client = &cr
	}
	c.JSON(http.StatusOK, resp)
}

// CreateStaff godoc
// @Summary Create an owner or trainer identity
// @Tags Auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param staff body CreateStaffRequest true "Staff account"
// @Success 201 {object} UserResponse
// @Failure 409 {object} gin.H "Username or email taken"
// @Router /staff [post]
func (h *AuthHandler) CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	user, err := h.authService.CreateStaff(c.Request.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, MapUserToResponse(user))
}
