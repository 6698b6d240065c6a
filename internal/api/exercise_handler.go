package api

import (
	"net/http"
	"strings"

	"github.com/chatuz-park/gym-now-back/internal/domain"
	"github.com/chatuz-park/gym-now-back/internal/repository"
	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
)

// ExerciseHandler serves the exercise library.
type ExerciseHandler struct {
	responder
	exerciseService service.ExerciseService
}

func NewExerciseHandler(exerciseService service.ExerciseService, r responder) *ExerciseHandler {
	return &ExerciseHandler{responder: r, exerciseService: exerciseService}
}

type ExerciseRequest struct {
	Name         string            `json:"name" binding:"required"`
	Description  string            `json:"description"`
	MuscleGroups []string          `json:"muscleGroups"`
	Equipment    []string          `json:"equipment"`
	Difficulty   domain.Difficulty `json:"difficulty" binding:"required,oneof=beginner intermediate advanced"`
	Instructions []string          `json:"instructions"`
	VideoURL     string            `json:"videoUrl" binding:"omitempty,url"`
	ImageURL     string            `json:"imageUrl" binding:"omitempty,url"`
}

func (r ExerciseRequest) toInput() service.ExerciseInput {
	return service.ExerciseInput{
		Name:         r.Name,
		Description:  r.Description,
		MuscleGroups: r.MuscleGroups,
		Equipment:    r.Equipment,
		Difficulty:   r.Difficulty,
		Instructions: r.Instructions,
		VideoURL:     r.VideoURL,
		ImageURL:     r.ImageURL,
	}
}

// CreateExercise godoc
// @Summary Add an exercise to the library
// @Tags Exercises
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param exercise body ExerciseRequest true "Exercise details"
// @Success 201 {object} domain.Exercise
// @Failure 400 {object} gin.H "Invalid input"
// @Router /exercises [post]
func (h *ExerciseHandler) CreateExercise(c *gin.Context) {
	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	exercise, err := h.exerciseService.CreateExercise(c.Request.Context(), req.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, exercise)
}

func (h *ExerciseHandler) ListExercises(c *gin.Context) {
	filter := repository.ExerciseFilter{
		Difficulty:  domain.Difficulty(c.Query("difficulty")),
		MuscleGroup: strings.TrimSpace(c.Query("muscleGroup")),
		Search:      strings.TrimSpace(c.Query("search")),
	}
	exercises, err := h.exerciseService.ListExercises(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exercises)
}

func (h *ExerciseHandler) GetExercise(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	exercise, err := h.exerciseService.GetExercise(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

func (h *ExerciseHandler) UpdateExercise(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	exercise, err := h.exerciseService.UpdateExercise(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

func (h *ExerciseHandler) DeleteExercise(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.exerciseService.DeleteExercise(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadMedia godoc
// @Summary Upload an exercise image or video
// @Tags Exercises
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param kind formData string true "image or video"
// @Param file formData file true "Media file"
// @Success 200 {object} domain.Exercise
// @Failure 400 {object} gin.H "Missing file or wrong media type"
// @Router /exercises/{id}/media [post]
func (h *ExerciseHandler) UploadMedia(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	kind := service.MediaKind(c.PostForm("kind"))
	upload, f, err := formUpload(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	defer f.Close()

	exercise, err := h.exerciseService.UploadMedia(c.Request.Context(), id, kind, upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// GetMediaURL returns a download URL for the exercise image or video.
func (h *ExerciseHandler) GetMediaURL(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	url, err := h.exerciseService.MediaURL(c.Request.Context(), id, service.MediaKind(c.Param("kind")))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
