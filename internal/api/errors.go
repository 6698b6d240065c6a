package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chatuz-park/gym-now-back/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// responder writes error responses for every handler. now is the clock used
// for derived response fields such as age.
type responder struct {
	log     *zap.Logger
	metrics *Metrics
	now     func() time.Time
}

// statusFor maps a service error kind to an HTTP status.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, service.ErrAuth):
		return http.StatusUnauthorized, "auth"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "conflict"
	}
	return http.StatusInternalServerError, "internal"
}

func (r responder) fail(c *gin.Context, err error) {
	status, kind := statusFor(err)
	r.metrics.ErrorCount.WithLabelValues(c.FullPath(), kind).Inc()

	if status == http.StatusInternalServerError {
		r.log.Error("request_failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abortWithError(c, status, "An unexpected error occurred")
		return
	}
	abortWithError(c, status, err.Error())
}

func (r responder) badRequest(c *gin.Context, err error) {
	r.metrics.ErrorCount.WithLabelValues(c.FullPath(), "validation").Inc()
	abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
}

// pathID parses the ObjectID path parameter name, answering 400 when malformed.
func (r responder) pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		r.badRequest(c, fmt.Errorf("invalid %s format", name))
		return primitive.NilObjectID, false
	}
	return id, true
}

// queryID parses an optional ObjectID query parameter.
func (r responder) queryID(c *gin.Context, name string) (*primitive.ObjectID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		r.badRequest(c, fmt.Errorf("invalid %s format", name))
		return nil, false
	}
	return &id, true
}

// queryBool parses an optional boolean query parameter.
func (r responder) queryBool(c *gin.Context, name string) (*bool, bool) {
	switch c.Query(name) {
	case "":
		return nil, true
	case "true", "1":
		v := true
		return &v, true
	case "false", "0":
		v := false
		return &v, true
	}
	r.badRequest(c, fmt.Errorf("%s must be true or false", name))
	return nil, false
}
