package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bookshelf/internal/catalog"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

const (
	levelError = "error"
	levelInfo  = "info"
)

// ErrorResponse is the body of every failed or informational response.
// Exactly one of Error and Notice is set, matching Level.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Notice  string `json:"notice,omitempty"`
	Code    string `json:"code"`
	Level   string `json:"level"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// errorMapping ties a domain error to its HTTP rendering. The user-visible
// message is the target's own text, never the wrapped cause.
type errorMapping struct {
	target error
	status int
	code   string
	level  string
}

var errorMappings = []errorMapping{
	{shelf.ErrAlreadyOnShelf, http.StatusConflict, "ALREADY_ON_SHELF", levelInfo},
	{shelf.ErrNoActiveReread, http.StatusConflict, "NO_ACTIVE_REREAD", levelInfo},
	{shelf.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED", levelError},
	{catalog.ErrQueryRequired, http.StatusBadRequest, "BAD_REQUEST", levelError},
	{shelf.ErrInvalidStatus, http.StatusBadRequest, "BAD_REQUEST", levelError},
	{shelf.ErrInvalidEdition, http.StatusBadRequest, "BAD_REQUEST", levelError},
	{shelf.ErrNotFound, http.StatusNotFound, "NOT_FOUND", levelError},
	{shelf.ErrBookNotFound, http.StatusNotFound, "NOT_FOUND", levelError},
	{shelf.ErrInvalidState, http.StatusConflict, "INVALID_STATE", levelError},
	{shelf.ErrRereadInProgress, http.StatusConflict, "INVALID_STATE", levelError},
}

// respondServiceError converts a shelf or catalog failure into a notice.
// Upstream and persistence causes are logged and replaced by a generic message.
func respondServiceError(c *gin.Context, err error, context string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respond(c, m.status, m.code, m.level, m.target.Error())
			return
		}
	}

	var persistErr *shelf.PersistenceError
	switch {
	case errors.Is(err, catalog.ErrUpstreamUnavailable):
		log.Printf("Upstream error (%s): %v", context, err)
		respond(c, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", levelError,
			"the book catalog is unavailable, please try again later")
	case errors.Is(err, shelf.ErrConcurrentUpdate), errors.As(err, &persistErr):
		log.Printf("Persistence error (%s): %v", context, err)
		respond(c, http.StatusInternalServerError, "PERSISTENCE_ERROR", levelError,
			"your changes could not be saved, please try again")
	default:
		respondInternalError(c, err, context)
	}
}

func respond(c *gin.Context, status int, code, level, message string) {
	body := ErrorResponse{Code: code, Level: level}
	if level == levelInfo {
		body.Notice = message
	} else {
		body.Error = message
	}
	c.AbortWithStatusJSON(status, body)
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	respond(c, http.StatusBadRequest, "BAD_REQUEST", levelError, message)
}

// respondBindError reports which fields failed validation.
func respondBindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		respondBadRequest(c, "malformed request body")
		return
	}

	details := make(map[string]string, len(validationErrs))
	for _, fe := range validationErrs {
		details[strings.ToLower(fe.Field())] = fe.Tag()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:   "request validation failed",
		Code:    "BAD_REQUEST",
		Level:   levelError,
		Details: details,
	})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	respond(c, http.StatusNotFound, "NOT_FOUND", levelError, resource+" not found")
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	respond(c, http.StatusInternalServerError, "INTERNAL", levelError, "internal server error")
}

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parseLimit reads an optional positive limit capped at max. Missing or
// malformed values fall back to def.
func parseLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func parseOffset(c *gin.Context) int {
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}
