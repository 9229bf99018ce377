package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/shelf"
)

// ProfileController handles user profile operations.
type ProfileController struct {
	authService *auth.Service
}

// NewProfileController creates a new ProfileController.
func NewProfileController(authService *auth.Service) *ProfileController {
	return &ProfileController{
		authService: authService,
	}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,nefield=CurrentPassword"`
}

// ChangePassword handles PUT /api/auth/password.
func (pc *ProfileController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	err := pc.authService.ChangePassword(c.Request.Context(), auth.GetUserID(c), req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		respondSuccess(c, "password changed")
	case errors.Is(err, auth.ErrInvalidPassword):
		respond(c, http.StatusBadRequest, "INVALID_CREDENTIALS", levelError, "current password is incorrect")
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		respondBadRequest(c, err.Error())
	case errors.Is(err, auth.ErrUserNotFound):
		respondServiceError(c, shelf.ErrUnauthenticated, "change password")
	default:
		respondInternalError(c, err, "change password")
	}
}
