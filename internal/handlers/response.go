package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courseloom/scorm-backend/internal/apierr"
	"github.com/courseloom/scorm-backend/internal/scorm"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError translates typed service errors into the envelope:
// apierr carries its own status, SCORM errors map by code, anything
// else is a 500.
func RespondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae.Err)
		return
	}
	var se *scorm.Error
	if errors.As(err, &se) {
		status := http.StatusUnprocessableEntity
		switch se.Code {
		case "invalid_value", "not_launchable":
			status = http.StatusBadRequest
		}
		RespondError(c, status, se.Code, se)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", err)
}
