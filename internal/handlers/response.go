package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"github.com/MarioJames/super-lotto/internal/lottery"
	"github.com/MarioJames/super-lotto/internal/services"
)

const codeBadRequest = "BAD_REQUEST"

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondError maps a service error onto the HTTP status and error envelope.
func respondError(c *gin.Context, err error) {
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": err.Error(), "code": "INVALID_CREDENTIALS"})
		return
	}

	code, details := lottery.Describe(err)
	status := statusFor(code)
	body := gin.H{"success": false, "error": err.Error(), "code": code}
	if details != nil {
		body["details"] = details
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err, "path", c.FullPath())
		body["error"] = "internal server error"
	}
	c.JSON(status, body)
}

func statusFor(code string) int {
	switch code {
	case lottery.CodeNotFound:
		return http.StatusNotFound
	case lottery.CodeValidation, lottery.CodeInvalidCount:
		return http.StatusBadRequest
	case lottery.CodeAlreadyDrawn, lottery.CodeRoundOutOfOrder, lottery.CodeConcurrentDraw:
		return http.StatusConflict
	case lottery.CodeInsufficientParticipants:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg, "code": codeBadRequest})
}

// parseID reads a positive integer path parameter, answering 400 otherwise.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
