package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MarioJames/super-lotto/internal/services"
)

// DrawHandler exposes the draw coordinator over HTTP.
type DrawHandler struct {
	drawService services.DrawService
}

// NewDrawHandler creates a new DrawHandler
func NewDrawHandler(drawService services.DrawService) *DrawHandler {
	return &DrawHandler{drawService: drawService}
}

// ExecuteDrawRequest is the POST /lottery/draw body.
type ExecuteDrawRequest struct {
	RoundID int64 `json:"roundId" binding:"required,gt=0"`
}

// ExecuteDraw handles POST /lottery/draw
func (h *DrawHandler) ExecuteDraw(c *gin.Context) {
	var req ExecuteDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "roundId is required")
		return
	}
	result, err := h.drawService.ExecuteDraw(c.Request.Context(), req.RoundID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// GetDrawResult handles GET /lottery/results/:roundId
func (h *DrawHandler) GetDrawResult(c *gin.Context) {
	roundID, ok := parseID(c, "roundId")
	if !ok {
		return
	}
	winners, err := h.drawService.GetDrawResult(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, winners)
}

// Redraw handles DELETE /lottery/results/:roundId
func (h *DrawHandler) Redraw(c *gin.Context) {
	roundID, ok := parseID(c, "roundId")
	if !ok {
		return
	}
	deleted, err := h.drawService.Redraw(c.Request.Context(), roundID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"roundId": roundID, "deletedWinners": deleted})
}

// ListAvailable handles GET /lottery/available/:activityId
func (h *DrawHandler) ListAvailable(c *gin.Context) {
	activityID, ok := parseID(c, "activityId")
	if !ok {
		return
	}
	participants, err := h.drawService.ListAvailableParticipants(c.Request.Context(), activityID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, participants)
}
