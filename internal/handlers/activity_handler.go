package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MarioJames/super-lotto/internal/models"
	"github.com/MarioJames/super-lotto/internal/roster"
	"github.com/MarioJames/super-lotto/internal/services"
)

// maxImportBytes caps roster uploads.
const maxImportBytes = 8 << 20

// ActivityHandler serves activity, round and participant configuration.
type ActivityHandler struct {
	activityService services.ActivityService
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(activityService services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

// CreateActivity handles POST /activities
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var input models.ActivityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "name is required")
		return
	}
	activity, err := h.activityService.CreateActivity(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, activity)
}

// ListActivities handles GET /activities
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	activities, err := h.activityService.ListActivities(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, activities)
}

// GetActivity handles GET /activities/:id
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	detail, err := h.activityService.GetActivity(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, detail)
}

// UpdateActivity handles PUT /activities/:id
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input models.ActivityInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "name is required")
		return
	}
	activity, err := h.activityService.UpdateActivity(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, activity)
}

// DeleteActivity handles DELETE /activities/:id
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.activityService.DeleteActivity(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

// ConfigureRound handles POST /activities/:id/rounds
func (h *ActivityHandler) ConfigureRound(c *gin.Context) {
	activityID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input models.RoundInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid round payload")
		return
	}
	round, err := h.activityService.ConfigureRound(c.Request.Context(), activityID, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, round)
}

// GetRound handles GET /rounds/:id
func (h *ActivityHandler) GetRound(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	round, err := h.activityService.GetRound(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, round)
}

// UpdateRound handles PUT /rounds/:id. Omitted fields keep their value.
func (h *ActivityHandler) UpdateRound(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var patch models.RoundUpdate
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid round payload")
		return
	}
	round, err := h.activityService.UpdateRound(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, round)
}

// ReorderRounds handles PUT /activities/:id/rounds/order
func (h *ActivityHandler) ReorderRounds(c *gin.Context) {
	activityID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var order models.RoundOrder
	if err := c.ShouldBindJSON(&order); err != nil {
		badRequest(c, "roundIds is required")
		return
	}
	rounds, err := h.activityService.ReorderRounds(c.Request.Context(), activityID, order.RoundIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, rounds)
}

// GetActivityWinners handles GET /activities/:id/winners
func (h *ActivityHandler) GetActivityWinners(c *gin.Context) {
	activityID, ok := parseID(c, "id")
	if !ok {
		return
	}
	winners, err := h.activityService.GetActivityWinners(c.Request.Context(), activityID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, winners)
}

// ParticipantTemplate handles GET /templates/participants
func (h *ActivityHandler) ParticipantTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="`+roster.TemplateFilename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(roster.Template))
}

// DeleteRound handles DELETE /rounds/:id
func (h *ActivityHandler) DeleteRound(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.activityService.DeleteRound(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}

// AddParticipantsRequest accepts either one participant or a batch.
type AddParticipantsRequest struct {
	models.ParticipantInput
	Participants []models.ParticipantInput `json:"participants"`
}

// AddParticipants handles POST /activities/:id/participants
func (h *ActivityHandler) AddParticipants(c *gin.Context) {
	activityID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req AddParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid participant payload")
		return
	}
	inputs := req.Participants
	if len(inputs) == 0 {
		inputs = []models.ParticipantInput{req.ParticipantInput}
	}
	created, err := h.activityService.AddParticipants(c.Request.Context(), activityID, inputs)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, created)
}

// ImportParticipants handles POST /activities/:id/participants/import. The
// CSV is taken from the multipart field "file" or, failing that, the raw body.
func (h *ActivityHandler) ImportParticipants(c *gin.Context) {
	activityID, ok := parseID(c, "id")
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)

	body := c.Request.Body
	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, "failed to read uploaded file")
			return
		}
		defer f.Close()
		body = f
	}

	result, err := h.activityService.ImportParticipants(c.Request.Context(), activityID, body)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, result)
}

// ListParticipants handles GET /activities/:id/participants
func (h *ActivityHandler) ListParticipants(c *gin.Context) {
	activityID, ok := parseID(c, "id")
	if !ok {
		return
	}
	participants, err := h.activityService.ListParticipants(c.Request.Context(), activityID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, participants)
}

// UpdateParticipant handles PUT /participants/:id
func (h *ActivityHandler) UpdateParticipant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input models.ParticipantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "invalid participant payload")
		return
	}
	participant, err := h.activityService.UpdateParticipant(c.Request.Context(), id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, participant)
}

// DeleteParticipant handles DELETE /participants/:id
func (h *ActivityHandler) DeleteParticipant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.activityService.DeleteParticipant(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id})
}
