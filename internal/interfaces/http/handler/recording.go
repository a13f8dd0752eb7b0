package handler

import (
	"github.com/echodesk/backend/internal/application/crm"
	"github.com/echodesk/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecordingHandler handles call recording HTTP requests
type RecordingHandler struct {
	BaseHandler
	recordingService *crm.RecordingService
}

// NewRecordingHandler creates a new recording handler
func NewRecordingHandler(recordingService *crm.RecordingService) *RecordingHandler {
	return &RecordingHandler{
		recordingService: recordingService,
	}
}

// Start godoc
//
//	@ID				startRecording
//	@Summary		Start recording a call
//	@Description	Start capturing audio on a live call
//	@Tags			recordings
//	@Produce		json
//	@Param			id	path	string	true	"Call ID"
//	@Success		201		{object}	APIResponse[crm.RecordingDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		422		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/recordings [post]
func (h *RecordingHandler) Start(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid call ID")
		return
	}

	rec, err := h.recordingService.Start(c.Request.Context(), tenantID, callID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, rec)
}

// Stop godoc
//
//	@ID				stopRecording
//	@Summary		Stop a recording
//	@Description	Stop capture and reserve a pre-signed upload slot for the audio file
//	@Tags			recordings
//	@Produce		json
//	@Param			id			path		string	true	"Call ID"
//	@Param			recordingId	path		string	true	"Recording ID"
//	@Success		200			{object}	APIResponse[crm.UploadSlotDTO]
//	@Failure		404			{object}	dto.ErrorResponse
//	@Failure		422			{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/recordings/{recordingId}/stop [post]
func (h *RecordingHandler) Stop(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid call ID")
		return
	}

	recordingID, err := uuid.Parse(c.Param("recordingId"))
	if err != nil {
		h.BadRequest(c, "Invalid recording ID")
		return
	}

	slot, err := h.recordingService.Stop(c.Request.Context(), tenantID, callID, recordingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, slot)
}

// CompleteRecordingRequest reports the uploaded file's final shape.
type CompleteRecordingRequest struct {
	SizeBytes       int64 `json:"size_bytes" binding:"required,min=1"`
	DurationSeconds int   `json:"duration_seconds" binding:"required,min=1"`
}

// Complete godoc
//
//	@ID				completeRecording
//	@Summary		Mark an upload as complete
//	@Description	Confirm the audio file landed in storage and make it playable
//	@Tags			recordings
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Recording ID"
//	@Param			request	body		CompleteRecordingRequest	true	"Upload result"
//	@Success		200		{object}	APIResponse[crm.RecordingDTO]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Failure		422		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/recordings/{id}/complete [post]
func (h *RecordingHandler) Complete(c *gin.Context) {
	var req CompleteRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid recording ID")
		return
	}

	rec, err := h.recordingService.Complete(c.Request.Context(), tenantID, recordingID, req.SizeBytes, req.DurationSeconds)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, rec)
}

// FailRecordingRequest records why an upload never arrived.
type FailRecordingRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// Fail godoc
//
//	@ID				failRecording
//	@Summary		Mark a recording as failed
//	@Tags			recordings
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Recording ID"
//	@Param			request	body		FailRecordingRequest	true	"Failure reason"
//	@Success		200		{object}	APIResponse[dto.MessageResponse]
//	@Failure		404		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/recordings/{id}/fail [post]
func (h *RecordingHandler) Fail(c *gin.Context) {
	var req FailRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid recording ID")
		return
	}

	if err := h.recordingService.Fail(c.Request.Context(), tenantID, recordingID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Recording marked as failed"})
}

// GetPlaybackURL godoc
//
//	@ID				getRecordingPlayback
//	@Summary		Get a playback URL
//	@Description	Issue a short-lived pre-signed URL for a completed recording
//	@Tags			recordings
//	@Produce		json
//	@Param			id	path		string	true	"Recording ID"
//	@Success		200	{object}	APIResponse[crm.PlaybackDTO]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Failure		422	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/recordings/{id}/playback [get]
func (h *RecordingHandler) GetPlaybackURL(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid recording ID")
		return
	}

	playback, err := h.recordingService.GetPlaybackURL(c.Request.Context(), tenantID, recordingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, playback)
}

// ListByCall godoc
//
//	@ID				listCallRecordings
//	@Summary		List recordings for a call
//	@Tags			recordings
//	@Produce		json
//	@Param			id	path	string	true	"Call ID"
//	@Success		200		{object}	APIResponse[[]crm.RecordingDTO]
//	@Failure		401		{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/calls/{id}/recordings [get]
func (h *RecordingHandler) ListByCall(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	callID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid call ID")
		return
	}

	recs, err := h.recordingService.ListByCall(c.Request.Context(), tenantID, callID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, recs)
}

// Delete godoc
//
//	@ID				deleteRecording
//	@Summary		Delete a recording
//	@Description	Remove the recording row and its stored audio file
//	@Tags			recordings
//	@Produce		json
//	@Param			id	path		string	true	"Recording ID"
//	@Success		200	{object}	APIResponse[dto.MessageResponse]
//	@Failure		404	{object}	dto.ErrorResponse
//	@Security		BearerAuth
//	@Router			/crm/recordings/{id} [delete]
func (h *RecordingHandler) Delete(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant could not be resolved")
		return
	}

	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid recording ID")
		return
	}

	if err := h.recordingService.Delete(c.Request.Context(), tenantID, recordingID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.MessageResponse{Message: "Recording deleted"})
}
