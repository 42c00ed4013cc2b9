package handlers

import (
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/scheduling"
	"healthcare-booking-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// NoteHandler handles clinical note related requests.
type NoteHandler struct {
	Service *scheduling.Service
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(service *scheduling.Service) *NoteHandler {
	return &NoteHandler{Service: service}
}

// CreateNoteRequest represents the request body for recording a clinical note.
type CreateNoteRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
	Subjective    string `json:"subjective" binding:"required"`
	Objective     string `json:"objective" binding:"required"`
	Assessment    string `json:"assessment" binding:"required"`
	Plan          string `json:"plan" binding:"required"`
	NoteType      string `json:"noteType" binding:"omitempty,oneof=SOAP Progress"`
}

// CreateClinicalNote records a SOAP note for an appointment and completes the
// appointment in the same transaction. Practitioner-only.
func (h *NoteHandler) CreateClinicalNote(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateNoteRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, note, err := h.Service.CompleteWithNote(c.Request.Context(), caller, req.AppointmentID, scheduling.NoteInput{
		NoteType:   models.NoteType(req.NoteType),
		Subjective: req.Subjective,
		Objective:  req.Objective,
		Assessment: req.Assessment,
		Plan:       req.Plan,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Clinical note recorded successfully", gin.H{
		"appointment":  appt,
		"clinicalNote": note,
	})
}

// SignClinicalNote marks a note as signed. Restricted to its creating
// practitioner; a second signing fails with a conflict.
func (h *NoteHandler) SignClinicalNote(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	note, err := h.Service.SignNote(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Clinical note signed successfully", note)
}
