package handlers

import (
	"healthcare-booking-server/internal/middleware"
	"healthcare-booking-server/internal/models"
	"healthcare-booking-server/internal/scheduling"
	"healthcare-booking-server/internal/utils"

	"github.com/gin-gonic/gin"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *scheduling.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(service *scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{Service: service}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	PractitionerID string `json:"practitionerId" binding:"required,uuid"`
	Date           string `json:"date" binding:"required"`
	TimeSlot       string `json:"timeSlot" binding:"required"`
	Mode           string `json:"mode" binding:"required,oneof=virtual in-person"`
	Reason         string `json:"reason" binding:"required"`
	Duration       int    `json:"duration"`
	Location       string `json:"location"`
	Notes          string `json:"notes"`
}

// CreateAppointment handles booking a new appointment. Initiated by a patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Service.Book(c.Request.Context(), caller, scheduling.BookInput{
		PractitionerID:  req.PractitionerID,
		Date:            req.Date,
		TimeSlot:        req.TimeSlot,
		Mode:            models.AppointmentMode(req.Mode),
		Reason:          req.Reason,
		DurationMinutes: req.Duration,
		Location:        req.Location,
		Notes:           req.Notes,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Created(c, "Appointment created successfully", appt)
}

// GetMyAppointments handles fetching appointments for the logged-in user.
// Patients see their own bookings, practitioners their assigned ones, admins
// everything.
func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appointments, err := h.Service.ListForCaller(c.Request.Context(), caller)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by involved patient, practitioner, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.Get(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Appointment fetched successfully", appt)
}

// NotePayload carries SOAP note fields attached to a completion request.
type NotePayload struct {
	NoteType   string `json:"noteType"`
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

func (p *NotePayload) toInput() *scheduling.NoteInput {
	if p == nil {
		return nil
	}
	return &scheduling.NoteInput{
		NoteType:   models.NoteType(p.NoteType),
		Subjective: p.Subjective,
		Objective:  p.Objective,
		Assessment: p.Assessment,
		Plan:       p.Plan,
	}
}

// UpdateAppointmentStatusRequest represents the request body for updating an
// appointment's status. Date and TimeSlot accompany a reschedule; Note
// accompanies a completion.
type UpdateAppointmentStatusRequest struct {
	Status             string       `json:"status" binding:"required"`
	SessionLink        string       `json:"sessionLink"`
	Notes              string       `json:"notes"`
	CancellationReason string       `json:"cancellationReason"`
	Date               string       `json:"date"`
	TimeSlot           string       `json:"timeSlot"`
	Note               *NotePayload `json:"note"`
}

// UpdateAppointmentStatus handles driving the appointment state machine.
// Authorization per transition happens in the scheduling service.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, note, err := h.Service.UpdateStatus(c.Request.Context(), caller, c.Param("id"), scheduling.StatusUpdate{
		Status:             models.AppointmentStatus(req.Status),
		SessionLink:        req.SessionLink,
		Notes:              req.Notes,
		CancellationReason: req.CancellationReason,
		Date:               req.Date,
		TimeSlot:           req.TimeSlot,
		Note:               req.Note.toInput(),
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	if note != nil {
		utils.Success(c, "Appointment status updated successfully", gin.H{
			"appointment":  appt,
			"clinicalNote": note,
		})
		return
	}
	utils.Success(c, "Appointment status updated successfully", appt)
}

// GetAppointmentNote handles fetching the clinical note tied to an
// appointment, under the appointment's viewing rule.
func (h *AppointmentHandler) GetAppointmentNote(c *gin.Context) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	note, err := h.Service.NoteForAppointment(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Clinical note fetched successfully", note)
}
