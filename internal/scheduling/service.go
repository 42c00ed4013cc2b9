// Package scheduling owns the appointment lifecycle: conflict-checked
// booking, the status state machine, and the transactional link between an
// appointment's completion and its clinical note.
package scheduling

import (
	"context"
	"errors"
	"time"

	"healthcare-booking-server/internal/apperr"
	"healthcare-booking-server/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Service implements the booking core against the storage layer. Every
// multi-document mutation runs inside a single transaction.
type Service struct {
	db      *gorm.DB
	billing Billing
	logger  zerolog.Logger
}

// NewService creates a scheduling service.
func NewService(db *gorm.DB, billing Billing, logger zerolog.Logger) *Service {
	return &Service{db: db, billing: billing, logger: logger}
}

// BookInput carries a patient's booking request.
type BookInput struct {
	PractitionerID  string
	Date            string
	TimeSlot        string
	Mode            models.AppointmentMode
	Reason          string
	DurationMinutes int
	Location        string
	Notes           string
}

// NoteInput carries the narrative fields of a clinical note.
type NoteInput struct {
	NoteType   models.NoteType
	Subjective string
	Objective  string
	Assessment string
	Plan       string
}

// StatusUpdate carries a status-transition request. Date and TimeSlot are
// required when Status is rescheduled; Note triggers the completion-with-note
// flow when Status is completed.
type StatusUpdate struct {
	Status             models.AppointmentStatus
	SessionLink        string
	Notes              string
	CancellationReason string
	Date               string
	TimeSlot           string
	Note               *NoteInput
}

const defaultDurationMinutes = 30

// Book creates a pending appointment for the calling patient. The slot
// conflict checks give precise error messages but take no locks; the unique
// slot indexes on appointments are what guarantee that two concurrent
// bookings of one slot cannot both commit, so a duplicate-key error from the
// insert is reported as a conflict.
func (s *Service) Book(ctx context.Context, caller Caller, in BookInput) (*models.Appointment, error) {
	if caller.Role != models.RolePatient {
		return nil, apperr.New(apperr.KindForbidden, "only patients can book appointments")
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if in.TimeSlot == "" {
		return nil, apperr.New(apperr.KindBadRequest, "timeSlot is required")
	}
	switch in.Mode {
	case models.ModeVirtual:
	case models.ModeInPerson:
		if in.Location == "" {
			return nil, apperr.New(apperr.KindBadRequest, "location is required for in-person appointments")
		}
	default:
		return nil, apperr.Newf(apperr.KindBadRequest, "invalid mode %q, expected virtual or in-person", in.Mode)
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = defaultDurationMinutes
	}

	var appt models.Appointment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var practitioner models.User
		if err := tx.Where("id = ? AND role = ?", in.PractitionerID, models.RolePractitioner).First(&practitioner).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "practitioner not found")
			}
			return apperr.Internal(err)
		}

		var patient models.User
		if err := tx.Where("id = ? AND role = ?", caller.UserID, models.RolePatient).First(&patient).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "patient profile not found")
			}
			return apperr.Internal(err)
		}

		free, err := slotFree(tx, "practitioner_id", in.PractitionerID, date, in.TimeSlot, "")
		if err != nil {
			return err
		}
		if !free {
			return apperr.New(apperr.KindConflict, "practitioner is not available at the requested slot")
		}

		free, err = slotFree(tx, "patient_id", caller.UserID, date, in.TimeSlot, "")
		if err != nil {
			return err
		}
		if !free {
			return apperr.New(apperr.KindConflict, "you already have an appointment at the requested slot")
		}

		appt = models.Appointment{
			PatientID:       caller.UserID,
			PractitionerID:  in.PractitionerID,
			Date:            date,
			TimeSlot:        in.TimeSlot,
			DurationMinutes: in.DurationMinutes,
			Mode:            in.Mode,
			Location:        in.Location,
			Reason:          in.Reason,
			Notes:           in.Notes,
			Status:          models.StatusPending,
		}
		if err := tx.Create(&appt).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Wrap(apperr.KindConflict, "the requested slot is no longer available", err)
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("practitioner_id", appt.PractitionerID).
		Str("time_slot", appt.TimeSlot).
		Msg("appointment booked")
	return &appt, nil
}

// ListForCaller returns the appointments the caller may list: patients see
// their own bookings, practitioners their assigned ones, admins all. Sorted
// by date descending.
func (s *Service) ListForCaller(ctx context.Context, caller Caller) ([]models.Appointment, error) {
	var appts []models.Appointment
	q := scopedAppointments(s.db.WithContext(ctx), ScopeOf(caller))
	if err := q.Order("date DESC, time_slot DESC").Find(&appts).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return appts, nil
}

// Get fetches a single appointment, enforcing the viewing rule.
func (s *Service) Get(ctx context.Context, caller Caller, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "appointment not found")
		}
		return nil, apperr.Internal(err)
	}
	if !CanViewAppointment(ScopeOf(caller), &appt) {
		return nil, apperr.New(apperr.KindForbidden, "you are not authorized to view this appointment")
	}
	return &appt, nil
}

var updatableStatuses = []models.AppointmentStatus{
	models.StatusConfirmed,
	models.StatusCancelled,
	models.StatusCompleted,
	models.StatusRescheduled,
}

func validTargetStatus(st models.AppointmentStatus) bool {
	for _, allowed := range updatableStatuses {
		if st == allowed {
			return true
		}
	}
	return false
}

// UpdateStatus drives the appointment state machine. The returned note is
// non-nil only when Status is completed and a note payload was supplied.
func (s *Service) UpdateStatus(ctx context.Context, caller Caller, id string, in StatusUpdate) (*models.Appointment, *models.ClinicalNote, error) {
	if !validTargetStatus(in.Status) {
		return nil, nil, apperr.Newf(apperr.KindBadRequest,
			"invalid status %q, allowed: %v", in.Status, updatableStatuses)
	}

	var newDate time.Time
	if in.Status == models.StatusRescheduled {
		if in.Date == "" || in.TimeSlot == "" {
			return nil, nil, apperr.New(apperr.KindBadRequest,
				"rescheduling requires a new date and timeSlot in the same request")
		}
		var err error
		newDate, err = ParseDate(in.Date)
		if err != nil {
			return nil, nil, err
		}
	}
	if in.Status == models.StatusCompleted && in.Note != nil {
		if err := validateNoteInput(in.Note); err != nil {
			return nil, nil, err
		}
	}

	scope := ScopeOf(caller)
	var appt models.Appointment
	var note *models.ClinicalNote

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&appt, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "appointment not found")
			}
			return apperr.Internal(err)
		}
		if appt.Status.IsTerminal() {
			return apperr.Newf(apperr.KindConflict,
				"appointment is %s; no further transitions are permitted", appt.Status)
		}

		switch in.Status {
		case models.StatusConfirmed:
			if !canConfirm(scope, &appt) {
				return apperr.New(apperr.KindForbidden, "only the assigned practitioner or an admin may confirm")
			}
			appt.Status = models.StatusConfirmed
			if appt.Mode == models.ModeVirtual && in.SessionLink != "" {
				appt.SessionLink = in.SessionLink
			}

		case models.StatusCancelled:
			if !canCancel(scope, &appt) {
				return apperr.New(apperr.KindForbidden, "you are not authorized to cancel this appointment")
			}
			reason := in.CancellationReason
			if reason == "" {
				reason = "No reason provided"
			}
			now := time.Now()
			appt.Status = models.StatusCancelled
			appt.CancellationReason = reason
			appt.CancelledAt = &now

		case models.StatusCompleted:
			if !canComplete(scope, &appt) {
				return apperr.New(apperr.KindForbidden, "only the assigned practitioner may complete this appointment")
			}
			if in.Note != nil {
				created, err := createNote(tx, &appt, *in.Note)
				if err != nil {
					return err
				}
				note = created
			}
			now := time.Now()
			appt.Status = models.StatusCompleted
			appt.CompletedAt = &now

		case models.StatusRescheduled:
			if !canReschedule(scope, &appt) {
				return apperr.New(apperr.KindForbidden, "only the assigned practitioner or an admin may reschedule")
			}
			free, err := slotFree(tx, "practitioner_id", appt.PractitionerID, newDate, in.TimeSlot, appt.ID)
			if err != nil {
				return err
			}
			if !free {
				return apperr.New(apperr.KindConflict, "practitioner is not available at the requested slot")
			}
			free, err = slotFree(tx, "patient_id", appt.PatientID, newDate, in.TimeSlot, appt.ID)
			if err != nil {
				return err
			}
			if !free {
				return apperr.New(apperr.KindConflict, "patient already has an appointment at the requested slot")
			}
			appt.Status = models.StatusRescheduled
			appt.Date = newDate
			appt.TimeSlot = in.TimeSlot
		}

		if in.Notes != "" {
			appt.Notes = in.Notes
		}

		if err := tx.Save(&appt).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.Wrap(apperr.KindConflict, "the requested slot is no longer available", err)
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if appt.Status == models.StatusCompleted {
		s.emitCharge(ctx, &appt)
	}
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("status", string(appt.Status)).
		Msg("appointment status updated")
	return &appt, note, nil
}

// CompleteWithNote ties a clinical note to the appointment and flips its
// status to completed as one atomic unit. Other callers never observe the
// note without the completed status or vice versa.
func (s *Service) CompleteWithNote(ctx context.Context, caller Caller, appointmentID string, in NoteInput) (*models.Appointment, *models.ClinicalNote, error) {
	if err := validateNoteInput(&in); err != nil {
		return nil, nil, err
	}

	scope := ScopeOf(caller)
	var appt models.Appointment
	var note *models.ClinicalNote
	var flipped bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&appt, "id = ?", appointmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "appointment not found")
			}
			return apperr.Internal(err)
		}
		if !canComplete(scope, &appt) {
			return apperr.New(apperr.KindForbidden, "only the appointment's practitioner may record its clinical note")
		}
		if appt.Status == models.StatusCancelled {
			return apperr.New(apperr.KindConflict, "appointment is cancelled; no further transitions are permitted")
		}

		created, err := createNote(tx, &appt, in)
		if err != nil {
			return err
		}
		note = created

		// A note may be attached after a bare completion; the completion
		// timestamp from the original transition stays.
		if appt.Status != models.StatusCompleted {
			now := time.Now()
			appt.Status = models.StatusCompleted
			appt.CompletedAt = &now
			flipped = true
			if err := tx.Save(&appt).Error; err != nil {
				return apperr.Internal(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// The charge is tied to the completion transition, not to note creation,
	// so attaching a note to an already-completed appointment does not bill
	// again.
	if flipped {
		s.emitCharge(ctx, &appt)
	}
	s.logger.Info().
		Str("appointment_id", appt.ID).
		Str("note_id", note.ID).
		Msg("appointment completed with clinical note")
	return &appt, note, nil
}

// SignNote marks a note as signed, exactly once, by its creating
// practitioner.
func (s *Service) SignNote(ctx context.Context, caller Caller, noteID string) (*models.ClinicalNote, error) {
	scope := ScopeOf(caller)
	var note models.ClinicalNote

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&note, "id = ?", noteID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "clinical note not found")
			}
			return apperr.Internal(err)
		}
		if !canSignNote(scope, &note) {
			return apperr.New(apperr.KindForbidden, "only the creating practitioner may sign this note")
		}
		if note.Signed {
			return apperr.New(apperr.KindConflict, "clinical note is already signed")
		}
		now := time.Now()
		note.Signed = true
		note.SignedAt = &now
		if err := tx.Save(&note).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// NoteForAppointment fetches the note tied to an appointment. The
// appointment's viewing rule gates discovery; the note carries its own
// patient and practitioner IDs, so the note rule is checked on the note
// itself before it is returned.
func (s *Service) NoteForAppointment(ctx context.Context, caller Caller, appointmentID string) (*models.ClinicalNote, error) {
	appt, err := s.Get(ctx, caller, appointmentID)
	if err != nil {
		return nil, err
	}
	var note models.ClinicalNote
	if err := s.db.WithContext(ctx).First(&note, "appointment_id = ?", appt.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "no clinical note recorded for this appointment")
		}
		return nil, apperr.Internal(err)
	}
	if !CanViewNote(ScopeOf(caller), &note) {
		return nil, apperr.New(apperr.KindForbidden, "you are not authorized to view this note")
	}
	return &note, nil
}

func validateNoteInput(in *NoteInput) error {
	missing := ""
	switch {
	case in.Subjective == "":
		missing = "subjective"
	case in.Objective == "":
		missing = "objective"
	case in.Assessment == "":
		missing = "assessment"
	case in.Plan == "":
		missing = "plan"
	}
	if missing != "" {
		return apperr.Newf(apperr.KindBadRequest, "%s is required", missing)
	}
	return nil
}

// createNote inserts the note inside the caller's transaction. The unique
// index on appointment_id is the duplicate check, so two interleaved
// completions surface as a conflict rather than a second note.
func createNote(tx *gorm.DB, appt *models.Appointment, in NoteInput) (*models.ClinicalNote, error) {
	noteType := in.NoteType
	if noteType == "" {
		noteType = models.NoteTypeSOAP
	}
	note := models.ClinicalNote{
		PatientID:      appt.PatientID,
		PractitionerID: appt.PractitionerID,
		AppointmentID:  appt.ID,
		NoteType:       noteType,
		Subjective:     in.Subjective,
		Objective:      in.Objective,
		Assessment:     in.Assessment,
		Plan:           in.Plan,
	}
	if err := tx.Create(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Wrap(apperr.KindConflict, "a clinical note already exists for this appointment", err)
		}
		return nil, apperr.Internal(err)
	}
	return &note, nil
}

func (s *Service) emitCharge(ctx context.Context, appt *models.Appointment) {
	if s.billing == nil {
		return
	}
	if err := s.billing.RecordEncounterCharge(ctx, appt); err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", appt.ID).
			Msg("billing emission failed")
	}
}
