package scheduling

import (
	"healthcare-booking-server/internal/models"
)

// Access policy for appointments and clinical notes. Viewing is open to the
// patient on the record, the assigned practitioner, and admins; mutation
// rights depend on the transition (see the service's state machine).

// CanViewAppointment reports whether the scope may read the appointment.
func CanViewAppointment(s Scope, a *models.Appointment) bool {
	switch sc := s.(type) {
	case PatientScope:
		return sc.ProfileID == a.PatientID
	case PractitionerScope:
		return sc.ProfileID == a.PractitionerID
	case AdminScope:
		return true
	default:
		return false
	}
}

// CanViewNote reports whether the scope may read the clinical note.
func CanViewNote(s Scope, n *models.ClinicalNote) bool {
	switch sc := s.(type) {
	case PatientScope:
		return sc.ProfileID == n.PatientID
	case PractitionerScope:
		return sc.ProfileID == n.PractitionerID
	case AdminScope:
		return true
	default:
		return false
	}
}

// canConfirm: assigned practitioner or admin.
func canConfirm(s Scope, a *models.Appointment) bool {
	switch sc := s.(type) {
	case PractitionerScope:
		return sc.ProfileID == a.PractitionerID
	case AdminScope:
		return true
	default:
		return false
	}
}

// canCancel: assigned practitioner, the booking patient, or admin.
func canCancel(s Scope, a *models.Appointment) bool {
	switch sc := s.(type) {
	case PatientScope:
		return sc.ProfileID == a.PatientID
	case PractitionerScope:
		return sc.ProfileID == a.PractitionerID
	case AdminScope:
		return true
	default:
		return false
	}
}

// canComplete: assigned practitioner only. Admins do not produce clinical
// documentation on someone else's encounter.
func canComplete(s Scope, a *models.Appointment) bool {
	sc, ok := s.(PractitionerScope)
	return ok && sc.ProfileID == a.PractitionerID
}

// canReschedule: assigned practitioner or admin.
func canReschedule(s Scope, a *models.Appointment) bool {
	return canConfirm(s, a)
}

// canSignNote: the creating practitioner only.
func canSignNote(s Scope, n *models.ClinicalNote) bool {
	sc, ok := s.(PractitionerScope)
	return ok && sc.ProfileID == n.PractitionerID
}
