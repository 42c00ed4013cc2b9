package scheduling

import (
	"healthcare-booking-server/internal/models"

	"gorm.io/gorm"
)

// Caller is the resolved identity for the current request. It is built once
// by the auth middleware and passed explicitly into every core operation.
type Caller struct {
	UserID string
	Role   models.Role
}

// Scope is the closed set of query scopes a caller can act under. Adding a
// role means adding a variant here and updating every switch below, which the
// compiler's default branches make easy to find.
type Scope interface {
	isScope()
}

// PatientScope limits visibility to the patient's own bookings.
type PatientScope struct {
	ProfileID string
}

// PractitionerScope limits visibility to assigned appointments.
type PractitionerScope struct {
	ProfileID string
}

// AdminScope sees everything.
type AdminScope struct{}

func (PatientScope) isScope()      {}
func (PractitionerScope) isScope() {}
func (AdminScope) isScope()        {}

// ScopeOf derives the query scope for a caller.
func ScopeOf(c Caller) Scope {
	switch c.Role {
	case models.RolePatient:
		return PatientScope{ProfileID: c.UserID}
	case models.RolePractitioner:
		return PractitionerScope{ProfileID: c.UserID}
	case models.RoleAdmin:
		return AdminScope{}
	default:
		// Unknown roles get the most restrictive scope: their own patient
		// records, of which there are none.
		return PatientScope{ProfileID: c.UserID}
	}
}

// scopedAppointments narrows an appointment query to what the scope may list.
func scopedAppointments(q *gorm.DB, s Scope) *gorm.DB {
	switch sc := s.(type) {
	case PatientScope:
		return q.Where("patient_id = ?", sc.ProfileID)
	case PractitionerScope:
		return q.Where("practitioner_id = ?", sc.ProfileID)
	case AdminScope:
		return q
	default:
		return q.Where("1 = 0")
	}
}
