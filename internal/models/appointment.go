package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusRescheduled AppointmentStatus = "rescheduled"
)

// IsTerminal reports whether no further transitions are permitted.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AppointmentMode represents how the encounter takes place
type AppointmentMode string

const (
	ModeVirtual  AppointmentMode = "virtual"
	ModeInPerson AppointmentMode = "in-person"
)

// Appointment represents one scheduled encounter between a patient and a
// practitioner. Rows are never deleted; terminal statuses end the lifecycle.
//
// The uniq_practitioner_slot and uniq_patient_slot indexes enforce the
// no-double-booking invariant at the storage layer: SlotActive is set while
// the appointment is non-terminal and NULL once it completes or is
// cancelled, and NULLs compare distinct, so a terminal row frees its slot
// while two active rows for one (party, date, timeSlot) cannot coexist.
type Appointment struct {
	BaseModel
	PatientID          string            `gorm:"size:36;index;uniqueIndex:uniq_patient_slot,priority:1" json:"patientId"`
	PractitionerID     string            `gorm:"size:36;index;uniqueIndex:uniq_practitioner_slot,priority:1" json:"practitionerId"`
	Date               time.Time         `gorm:"index;uniqueIndex:uniq_practitioner_slot,priority:2;uniqueIndex:uniq_patient_slot,priority:2" json:"date"`
	TimeSlot           string            `gorm:"size:20;index;uniqueIndex:uniq_practitioner_slot,priority:3;uniqueIndex:uniq_patient_slot,priority:3" json:"timeSlot"`
	DurationMinutes    int               `gorm:"default:30" json:"durationMinutes"`
	Mode               AppointmentMode   `gorm:"size:20" json:"mode"`
	Location           string            `gorm:"size:255" json:"location,omitempty"`
	Reason             string            `gorm:"size:255" json:"reason"`
	SessionLink        string            `gorm:"size:255" json:"sessionLink,omitempty"`
	Notes              string            `gorm:"type:text" json:"notes,omitempty"`
	Status             AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	CancellationReason string            `gorm:"size:255" json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
	CompletedAt        *time.Time        `json:"completedAt,omitempty"`
	SlotActive         *bool             `gorm:"uniqueIndex:uniq_practitioner_slot,priority:4;uniqueIndex:uniq_patient_slot,priority:4" json:"-"`

	// Relations
	Patient      User `gorm:"foreignKey:PatientID" json:"-"`
	Practitioner User `gorm:"foreignKey:PractitionerID" json:"-"`
}

// BeforeSave keeps the slot claim in sync with the lifecycle: non-terminal
// rows hold their slot under the unique indexes, terminal rows release it.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	if a.Status.IsTerminal() {
		a.SlotActive = nil
	} else {
		active := true
		a.SlotActive = &active
	}
	return nil
}
