package models

import (
	"time"
)

// NoteType represents the documentation format of a clinical note
type NoteType string

const (
	NoteTypeSOAP     NoteType = "SOAP"
	NoteTypeProgress NoteType = "Progress"
)

// ClinicalNote is the structured record produced when an appointment
// completes. The unique index on AppointmentID enforces at most one note per
// appointment at the storage layer.
type ClinicalNote struct {
	BaseModel
	PatientID      string     `gorm:"size:36;index" json:"patientId"`
	PractitionerID string     `gorm:"size:36;index" json:"practitionerId"`
	AppointmentID  string     `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	NoteType       NoteType   `gorm:"size:20;default:'SOAP'" json:"noteType"`
	Subjective     string     `gorm:"type:text;not null" json:"subjective"`
	Objective      string     `gorm:"type:text;not null" json:"objective"`
	Assessment     string     `gorm:"type:text;not null" json:"assessment"`
	Plan           string     `gorm:"type:text;not null" json:"plan"`
	Signed         bool       `gorm:"default:false" json:"signed"`
	SignedAt       *time.Time `json:"signedAt,omitempty"`

	// Relations
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}
