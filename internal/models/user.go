package models

// Role enum
type Role string

const (
	RoleAdmin        Role = "admin"
	RolePractitioner Role = "practitioner"
	RolePatient      Role = "patient"
)

// User represents a profile in the directory. Credentials are owned by the
// identity provider, not this service, so none are stored here.
type User struct {
	BaseModel
	Email       string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName   string `gorm:"size:100" json:"firstName"`
	LastName    string `gorm:"size:100" json:"lastName"`
	Role        Role   `gorm:"size:20;default:'patient'" json:"role"`
	Specialty   string `gorm:"size:100" json:"specialty,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`

	// Relations (not always preloaded)
	PractitionerAppointments []Appointment `gorm:"foreignKey:PractitionerID" json:"-"`
	PatientAppointments      []Appointment `gorm:"foreignKey:PatientID" json:"-"`
}
