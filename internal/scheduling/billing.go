package scheduling

import (
	"context"

	"healthcare-booking-server/internal/models"

	"github.com/rs/zerolog"
)

// Billing receives a charge record when an encounter completes. The real
// gateway lives outside this service; the interface is what the booking core
// emits into.
type Billing interface {
	RecordEncounterCharge(ctx context.Context, appt *models.Appointment) error
}

// LogBilling is the shipped Billing implementation: it records the emission
// in the structured log and nothing else.
type LogBilling struct {
	Logger zerolog.Logger
}

func (b LogBilling) RecordEncounterCharge(ctx context.Context, appt *models.Appointment) error {
	b.Logger.Info().
		Str("appointment_id", appt.ID).
		Str("patient_id", appt.PatientID).
		Str("practitioner_id", appt.PractitionerID).
		Int("duration_minutes", appt.DurationMinutes).
		Msg("encounter charge emitted")
	return nil
}
