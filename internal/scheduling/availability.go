package scheduling

import (
	"context"
	"time"

	"healthcare-booking-server/internal/apperr"
	"healthcare-booking-server/internal/models"

	"gorm.io/gorm"
)

// activeStatuses are the non-terminal statuses that hold a slot. Completed
// and cancelled appointments free it.
var activeStatuses = []models.AppointmentStatus{
	models.StatusPending,
	models.StatusConfirmed,
	models.StatusRescheduled,
}

// ParseDate parses a calendar date in the wire format used by the booking
// endpoints and normalizes it to UTC midnight so stored dates compare by day.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, apperr.Newf(apperr.KindBadRequest, "invalid date %q, expected YYYY-MM-DD", value)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// IsAvailable reports whether a practitioner has the given slot free. The
// time slot is an opaque label compared for exact equality; no duration or
// overlap math is applied. excludeID skips one appointment, used when that
// appointment is being rescheduled out of its own slot.
func (s *Service) IsAvailable(ctx context.Context, practitionerID string, date time.Time, timeSlot string, excludeID string) (bool, error) {
	return slotFree(s.db.WithContext(ctx), "practitioner_id", practitionerID, date, timeSlot, excludeID)
}

// slotFree runs the slot-conflict query inside the caller's transaction. It
// takes no locks, so two transactions can race past it; the unique slot
// indexes on appointments are the backstop that makes the second insert
// fail.
func slotFree(tx *gorm.DB, column string, profileID string, date time.Time, timeSlot string, excludeID string) (bool, error) {
	q := tx.Model(&models.Appointment{}).
		Where(column+" = ?", profileID).
		Where("date = ?", date).
		Where("time_slot = ?", timeSlot).
		Where("status IN ?", activeStatuses)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, apperr.Internal(err)
	}
	return count == 0, nil
}
