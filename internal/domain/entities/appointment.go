package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusBooked    AppointmentStatus = "booked"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment represents a scheduled appointment for a caller.
// StartsAt is always a UTC instant; the conversation layer owns
// conversion to and from the business time zone.
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	CallerID        string            `json:"caller_id" db:"caller_id"`
	StartsAt        time.Time         `json:"starts_at" db:"starts_at"`
	DurationMinutes int               `json:"duration_minutes" db:"duration_minutes"`
	Status          AppointmentStatus `json:"status" db:"status"`
	Notes           string            `json:"notes" db:"notes"`
	CalendarEventID *string           `json:"calendar_event_id,omitempty" db:"calendar_event_id"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// Active reports whether the appointment still occupies its slot
func (a *Appointment) Active() bool {
	return a.Status != AppointmentStatusCancelled
}

// EndsAt returns the end instant of the appointment
func (a *Appointment) EndsAt() time.Time {
	return a.StartsAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
