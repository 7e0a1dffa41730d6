package providers

import (
	"context"
	"time"
)

// CalendarEvent carries the fields mirrored to the external calendar
type CalendarEvent struct {
	Name            string
	Phone           string
	StartsAt        time.Time
	DurationMinutes int
	Notes           string
}

// CalendarProvider defines the external calendar operations the booking
// layer depends on. Implementations must be safe to call when the service
// is disabled (e.g. missing credentials) and degrade to a no-op or an
// optimistic response rather than returning an error.
type CalendarProvider interface {
	// CreateEvent mirrors an appointment and returns the provider event id,
	// or an empty id when the provider is disabled
	CreateEvent(ctx context.Context, event CalendarEvent) (string, error)

	// DeleteEvent removes a mirrored event
	DeleteEvent(ctx context.Context, eventID string) (bool, error)

	// UpdateEvent reschedules or edits a mirrored event
	UpdateEvent(ctx context.Context, eventID string, event CalendarEvent) (bool, error)

	// CheckAvailability reports whether the slot is free on the provider side
	CheckAvailability(ctx context.Context, startsAt time.Time, durationMinutes int) (bool, error)
}

// DisabledCalendar is the "not configured" variant of CalendarProvider.
// Every operation succeeds optimistically without touching the network.
type DisabledCalendar struct{}

// NewDisabledCalendar returns a calendar provider that performs no work
func NewDisabledCalendar() *DisabledCalendar {
	return &DisabledCalendar{}
}

func (d *DisabledCalendar) CreateEvent(ctx context.Context, event CalendarEvent) (string, error) {
	return "", nil
}

func (d *DisabledCalendar) DeleteEvent(ctx context.Context, eventID string) (bool, error) {
	return true, nil
}

func (d *DisabledCalendar) UpdateEvent(ctx context.Context, eventID string, event CalendarEvent) (bool, error) {
	return true, nil
}

func (d *DisabledCalendar) CheckAvailability(ctx context.Context, startsAt time.Time, durationMinutes int) (bool, error) {
	return true, nil
}
