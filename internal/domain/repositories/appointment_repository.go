package repositories

import (
	"context"
	"time"

	"github.com/harborview/voicebook/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Update updates an appointment
	Update(ctx context.Context, appointment *entities.Appointment) error

	// Cancel cancels an appointment
	Cancel(ctx context.Context, id string) error

	// FindActive returns the non-cancelled appointment for a caller at the
	// exact instant, or nil when the slot is free. This is the duplicate
	// check the booking guard relies on.
	FindActive(ctx context.Context, callerID string, startsAt time.Time) (*entities.Appointment, error)

	// ListByCaller retrieves appointments for a caller profile
	ListByCaller(ctx context.Context, callerID string, filter AppointmentFilter) ([]*entities.Appointment, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
