package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harborview/voicebook/internal/domain/entities"
	"github.com/harborview/voicebook/internal/domain/repositories"
	apperrors "github.com/harborview/voicebook/pkg/errors"
)

// AppointmentRepo is an in-memory AppointmentRepository
type AppointmentRepo struct {
	mu   sync.RWMutex
	byID map[string]*entities.Appointment
}

// NewAppointmentRepo creates an in-memory appointment repository
func NewAppointmentRepo() repositories.AppointmentRepository {
	return &AppointmentRepo{
		byID: make(map[string]*entities.Appointment),
	}
}

// Create implements AppointmentRepository
func (r *AppointmentRepo) Create(ctx context.Context, appointment *entities.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[appointment.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("appointment %s already exists", appointment.ID))
	}

	stored := *appointment
	r.byID[appointment.ID] = &stored
	return nil
}

// GetByID implements AppointmentRepository
func (r *AppointmentRepo) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appointment, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	copied := *appointment
	return &copied, nil
}

// Update implements AppointmentRepository
func (r *AppointmentRepo) Update(ctx context.Context, appointment *entities.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[appointment.ID]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", appointment.ID))
	}

	stored := *appointment
	r.byID[appointment.ID] = &stored
	return nil
}

// Cancel implements AppointmentRepository
func (r *AppointmentRepo) Cancel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	appointment, ok := r.byID[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	appointment.Status = entities.AppointmentStatusCancelled
	appointment.UpdatedAt = time.Now()
	return nil
}

// FindActive implements AppointmentRepository
func (r *AppointmentRepo) FindActive(ctx context.Context, callerID string, startsAt time.Time) (*entities.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, appointment := range r.byID {
		if appointment.CallerID == callerID &&
			appointment.StartsAt.Equal(startsAt.UTC()) &&
			appointment.Active() {
			copied := *appointment
			return &copied, nil
		}
	}
	return nil, nil
}

// ListByCaller implements AppointmentRepository
func (r *AppointmentRepo) ListByCaller(ctx context.Context, callerID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var appointments []*entities.Appointment
	for _, appointment := range r.byID {
		if appointment.CallerID != callerID {
			continue
		}
		if filter.Status != "" && appointment.Status != filter.Status {
			continue
		}
		if filter.From != nil && appointment.StartsAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !appointment.StartsAt.Before(*filter.To) {
			continue
		}
		copied := *appointment
		appointments = append(appointments, &copied)
	}

	sort.Slice(appointments, func(i, j int) bool {
		return appointments[i].StartsAt.Before(appointments[j].StartsAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(appointments) {
			return nil, nil
		}
		appointments = appointments[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(appointments) {
		appointments = appointments[:filter.Limit]
	}

	return appointments, nil
}
