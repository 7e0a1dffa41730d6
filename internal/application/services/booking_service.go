package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/harborview/voicebook/internal/domain/entities"
	"github.com/harborview/voicebook/internal/domain/providers"
	"github.com/harborview/voicebook/internal/domain/repositories"
	"github.com/harborview/voicebook/internal/infrastructure/observability"
	apperrors "github.com/harborview/voicebook/pkg/errors"
	"github.com/harborview/voicebook/pkg/retry"
)

// BookingRequest carries a fully-collected session into the booking guard
type BookingRequest struct {
	Name            string
	Phone           string
	StartsAt        time.Time
	DurationMinutes int
	Notes           string
}

// Notifier sends a best-effort booking confirmation to the caller
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, caller *entities.CallerProfile, appointment *entities.Appointment) error
}

// BookingService is the transactional boundary between the conversation
// and durable state. It resolves the caller profile, enforces at most one
// active appointment per profile and slot, persists the booking, and
// mirrors it to the external calendar without making the caller wait.
type BookingService struct {
	callers      repositories.CallerRepository
	appointments repositories.AppointmentRepository
	calendar     providers.CalendarProvider
	notifier     Notifier
	metrics      *observability.Metrics

	// One lock per normalized phone number. The duplicate check and the
	// insert must be atomic with respect to concurrent bookings for the
	// same caller; this is the only place true write contention occurs.
	locks sync.Map

	syncTimeout time.Duration
	clock       func() time.Time
}

// NewBookingService creates the booking guard
func NewBookingService(
	callers repositories.CallerRepository,
	appointments repositories.AppointmentRepository,
	calendar providers.CalendarProvider,
	notifier Notifier,
	metrics *observability.Metrics,
) *BookingService {
	if calendar == nil {
		calendar = providers.NewDisabledCalendar()
	}
	return &BookingService{
		callers:      callers,
		appointments: appointments,
		calendar:     calendar,
		notifier:     notifier,
		metrics:      metrics,
		syncTimeout:  30 * time.Second,
		clock:        time.Now,
	}
}

// ConfirmBooking turns confirmed session data into a persisted appointment.
// It returns a validation error for malformed input, a conflict error when
// the caller already holds that slot, and an internal error when the write
// itself fails. Calendar mirroring and the SMS confirmation are dispatched
// after the commit and cannot fail the booking.
func (s *BookingService) ConfirmBooking(ctx context.Context, req BookingRequest) (*entities.Appointment, error) {
	if err := validateBookingRequest(req, s.clock()); err != nil {
		return nil, err
	}

	phone := strings.TrimSpace(req.Phone)
	unlock := s.lockProfile(phone)
	defer unlock()

	caller, err := s.resolveCaller(ctx, phone, req.Name)
	if err != nil {
		return nil, err
	}

	// Duplicate check and insert under the profile lock.
	existing, err := s.appointments.FindActive(ctx, caller.ID, req.StartsAt)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, apperrors.NewInternalError("failed to check for duplicate booking", err)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError("an appointment already exists for this caller at this time")
	}

	now := s.clock()
	appointment := &entities.Appointment{
		ID:              uuid.New().String(),
		CallerID:        caller.ID,
		StartsAt:        req.StartsAt.UTC(),
		DurationMinutes: req.DurationMinutes,
		Status:          entities.AppointmentStatusBooked,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, apperrors.NewInternalError("failed to persist appointment", err)
	}

	// Fire-and-forget side effects; the caller's turn never waits on them.
	go s.mirrorToCalendar(caller, appointment)
	if s.notifier != nil {
		go s.sendConfirmation(caller, appointment)
	}

	return appointment, nil
}

// CancelBooking cancels an appointment and removes its calendar mirror
func (s *BookingService) CancelBooking(ctx context.Context, appointmentID string) error {
	appointment, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}

	if err := s.appointments.Cancel(ctx, appointmentID); err != nil {
		return apperrors.NewInternalError("failed to cancel appointment", err)
	}

	if appointment.CalendarEventID != nil {
		eventID := *appointment.CalendarEventID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
			defer cancel()
			if _, err := s.calendar.DeleteEvent(ctx, eventID); err != nil {
				log.Warn().Err(err).Str("event_id", eventID).Msg("failed to remove calendar event")
			}
		}()
	}

	return nil
}

// resolveCaller finds or creates the profile for a phone number. The same
// phone always maps to the same profile; the name is refreshed when a
// newer call supplies a different one.
func (s *BookingService) resolveCaller(ctx context.Context, phone, name string) (*entities.CallerProfile, error) {
	caller, err := s.callers.GetByPhone(ctx, phone)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, apperrors.NewInternalError("failed to look up caller profile", err)
	}

	if caller == nil {
		now := s.clock()
		caller = &entities.CallerProfile{
			ID:        uuid.New().String(),
			Phone:     phone,
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.callers.Create(ctx, caller); err != nil {
			return nil, apperrors.NewInternalError("failed to create caller profile", err)
		}
		return caller, nil
	}

	if name != "" && caller.Name != name {
		caller.Name = name
		caller.UpdatedAt = s.clock()
		if err := s.callers.Update(ctx, caller); err != nil {
			// A stale name is not worth failing the booking over.
			log.Warn().Err(err).Str("caller_id", caller.ID).Msg("failed to refresh caller name")
		}
	}

	return caller, nil
}

// mirrorToCalendar mirrors the committed appointment to the external
// calendar on its own deadline, retrying briefly. Failure is logged and
// counted, never surfaced to the conversation.
func (s *BookingService) mirrorToCalendar(caller *entities.CallerProfile, appointment *entities.Appointment) {
	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()

	event := providers.CalendarEvent{
		Name:            caller.Name,
		Phone:           caller.Phone,
		StartsAt:        appointment.StartsAt,
		DurationMinutes: appointment.DurationMinutes,
		Notes:           appointment.Notes,
	}

	var eventID string
	err := retry.Do(ctx, retry.Config{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}, func() error {
		var createErr error
		eventID, createErr = s.calendar.CreateEvent(ctx, event)
		return createErr
	})
	if err != nil {
		observability.RecordCalendarSyncFailure(ctx, s.metrics)
		log.Warn().Err(err).Str("appointment_id", appointment.ID).Msg("calendar mirror failed")
		return
	}
	if eventID == "" {
		return
	}

	appointment.CalendarEventID = &eventID
	appointment.UpdatedAt = s.clock()
	if err := s.appointments.Update(ctx, appointment); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID).Msg("failed to record calendar event id")
	}
}

func (s *BookingService) sendConfirmation(caller *entities.CallerProfile, appointment *entities.Appointment) {
	ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
	defer cancel()
	if err := s.notifier.SendBookingConfirmation(ctx, caller, appointment); err != nil {
		log.Warn().Err(err).Str("appointment_id", appointment.ID).Msg("confirmation message failed")
	}
}

// lockProfile serializes bookings for one phone number
func (s *BookingService) lockProfile(phone string) func() {
	mu, _ := s.locks.LoadOrStore(phone, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}

func validateBookingRequest(req BookingRequest, now time.Time) error {
	if strings.TrimSpace(req.Name) == "" {
		return apperrors.NewValidationError("caller name is required")
	}
	if !strings.HasPrefix(strings.TrimSpace(req.Phone), "+") {
		return apperrors.NewValidationError("phone number must be E.164")
	}
	if req.StartsAt.IsZero() {
		return apperrors.NewValidationError("appointment time is required")
	}
	if req.StartsAt.Before(now) {
		return apperrors.NewValidationError("appointment time is in the past")
	}
	if req.DurationMinutes <= 0 {
		return apperrors.NewValidationError("appointment duration must be positive")
	}
	return nil
}
