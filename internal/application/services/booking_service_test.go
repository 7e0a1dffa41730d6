package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/voicebook/internal/adapters/database/memory"
	"github.com/harborview/voicebook/internal/application/services"
	"github.com/harborview/voicebook/internal/domain/entities"
	"github.com/harborview/voicebook/internal/domain/providers"
	"github.com/harborview/voicebook/internal/domain/repositories"
	apperrors "github.com/harborview/voicebook/pkg/errors"
)

// Stubs

type stubCalendar struct {
	mu      sync.Mutex
	eventID string
	err     error
	created []providers.CalendarEvent
}

func (c *stubCalendar) CreateEvent(ctx context.Context, event providers.CalendarEvent) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, event)
	return c.eventID, c.err
}

func (c *stubCalendar) DeleteEvent(ctx context.Context, eventID string) (bool, error) {
	return true, c.err
}

func (c *stubCalendar) UpdateEvent(ctx context.Context, eventID string, event providers.CalendarEvent) (bool, error) {
	return true, c.err
}

func (c *stubCalendar) CheckAvailability(ctx context.Context, startsAt time.Time, durationMinutes int) (bool, error) {
	return true, c.err
}

type stubNotifier struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (n *stubNotifier) SendBookingConfirmation(ctx context.Context, caller *entities.CallerProfile, appointment *entities.Appointment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return n.err
}

func validRequest() services.BookingRequest {
	return services.BookingRequest{
		Name:            "Johnny Smith",
		Phone:           "+14165551234",
		StartsAt:        time.Now().Add(48 * time.Hour).Truncate(time.Minute).UTC(),
		DurationMinutes: 30,
	}
}

// Tests

func TestBookingService_ConfirmBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("persists the appointment and the caller profile", func(t *testing.T) {
		// Arrange
		callers := memory.NewCallerRepo()
		appointments := memory.NewAppointmentRepo()
		svc := services.NewBookingService(callers, appointments, nil, nil, nil)
		req := validRequest()

		// Act
		appt, err := svc.ConfirmBooking(ctx, req)

		// Assert
		require.NoError(t, err)
		assert.NotEmpty(t, appt.ID)
		assert.Equal(t, entities.AppointmentStatusBooked, appt.Status)
		assert.True(t, appt.StartsAt.Equal(req.StartsAt))

		caller, err := callers.GetByPhone(ctx, req.Phone)
		require.NoError(t, err)
		assert.Equal(t, "Johnny Smith", caller.Name)
		assert.Equal(t, caller.ID, appt.CallerID)
	})

	t.Run("rejects a second booking for the same caller and slot", func(t *testing.T) {
		// Arrange
		svc := services.NewBookingService(memory.NewCallerRepo(), memory.NewAppointmentRepo(), nil, nil, nil)
		req := validRequest()
		_, err := svc.ConfirmBooking(ctx, req)
		require.NoError(t, err)

		// Act
		_, err = svc.ConfirmBooking(ctx, req)

		// Assert
		assert.True(t, apperrors.IsConflict(err))
	})

	t.Run("allows the same caller at a different time", func(t *testing.T) {
		// Arrange
		svc := services.NewBookingService(memory.NewCallerRepo(), memory.NewAppointmentRepo(), nil, nil, nil)
		first := validRequest()
		_, err := svc.ConfirmBooking(ctx, first)
		require.NoError(t, err)

		second := first
		second.StartsAt = first.StartsAt.Add(24 * time.Hour)

		// Act
		_, err = svc.ConfirmBooking(ctx, second)

		// Assert
		assert.NoError(t, err)
	})

	t.Run("a cancelled appointment frees the slot", func(t *testing.T) {
		// Arrange
		appointments := memory.NewAppointmentRepo()
		svc := services.NewBookingService(memory.NewCallerRepo(), appointments, nil, nil, nil)
		req := validRequest()
		appt, err := svc.ConfirmBooking(ctx, req)
		require.NoError(t, err)
		require.NoError(t, svc.CancelBooking(ctx, appt.ID))

		// Act
		_, err = svc.ConfirmBooking(ctx, req)

		// Assert
		assert.NoError(t, err)
	})

	t.Run("concurrent identical bookings produce exactly one appointment", func(t *testing.T) {
		// Arrange
		callers := memory.NewCallerRepo()
		appointments := memory.NewAppointmentRepo()
		svc := services.NewBookingService(callers, appointments, nil, nil, nil)
		req := validRequest()

		// Act
		var wg sync.WaitGroup
		results := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.ConfirmBooking(ctx, req)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		// Assert
		var booked, conflicts int
		for err := range results {
			switch {
			case err == nil:
				booked++
			case apperrors.IsConflict(err):
				conflicts++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, booked)
		assert.Equal(t, 9, conflicts)

		caller, err := callers.GetByPhone(ctx, req.Phone)
		require.NoError(t, err)
		active, err := appointments.ListByCaller(ctx, caller.ID, repositories.AppointmentFilter{
			Status: entities.AppointmentStatusBooked,
		})
		require.NoError(t, err)
		assert.Len(t, active, 1)
	})

	t.Run("reuses the profile and refreshes the name", func(t *testing.T) {
		// Arrange
		callers := memory.NewCallerRepo()
		svc := services.NewBookingService(callers, memory.NewAppointmentRepo(), nil, nil, nil)
		first := validRequest()
		_, err := svc.ConfirmBooking(ctx, first)
		require.NoError(t, err)

		second := first
		second.Name = "Jon Smith"
		second.StartsAt = first.StartsAt.Add(24 * time.Hour)

		// Act
		appt1, err := svc.ConfirmBooking(ctx, second)
		require.NoError(t, err)

		// Assert
		caller, err := callers.GetByPhone(ctx, first.Phone)
		require.NoError(t, err)
		assert.Equal(t, "Jon Smith", caller.Name)
		assert.Equal(t, caller.ID, appt1.CallerID)
	})

	t.Run("records the mirrored calendar event id", func(t *testing.T) {
		// Arrange
		appointments := memory.NewAppointmentRepo()
		calendar := &stubCalendar{eventID: "evt-1"}
		svc := services.NewBookingService(memory.NewCallerRepo(), appointments, calendar, nil, nil)

		// Act
		appt, err := svc.ConfirmBooking(ctx, validRequest())
		require.NoError(t, err)

		// Assert
		assert.Eventually(t, func() bool {
			stored, err := appointments.GetByID(ctx, appt.ID)
			return err == nil && stored.CalendarEventID != nil && *stored.CalendarEventID == "evt-1"
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("a failing calendar never fails the booking", func(t *testing.T) {
		// Arrange
		calendar := &stubCalendar{err: errors.New("calendly 503")}
		svc := services.NewBookingService(memory.NewCallerRepo(), memory.NewAppointmentRepo(), calendar, nil, nil)

		// Act
		appt, err := svc.ConfirmBooking(ctx, validRequest())

		// Assert
		assert.NoError(t, err)
		assert.Nil(t, appt.CalendarEventID)
	})

	t.Run("a failing notifier never fails the booking", func(t *testing.T) {
		// Arrange
		notifier := &stubNotifier{err: errors.New("sms gateway down")}
		svc := services.NewBookingService(memory.NewCallerRepo(), memory.NewAppointmentRepo(), nil, notifier, nil)

		// Act
		_, err := svc.ConfirmBooking(ctx, validRequest())

		// Assert
		assert.NoError(t, err)
		assert.Eventually(t, func() bool {
			notifier.mu.Lock()
			defer notifier.mu.Unlock()
			return notifier.sent == 1
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("validates the request", func(t *testing.T) {
		svc := services.NewBookingService(memory.NewCallerRepo(), memory.NewAppointmentRepo(), nil, nil, nil)

		cases := []struct {
			name   string
			mutate func(*services.BookingRequest)
		}{
			{"missing name", func(r *services.BookingRequest) { r.Name = "" }},
			{"non e164 phone", func(r *services.BookingRequest) { r.Phone = "4165551234" }},
			{"zero time", func(r *services.BookingRequest) { r.StartsAt = time.Time{} }},
			{"past time", func(r *services.BookingRequest) { r.StartsAt = time.Now().Add(-time.Hour) }},
			{"zero duration", func(r *services.BookingRequest) { r.DurationMinutes = 0 }},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				// Arrange
				req := validRequest()
				tc.mutate(&req)

				// Act
				_, err := svc.ConfirmBooking(ctx, req)

				// Assert
				assert.True(t, apperrors.IsValidation(err), "got %v", err)
			})
		}
	})
}
