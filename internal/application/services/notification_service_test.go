package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/voicebook/internal/application/services"
	"github.com/harborview/voicebook/internal/domain/entities"
)

type recordingSender struct {
	to   string
	body string
}

func (r *recordingSender) SendText(ctx context.Context, to, body string) error {
	r.to = to
	r.body = body
	return nil
}

func TestNotificationService_SendBookingConfirmation(t *testing.T) {
	// Arrange
	loc, err := time.LoadLocation("America/Toronto")
	require.NoError(t, err)

	sender := &recordingSender{}
	svc := services.NewNotificationService(sender, loc)

	caller := &entities.CallerProfile{Name: "Johnny Smith", Phone: "+14165551234"}
	appointment := &entities.Appointment{
		StartsAt: time.Date(2025, 10, 7, 18, 0, 0, 0, time.UTC),
	}

	// Act
	err = svc.SendBookingConfirmation(context.Background(), caller, appointment)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "+14165551234", sender.to)
	assert.Contains(t, sender.body, "Hi Johnny,")
	assert.Contains(t, sender.body, "Tuesday, October 7 at 2:00 PM")
}
