package services

import (
	"context"
	"fmt"
	"time"

	"github.com/harborview/voicebook/internal/domain/entities"
)

// TextSender sends a plain text message to a phone number
type TextSender interface {
	SendText(ctx context.Context, to, body string) error
}

// NotificationService renders and sends booking confirmations. It is a
// best-effort collaborator: every failure is the caller's to log, never to
// surface into the conversation.
type NotificationService struct {
	sender TextSender
	loc    *time.Location
}

// NewNotificationService creates a notification service rendering times in
// the business time zone
func NewNotificationService(sender TextSender, loc *time.Location) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		sender: sender,
		loc:    loc,
	}
}

// SendBookingConfirmation texts the caller their appointment details
func (s *NotificationService) SendBookingConfirmation(ctx context.Context, caller *entities.CallerProfile, appointment *entities.Appointment) error {
	if s.sender == nil {
		return nil
	}

	body := fmt.Sprintf(
		"Hi %s, your appointment is confirmed for %s. Reply to this number if you need to reschedule.",
		firstName(caller.Name),
		appointment.StartsAt.In(s.loc).Format("Monday, January 2 at 3:04 PM"),
	)

	return s.sender.SendText(ctx, caller.Phone, body)
}

func firstName(name string) string {
	for i, r := range name {
		if r == ' ' {
			return name[:i]
		}
	}
	return name
}
