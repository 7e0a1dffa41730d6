// Package scheduling adapts the external calendar service to the
// CalendarProvider interface the booking guard depends on.
package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harborview/voicebook/internal/domain/providers"
	"github.com/harborview/voicebook/pkg/config"
)

// CalendlyAdapter implements CalendarProvider for Calendly. With no API key
// configured it degrades to a no-op, optimistic provider; a missing
// credential must never fail a booking.
type CalendlyAdapter struct {
	apiKey      string
	eventTypeID string
	client      *http.Client
	baseURL     string
}

// NewCalendlyAdapter creates a new Calendly adapter
func NewCalendlyAdapter(cfg *config.CalendarConfig) providers.CalendarProvider {
	if cfg == nil || cfg.APIKey == "" {
		log.Info().Msg("calendar credentials missing, mirroring disabled")
		return providers.NewDisabledCalendar()
	}
	return &CalendlyAdapter{
		apiKey:      cfg.APIKey,
		eventTypeID: cfg.EventTypeID,
		client:      &http.Client{Timeout: 10 * time.Second},
		baseURL:     "https://api.calendly.com",
	}
}

// CreateEvent mirrors an appointment as an invitee on the configured event
// type and returns the provider event id
func (a *CalendlyAdapter) CreateEvent(ctx context.Context, event providers.CalendarEvent) (string, error) {
	payload := map[string]interface{}{
		"event_type": a.eventTypeID,
		"start_time": event.StartsAt.UTC().Format(time.RFC3339),
		"end_time":   event.StartsAt.Add(time.Duration(event.DurationMinutes) * time.Minute).UTC().Format(time.RFC3339),
		"invitee": map[string]string{
			"name":  event.Name,
			"phone": event.Phone,
		},
		"notes": event.Notes,
	}

	var result struct {
		Resource struct {
			URI string `json:"uri"`
		} `json:"resource"`
	}
	if err := a.do(ctx, http.MethodPost, "/scheduled_events", payload, &result); err != nil {
		return "", err
	}
	return result.Resource.URI, nil
}

// DeleteEvent cancels a mirrored event
func (a *CalendlyAdapter) DeleteEvent(ctx context.Context, eventID string) (bool, error) {
	payload := map[string]string{
		"reason": "cancelled over the phone",
	}
	path := fmt.Sprintf("/scheduled_events/%s/cancellation", eventID)
	if err := a.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		return false, err
	}
	return true, nil
}

// UpdateEvent reschedules a mirrored event
func (a *CalendlyAdapter) UpdateEvent(ctx context.Context, eventID string, event providers.CalendarEvent) (bool, error) {
	payload := map[string]interface{}{
		"start_time": event.StartsAt.UTC().Format(time.RFC3339),
		"end_time":   event.StartsAt.Add(time.Duration(event.DurationMinutes) * time.Minute).UTC().Format(time.RFC3339),
		"notes":      event.Notes,
	}
	path := fmt.Sprintf("/scheduled_events/%s", eventID)
	if err := a.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return false, err
	}
	return true, nil
}

// CheckAvailability reports whether the provider side still has the slot open
func (a *CalendlyAdapter) CheckAvailability(ctx context.Context, startsAt time.Time, durationMinutes int) (bool, error) {
	from := startsAt.UTC()
	to := from.Add(time.Duration(durationMinutes) * time.Minute)
	path := fmt.Sprintf(
		"/event_type_available_times?event_type=%s&start_time=%s&end_time=%s",
		a.eventTypeID,
		from.Format(time.RFC3339),
		to.Format(time.RFC3339),
	)

	var result struct {
		Collection []struct {
			Status    string    `json:"status"`
			StartTime time.Time `json:"start_time"`
		} `json:"collection"`
	}
	if err := a.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return false, err
	}

	for _, item := range result.Collection {
		if item.Status == "available" && item.StartTime.Equal(from) {
			return true, nil
		}
	}
	return false, nil
}

func (a *CalendlyAdapter) do(ctx context.Context, method, path string, payload interface{}, out interface{}) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("calendly api error: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
