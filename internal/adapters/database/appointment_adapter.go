package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/harborview/voicebook/internal/domain/entities"
	"github.com/harborview/voicebook/internal/domain/repositories"
	"github.com/harborview/voicebook/internal/infrastructure/clients/postgres"
	apperrors "github.com/harborview/voicebook/pkg/errors"
)

var appointmentColumns = []interface{}{
	"id", "caller_id", "starts_at", "duration_minutes",
	"status", "notes", "calendar_event_id", "created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	record := goqu.Record{
		"id":                appointment.ID,
		"caller_id":         appointment.CallerID,
		"starts_at":         appointment.StartsAt,
		"duration_minutes":  appointment.DurationMinutes,
		"status":            appointment.Status,
		"notes":             appointment.Notes,
		"calendar_event_id": appointment.CalendarEventID,
		"created_at":        appointment.CreatedAt,
		"updated_at":        appointment.UpdatedAt,
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := a.scanOne(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if appointment == nil {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return appointment, nil
}

// Update updates an appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"starts_at":         appointment.StartsAt,
			"duration_minutes":  appointment.DurationMinutes,
			"status":            appointment.Status,
			"notes":             appointment.Notes,
			"calendar_event_id": appointment.CalendarEventID,
			"updated_at":        appointment.UpdatedAt,
		}).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update appointment", err)
	}

	return nil
}

// Cancel cancels an appointment
func (a *AppointmentAdapter) Cancel(ctx context.Context, id string) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":     entities.AppointmentStatusCancelled,
			"updated_at": time.Now(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build cancel query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to cancel appointment", err)
	}

	return nil
}

// FindActive returns the non-cancelled appointment for a caller at the
// exact instant, or nil when the slot is free
func (a *AppointmentAdapter) FindActive(ctx context.Context, callerID string, startsAt time.Time) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{
			"caller_id": callerID,
			"starts_at": startsAt.UTC(),
		}).
		Where(goqu.C("status").Neq(entities.AppointmentStatusCancelled)).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build duplicate check query", err)
	}

	return a.scanOne(ctx, query, args)
}

// ListByCaller retrieves appointments for a caller profile
func (a *AppointmentAdapter) ListByCaller(ctx context.Context, callerID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"caller_id": callerID}).
		Order(goqu.C("starts_at").Asc())

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("starts_at").Gte(filter.From.UTC()))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("starts_at").Lt(filter.To.UTC()))
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows.Scan)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}

	return appointments, nil
}

func (a *AppointmentAdapter) scanOne(ctx context.Context, query string, args []interface{}) (*entities.Appointment, error) {
	row := a.client.DB().QueryRowContext(ctx, query, args...)
	appointment, err := scanAppointment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

func scanAppointment(scan func(dest ...interface{}) error) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var notes, calendarEventID sql.NullString

	err := scan(
		&appointment.ID,
		&appointment.CallerID,
		&appointment.StartsAt,
		&appointment.DurationMinutes,
		&appointment.Status,
		&notes,
		&calendarEventID,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appointment.Notes = notes.String
	if calendarEventID.Valid {
		appointment.CalendarEventID = &calendarEventID.String
	}
	return appointment, nil
}
