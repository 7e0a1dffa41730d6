package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/harborview/voicebook/internal/domain/entities"
	"github.com/harborview/voicebook/internal/domain/repositories"
	"github.com/harborview/voicebook/internal/infrastructure/clients/postgres"
	apperrors "github.com/harborview/voicebook/pkg/errors"
)

// CallerAdapter implements the CallerRepository interface
type CallerAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCallerAdapter creates a new caller adapter
func NewCallerAdapter(client *postgres.Client) repositories.CallerRepository {
	return &CallerAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new caller profile
func (a *CallerAdapter) Create(ctx context.Context, caller *entities.CallerProfile) error {
	record := goqu.Record{
		"id":         caller.ID,
		"phone":      caller.Phone,
		"name":       caller.Name,
		"created_at": caller.CreatedAt,
		"updated_at": caller.UpdatedAt,
	}

	query, args, err := a.db.Insert("callers").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create caller profile", err)
	}

	return nil
}

// GetByID retrieves a caller profile by ID
func (a *CallerAdapter) GetByID(ctx context.Context, id string) (*entities.CallerProfile, error) {
	return a.getOne(ctx, goqu.Ex{"id": id}, fmt.Sprintf("caller with id %s not found", id))
}

// GetByPhone retrieves a caller profile by normalized phone number
func (a *CallerAdapter) GetByPhone(ctx context.Context, phone string) (*entities.CallerProfile, error) {
	return a.getOne(ctx, goqu.Ex{"phone": phone}, fmt.Sprintf("caller with phone %s not found", phone))
}

// Update updates a caller profile
func (a *CallerAdapter) Update(ctx context.Context, caller *entities.CallerProfile) error {
	query, args, err := a.db.Update("callers").
		Set(goqu.Record{
			"name":       caller.Name,
			"updated_at": caller.UpdatedAt,
		}).
		Where(goqu.Ex{"id": caller.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to update caller profile", err)
	}

	return nil
}

func (a *CallerAdapter) getOne(ctx context.Context, where goqu.Ex, notFoundMsg string) (*entities.CallerProfile, error) {
	query, args, err := a.db.Select(
		"id", "phone", "name", "created_at", "updated_at",
	).From("callers").
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	caller := &entities.CallerProfile{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&caller.ID,
		&caller.Phone,
		&caller.Name,
		&caller.CreatedAt,
		&caller.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get caller profile", err)
	}

	return caller, nil
}
