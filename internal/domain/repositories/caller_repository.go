package repositories

import (
	"context"

	"github.com/harborview/voicebook/internal/domain/entities"
)

// CallerRepository defines the interface for caller profile operations
type CallerRepository interface {
	// Create creates a new caller profile
	Create(ctx context.Context, caller *entities.CallerProfile) error

	// GetByID retrieves a caller profile by ID
	GetByID(ctx context.Context, id string) (*entities.CallerProfile, error)

	// GetByPhone retrieves a caller profile by normalized E.164 phone number
	GetByPhone(ctx context.Context, phone string) (*entities.CallerProfile, error)

	// Update updates a caller profile
	Update(ctx context.Context, caller *entities.CallerProfile) error
}
