// Package memory provides mutex-guarded in-memory implementations of the
// domain repositories, used by tests and by credential-less dev runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/harborview/voicebook/internal/domain/entities"
	"github.com/harborview/voicebook/internal/domain/repositories"
	apperrors "github.com/harborview/voicebook/pkg/errors"
)

// CallerRepo is an in-memory CallerRepository
type CallerRepo struct {
	mu      sync.RWMutex
	byID    map[string]*entities.CallerProfile
	byPhone map[string]string
}

// NewCallerRepo creates an in-memory caller repository
func NewCallerRepo() repositories.CallerRepository {
	return &CallerRepo{
		byID:    make(map[string]*entities.CallerProfile),
		byPhone: make(map[string]string),
	}
}

// Create implements CallerRepository
func (r *CallerRepo) Create(ctx context.Context, caller *entities.CallerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPhone[caller.Phone]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("caller with phone %s already exists", caller.Phone))
	}

	stored := *caller
	r.byID[caller.ID] = &stored
	r.byPhone[caller.Phone] = caller.ID
	return nil
}

// GetByID implements CallerRepository
func (r *CallerRepo) GetByID(ctx context.Context, id string) (*entities.CallerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caller, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("caller with id %s not found", id))
	}
	copied := *caller
	return &copied, nil
}

// GetByPhone implements CallerRepository
func (r *CallerRepo) GetByPhone(ctx context.Context, phone string) (*entities.CallerProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPhone[phone]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("caller with phone %s not found", phone))
	}
	copied := *r.byID[id]
	return &copied, nil
}

// Update implements CallerRepository
func (r *CallerRepo) Update(ctx context.Context, caller *entities.CallerProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[caller.ID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("caller with id %s not found", caller.ID))
	}

	delete(r.byPhone, existing.Phone)
	stored := *caller
	r.byID[caller.ID] = &stored
	r.byPhone[caller.Phone] = caller.ID
	return nil
}
