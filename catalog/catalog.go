// Package catalog provides read-only access to the practice-problem catalog.
// Problems are loaded fresh on every call; this service never mutates them.
package catalog

import (
	"context"
	"errors"

	"dsa-assist-service/models"
)

// ErrNotFound signals that no problem exists at the requested index.
var ErrNotFound = errors.New("problem not found")

// Provider is a problem-catalog source. Implementations load fresh on each
// call so catalog edits are picked up without a restart.
type Provider interface {
	// Problems returns the full catalog in index order. An unreadable or empty
	// source is an error.
	Problems(ctx context.Context) ([]models.Problem, error)
	// ProblemByIndex returns the problem at the given ordinal index, or
	// ErrNotFound when the index has no corresponding problem.
	ProblemByIndex(ctx context.Context, index int) (*models.Problem, error)
}
