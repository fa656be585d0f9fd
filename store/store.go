// Package store persists the single most recent assistance response. It is a
// one-slot cache: every save overwrites the previous record.
package store

import (
	"errors"

	"dsa-assist-service/models"
)

// ErrCacheMiss signals that no stored response exists (never written, or
// cleared). It is an absence signal, not an I/O fault.
var ErrCacheMiss = errors.New("no cached response")

// ResponseStore is the single-slot persistence used by the assist service.
// Save must sanitize the text before persisting, so non-sanitized text can
// never reach durable storage regardless of the caller.
type ResponseStore interface {
	// Load returns the most recent record, or ErrCacheMiss if none exists.
	Load() (*models.StoredResponse, error)
	// Save overwrites the slot with a sanitized copy of text.
	Save(questionIndex int, title, text string, lang models.Language) error
	// Clear resets the slot to an empty sentinel record. Returns ErrCacheMiss
	// when there is nothing to clear.
	Clear() error
}
