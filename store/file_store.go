package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dsa-assist-service/models"
	"dsa-assist-service/sanitize"
)

// FileStore keeps the slot in a single JSON file. The mutex serializes writers
// within this process only; the design assumes a single writer at a time, and
// concurrent requests racing to save is an accepted last-writer-wins hazard,
// not a consistent multi-entry cache.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store. The containing directory is
// created lazily on first write, not here, so a read-only deployment can still
// serve cache misses.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the current slot. A missing file and a cleared sentinel both
// report ErrCacheMiss.
func (fs *FileStore) Load() (*models.StoredResponse, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var record models.StoredResponse
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache record: %w", err)
	}
	if record.IsEmpty() {
		return nil, ErrCacheMiss
	}
	return &record, nil
}

// Save sanitizes the text and overwrites the slot.
func (fs *FileStore) Save(questionIndex int, title, text string, lang models.Language) error {
	record := models.StoredResponse{
		QuestionIndex: questionIndex,
		Title:         title,
		Language:      lang,
		Response:      sanitize.Sanitize(text),
		CreatedAt:     time.Now().UTC(),
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.writeLocked(&record)
}

// Clear resets the slot to the empty sentinel. ErrCacheMiss when no cache file
// exists yet. The lock covers both the existence check and the sentinel write,
// so a concurrent Save cannot interleave between them.
func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, err := os.Stat(fs.path); os.IsNotExist(err) {
		return ErrCacheMiss
	}

	sentinel := models.StoredResponse{
		QuestionIndex: -1,
		CreatedAt:     time.Now().UTC(),
	}
	return fs.writeLocked(&sentinel)
}

// writeLocked overwrites the slot file. Callers must hold fs.mu.
func (fs *FileStore) writeLocked(record *models.StoredResponse) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache record: %w", err)
	}

	if err := os.WriteFile(fs.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
