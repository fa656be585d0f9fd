package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"dsa-assist-service/models"
)

// FileProvider reads the catalog from a JSON array of problem records.
type FileProvider struct {
	path string
}

// NewFileProvider creates a provider over a JSON catalog file.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

// Problems reads and parses the catalog file.
func (p *FileProvider) Problems(_ context.Context) ([]models.Problem, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem catalog %s: %w", p.path, err)
	}

	var problems []models.Problem
	if err := json.Unmarshal(data, &problems); err != nil {
		return nil, fmt.Errorf("failed to parse problem catalog %s: %w", p.path, err)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("problem catalog %s is empty", p.path)
	}

	for i := range problems {
		problems[i].Index = i
	}
	return problems, nil
}

// ProblemByIndex loads the catalog and returns the problem at index.
func (p *FileProvider) ProblemByIndex(ctx context.Context, index int) (*models.Problem, error) {
	problems, err := p.Problems(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(problems) {
		return nil, ErrNotFound
	}
	return &problems[index], nil
}
