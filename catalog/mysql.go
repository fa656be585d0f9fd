package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"dsa-assist-service/models"
)

// MySQLProvider reads the catalog from a problems table. The table is owned by
// the platform's content pipeline; this service only selects from it.
type MySQLProvider struct {
	db *sql.DB
}

// NewMySQLProvider creates a provider over an existing database handle.
func NewMySQLProvider(db *sql.DB) *MySQLProvider {
	return &MySQLProvider{db: db}
}

const problemColumns = "title, difficulty, description, input_format, output_format, constraints_text, hint, sample_input, sample_output, topic_tags"

// Problems returns the full catalog ordered by id.
func (p *MySQLProvider) Problems(ctx context.Context) ([]models.Problem, error) {
	query := fmt.Sprintf("SELECT %s FROM problems ORDER BY id", problemColumns)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query problem catalog: %w", err)
	}
	defer rows.Close()

	var problems []models.Problem
	for rows.Next() {
		problem, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problem.Index = len(problems)
		problems = append(problems, *problem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate problem catalog: %w", err)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("problem catalog table is empty")
	}
	return problems, nil
}

// ProblemByIndex returns the problem at the given ordinal position.
func (p *MySQLProvider) ProblemByIndex(ctx context.Context, index int) (*models.Problem, error) {
	if index < 0 {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf("SELECT %s FROM problems ORDER BY id LIMIT 1 OFFSET ?", problemColumns)

	rows, err := p.db.QueryContext(ctx, query, index)
	if err != nil {
		return nil, fmt.Errorf("failed to query problem at index %d: %w", index, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read problem at index %d: %w", index, err)
		}
		return nil, ErrNotFound
	}

	problem, err := scanProblem(rows)
	if err != nil {
		return nil, err
	}
	problem.Index = index
	return problem, nil
}

func scanProblem(rows *sql.Rows) (*models.Problem, error) {
	var problem models.Problem
	var tags string
	if err := rows.Scan(
		&problem.Title,
		&problem.Difficulty,
		&problem.Description,
		&problem.InputFormat,
		&problem.OutputFormat,
		&problem.Constraints,
		&problem.Hint,
		&problem.SampleInput,
		&problem.SampleOutput,
		&tags,
	); err != nil {
		return nil, fmt.Errorf("failed to scan problem row: %w", err)
	}
	if tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				problem.TopicTags = append(problem.TopicTags, tag)
			}
		}
	}
	return &problem, nil
}
