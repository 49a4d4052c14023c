package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scriptflow/scriptflow/pkg/models"
	"github.com/scriptflow/scriptflow/pkg/persistence"
)

// SuiteRepository handles suite operations against PostgreSQL.
type SuiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSuiteRepository creates a new suite repository.
func NewSuiteRepository(db *sql.DB, logger *slog.Logger) *SuiteRepository {
	return &SuiteRepository{
		db:     db,
		logger: logger.With("module", "postgresql_suite_repository"),
	}
}

const suiteColumns = `id, name, language, code, tags, last_status, last_run_at, last_log, created_at, updated_at`

// Suites returns all suites ordered by name.
func (sr *SuiteRepository) Suites(ctx context.Context) ([]*models.Suite, error) {
	rows, err := sr.db.QueryContext(ctx, `SELECT `+suiteColumns+` FROM suites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query suites: %w", err)
	}
	defer rows.Close()

	var suites []*models.Suite

	for rows.Next() {
		suite, err := scanSuite(rows)
		if err != nil {
			return nil, err
		}

		suites = append(suites, suite)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suites: %w", err)
	}

	return suites, nil
}

// SuiteByID returns a suite by its ID.
func (sr *SuiteRepository) SuiteByID(ctx context.Context, id string) (*models.Suite, error) {
	row := sr.db.QueryRowContext(ctx, `SELECT `+suiteColumns+` FROM suites WHERE id = $1`, id)

	suite, err := scanSuite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("SuiteByID", id, persistence.ErrSuiteNotFound)
		}

		return nil, err
	}

	return suite, nil
}

// SaveSuite inserts or updates a suite.
func (sr *SuiteRepository) SaveSuite(ctx context.Context, suite *models.Suite) error {
	now := time.Now().UTC()
	if suite.CreatedAt.IsZero() {
		suite.CreatedAt = now
	}

	suite.UpdatedAt = now

	tags, err := json.Marshal(suite.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal suite tags: %w", err)
	}

	_, err = sr.db.ExecContext(ctx, `
		INSERT INTO suites (id, name, language, code, tags, last_status, last_run_at, last_log, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			language = EXCLUDED.language,
			code = EXCLUDED.code,
			tags = EXCLUDED.tags,
			updated_at = EXCLUDED.updated_at
	`, suite.ID, suite.Name, string(suite.Language), suite.Code, tags,
		nullableString(string(suite.LastStatus)), suite.LastRunAt, suite.LastLog,
		suite.CreatedAt, suite.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save suite %s: %w", suite.ID, err)
	}

	return nil
}

// UpdateSuiteRun records the outcome of the latest suite execution.
func (sr *SuiteRepository) UpdateSuiteRun(ctx context.Context, id string, status models.JobStatus, log string) error {
	result, err := sr.db.ExecContext(ctx, `
		UPDATE suites SET last_status = $2, last_run_at = NOW(), last_log = $3, updated_at = NOW()
		WHERE id = $1
	`, id, string(status), log)
	if err != nil {
		return fmt.Errorf("failed to update suite run %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result for suite %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.NewStoreError("UpdateSuiteRun", id, persistence.ErrSuiteNotFound)
	}

	return nil
}

// DeleteSuite removes a suite by its ID. Deleting a missing suite is not an error.
func (sr *SuiteRepository) DeleteSuite(ctx context.Context, id string) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM suites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete suite %s: %w", id, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuite(row rowScanner) (*models.Suite, error) {
	var (
		suite      models.Suite
		language   string
		tags       []byte
		lastStatus sql.NullString
		lastRunAt  sql.NullTime
	)

	err := row.Scan(&suite.ID, &suite.Name, &language, &suite.Code, &tags,
		&lastStatus, &lastRunAt, &suite.LastLog, &suite.CreatedAt, &suite.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to scan suite row: %w", err)
	}

	suite.Language = models.SuiteLanguage(language)

	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &suite.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal suite tags: %w", err)
		}
	}

	if lastStatus.Valid {
		suite.LastStatus = models.JobStatus(lastStatus.String)
	}

	if lastRunAt.Valid {
		runAt := lastRunAt.Time
		suite.LastRunAt = &runAt
	}

	return &suite, nil
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
