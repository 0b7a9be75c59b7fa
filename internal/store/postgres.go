package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const schema = `
	CREATE TABLE IF NOT EXISTS password_policies (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL UNIQUE,
		policy_text         TEXT NOT NULL,
		min_length          INTEGER NOT NULL,
		max_length          INTEGER NOT NULL,
		include_uppercase   BOOLEAN NOT NULL DEFAULT FALSE,
		include_lowercase   BOOLEAN NOT NULL DEFAULT FALSE,
		include_numbers     BOOLEAN NOT NULL DEFAULT FALSE,
		include_symbols     BOOLEAN NOT NULL DEFAULT FALSE,
		avoid_common_words  BOOLEAN NOT NULL DEFAULT TRUE,
		avoid_personal_info BOOLEAN NOT NULL DEFAULT TRUE,
		ambiguous           BOOLEAN NOT NULL DEFAULT FALSE,
		source              TEXT NOT NULL DEFAULT 'heuristic',
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

const selectColumns = `
	id, name, policy_text, min_length, max_length,
	include_uppercase, include_lowercase, include_numbers, include_symbols,
	avoid_common_words, avoid_personal_info, ambiguous, source,
	created_at, updated_at`

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// Store is the PostgreSQL policy catalogue
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

var _ PolicyStore = (*Store)(nil)

// NewStore connects to PostgreSQL and creates the table if needed
func NewStore(config Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	logger.Info("Policy store initialized successfully",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns),
		zap.Int("max_idle_conns", config.MaxIdleConns))

	return store, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create password_policies table: %w", err)
	}

	return nil
}

// ValidateName checks that a policy name is usable in a URL path
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Save inserts the policy or replaces the one with the same name
func (s *Store) Save(ctx context.Context, policy *Policy) error {
	if err := ValidateName(policy.Name); err != nil {
		return err
	}

	row := toRow(policy)
	query := `
		INSERT INTO password_policies (
			name, policy_text, min_length, max_length,
			include_uppercase, include_lowercase, include_numbers, include_symbols,
			avoid_common_words, avoid_personal_info, ambiguous, source)
		VALUES (
			:name, :policy_text, :min_length, :max_length,
			:include_uppercase, :include_lowercase, :include_numbers, :include_symbols,
			:avoid_common_words, :avoid_personal_info, :ambiguous, :source)
		ON CONFLICT (name) DO UPDATE SET
			policy_text = EXCLUDED.policy_text,
			min_length = EXCLUDED.min_length,
			max_length = EXCLUDED.max_length,
			include_uppercase = EXCLUDED.include_uppercase,
			include_lowercase = EXCLUDED.include_lowercase,
			include_numbers = EXCLUDED.include_numbers,
			include_symbols = EXCLUDED.include_symbols,
			avoid_common_words = EXCLUDED.avoid_common_words,
			avoid_personal_info = EXCLUDED.avoid_personal_info,
			ambiguous = EXCLUDED.ambiguous,
			source = EXCLUDED.source,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, row)
	if err != nil {
		s.logger.Error("Failed to save policy", zap.Error(err), zap.String("name", policy.Name))
		return fmt.Errorf("failed to save policy: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt); err != nil {
			return fmt.Errorf("failed to read saved policy: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}

	s.logger.Debug("Policy saved", zap.Int64("id", policy.ID), zap.String("name", policy.Name))
	return nil
}

// Get returns the policy with the given name
func (s *Store) Get(ctx context.Context, name string) (*Policy, error) {
	var row policyRow
	query := "SELECT " + selectColumns + " FROM password_policies WHERE name = $1"

	if err := s.db.GetContext(ctx, &row, query, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}

	return row.policy(), nil
}

// List returns every policy ordered by name
func (s *Store) List(ctx context.Context) ([]*Policy, error) {
	var rows []policyRow
	query := "SELECT " + selectColumns + " FROM password_policies ORDER BY name"

	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}

	policies := make([]*Policy, 0, len(rows))
	for _, row := range rows {
		policies = append(policies, row.policy())
	}
	return policies, nil
}

// Delete removes the policy with the given name
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM password_policies WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete policy: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		s.logger.Warn("Could not get rows affected", zap.Error(err))
		return nil
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("Policy deleted", zap.String("name", name))
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks the password in a database URL for logging
func maskDatabaseURL(url string) string {
	at := strings.LastIndex(url, "@")
	if at < 0 {
		return url
	}
	userPart := url[:at]
	start := 0
	if scheme := strings.Index(userPart, "://"); scheme >= 0 {
		start = scheme + 3
	}
	colon := strings.LastIndex(userPart[start:], ":")
	if colon < 0 {
		return url
	}
	colon += start
	return userPart[:colon+1] + "***" + url[at:]
}
