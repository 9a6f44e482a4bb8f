package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/twitter-action-broker/internal/domain"
	"github.com/arturoeanton/twitter-action-broker/internal/port"
	"github.com/google/uuid"
)

// PostgresStore handles all relational database operations.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection and returns a store instance.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an already opened pool.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database answers.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- Users ---

const userColumns = `id, twitter_id, username, name, profile_image, access_token, refresh_token, expires_at, created_at, updated_at`

// UpsertUser inserts or updates a user by twitter_id. The unique constraint on
// twitter_id keeps concurrent callbacks for the same account down to one row.
func (s *PostgresStore) UpsertUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, twitter_id, username, name, profile_image, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (twitter_id) DO UPDATE SET
			username = EXCLUDED.username,
			name = EXCLUDED.name,
			profile_image = EXCLUDED.profile_image,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING ` + userColumns

	row := s.db.QueryRowContext(ctx, query,
		uuid.NewString(), u.TwitterID, u.Username, u.Name, u.ProfileImage,
		u.AccessToken, u.RefreshToken, nullableInt64(u.ExpiresAt),
	)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

// GetUserByTwitterID retrieves a user by its Twitter account id.
func (s *PostgresStore) GetUserByTwitterID(ctx context.Context, twitterID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE twitter_id = $1`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, twitterID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateUserTokens stores a refreshed token pair.
func (s *PostgresStore) UpdateUserTokens(ctx context.Context, twitterID string, tokens domain.TokenPair) error {
	query := `UPDATE users SET access_token = $1, refresh_token = $2, expires_at = $3, updated_at = NOW()
	          WHERE twitter_id = $4`

	res, err := s.db.ExecContext(ctx, query,
		tokens.AccessToken, tokens.RefreshToken, nullableInt64(tokens.ExpiresAt), twitterID,
	)
	if err != nil {
		return fmt.Errorf("update user tokens: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return port.ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var expiresAt sql.NullInt64
	err := row.Scan(
		&u.ID, &u.TwitterID, &u.Username, &u.Name, &u.ProfileImage,
		&u.AccessToken, &u.RefreshToken, &expiresAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		u.ExpiresAt = &expiresAt.Int64
	}
	return &u, nil
}

// --- User actions ---

// CreateAction appends one action row.
func (s *PostgresStore) CreateAction(ctx context.Context, a *domain.UserAction) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	query := `INSERT INTO user_actions (id, user_id, tweet_id, action, success)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at`

	err := s.db.QueryRowContext(ctx, query, a.ID, a.UserID, a.TweetID, a.Action, a.Success).
		Scan(&a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create action: %w", err)
	}
	return nil
}

// ActionStats aggregates the action log of a user in one pass.
func (s *PostgresStore) ActionStats(ctx context.Context, userID string) (*domain.ActionStats, error) {
	query := `SELECT
	              COUNT(*),
	              COUNT(*) FILTER (WHERE action = 'like'),
	              COUNT(*) FILTER (WHERE action = 'retweet'),
	              COUNT(*) FILTER (WHERE success),
	              COUNT(*) FILTER (WHERE NOT success)
	          FROM user_actions WHERE user_id = $1`

	var st domain.ActionStats
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&st.TotalActions, &st.Likes, &st.Retweets, &st.Successful, &st.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("action stats: %w", err)
	}
	return &st, nil
}

// ListActions returns the most recent actions of a user, newest first.
func (s *PostgresStore) ListActions(ctx context.Context, userID string, limit int) ([]domain.UserAction, error) {
	query := `SELECT id, user_id, tweet_id, action, success, created_at
	          FROM user_actions WHERE user_id = $1
	          ORDER BY created_at DESC LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	actions := []domain.UserAction{}
	for rows.Next() {
		var a domain.UserAction
		if err := rows.Scan(&a.ID, &a.UserID, &a.TweetID, &a.Action, &a.Success, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return actions, nil
}

// --- Audit Logs ---

// WriteAudit implements middleware.AuditWriter.
func (s *PostgresStore) WriteAudit(ctx context.Context, l domain.AuditLog) error {
	if l.Details == "" {
		l.Details = "{}"
	}

	query := `INSERT INTO audit_logs (id, user_id, action, resource, resource_id, details, ip, user_agent)
	          VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), l.UserID, l.Action, l.Resource, l.ResourceID, l.Details, l.IP, l.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("write audit: %w", err)
	}
	return nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
