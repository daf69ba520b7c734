package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opencode-ai/copilot/internal/logging"
	"github.com/opencode-ai/copilot/pkg/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connect retry settings.
const (
	ConnectInitialInterval = 500 * time.Millisecond
	ConnectMaxInterval     = 5 * time.Second
	ConnectMaxElapsedTime  = 30 * time.Second
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to databaseURL, retrying while the server comes up,
// and migrates the schema to the latest version.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres: empty database url")
	}
	log := logging.Component("storage")

	var pool *pgxpool.Pool
	connect := func() error {
		p, err := newPool(ctx, databaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retryIn", wait).Msg("database not ready")
	}
	if err := backoff.RetryNotify(connect, newConnectBackoff(ctx), notify); err != nil {
		return nil, err
	}

	if err := runMigrations(databaseURL); err != nil {
		pool.Close()
		return nil, err
	}

	log.Debug().Str("driver", DriverPostgres).Msg("database opened")
	return &PostgresStore{pool: pool}, nil
}

func newConnectBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = ConnectInitialInterval
	b.MaxInterval = ConnectMaxInterval
	b.MaxElapsedTime = ConnectMaxElapsedTime
	b.Reset()
	return backoff.WithContext(b, ctx)
}

func newPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("parse database config: %w", err))
	}
	config.MaxConns = 20
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func runMigrations(databaseURL string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	log := logging.Component("storage")
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
	return nil
}

func pgPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

// CreateSession implements Store.
func (p *PostgresStore) CreateSession(ctx context.Context, s *types.Session) error {
	tag, err := p.pool.Exec(ctx,
		"INSERT INTO sessions ("+sessionColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (id) DO NOTHING",
		sessionArgs(s)...)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// GetSession implements Store.
func (p *PostgresStore) GetSession(ctx context.Context, id string) (*types.Session, error) {
	s, err := scanSession(p.pool.QueryRow(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// ListSessions implements Store.
func (p *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*types.Session, error) {
	query, args := sessionQuery(filter, pgPlaceholder)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []*types.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// AppendMessage implements Store.
func (p *PostgresStore) AppendMessage(ctx context.Context, m *types.Message) error {
	args, err := messageArgs(m)
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx,
		"INSERT INTO messages ("+messageColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING",
		args...)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// GetMessage implements Store.
func (p *PostgresStore) GetMessage(ctx context.Context, id string) (*types.Message, error) {
	m, err := scanMessage(p.pool.QueryRow(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

// ListMessages implements Store.
func (p *PostgresStore) ListMessages(ctx context.Context, sessionID string) ([]*types.Message, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT "+messageColumns+" FROM messages WHERE session_id = $1 ORDER BY id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []*types.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Close implements Store.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
