package convo

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pasabayan/chatd/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres is a durable Store backed by PostgreSQL. Conversations survive
// process restarts; retention is enforced by Sweep.
type Postgres struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPostgres connects to the database and verifies the connection.
func NewPostgres(ctx context.Context, databaseURL string, logger log.Logger) (*Postgres, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping verifies database connectivity. Used by the readiness probe.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Migrate applies all pending schema migrations.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	// The pgx/v5 migrate driver registers the pgx5 scheme.
	url := databaseURL
	if strings.HasPrefix(url, "postgres://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgres://")
	} else if strings.HasPrefix(url, "postgresql://") {
		url = "pgx5://" + strings.TrimPrefix(url, "postgresql://")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Create(ctx context.Context, mode string) (*Conversation, error) {
	c := &Conversation{ID: uuid.New(), Mode: mode}

	err := p.pool.QueryRow(ctx,
		`INSERT INTO conversations (id, mode) VALUES ($1, $2) RETURNING created_at, updated_at`,
		c.ID, c.Mode,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	p.logger.Debug("conversation created", "id", c.ID)
	return c, nil
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	c := &Conversation{ID: id}

	err := p.pool.QueryRow(ctx,
		`SELECT mode, created_at, updated_at FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.Mode, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %s: %w", id, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT role, payload, created_at FROM messages WHERE conversation_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get messages for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Payload, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		c.Messages = append(c.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return c, nil
}

func (p *Postgres) Append(ctx context.Context, id uuid.UUID, msgs ...Message) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("touch conversation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	for _, m := range msgs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO messages (conversation_id, role, payload) VALUES ($1, $2, $3)`,
			id, m.Role, m.Payload,
		); err != nil {
			return fmt.Errorf("append message to %s: %w", id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Sweep removes conversations created before the retention cutoff.
func (p *Postgres) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-Retention)

	tag, err := p.pool.Exec(ctx, `DELETE FROM conversations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep conversations: %w", err)
	}

	removed := int(tag.RowsAffected())
	if removed > 0 {
		p.logger.Info("evicted expired conversations", "count", removed)
	}
	return removed, nil
}

// StartSweeper runs Sweep hourly until ctx is cancelled.
func (p *Postgres) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.Sweep(ctx); err != nil {
					p.logger.Error("conversation sweep failed", "error", err)
				}
			}
		}
	}()
}
