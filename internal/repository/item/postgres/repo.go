// Package postgres serves lost and found item reports from PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// Schema creates the item tables. Apply it with [Repo.Migrate] or during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS lost_items (
    id             TEXT PRIMARY KEY,
    description    TEXT NOT NULL DEFAULT '',
    location       TEXT NOT NULL DEFAULT '',
    contact_number TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT '',
    image          TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'lost',
    user_id        TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS found_items (
    id             TEXT PRIMARY KEY,
    description    TEXT NOT NULL DEFAULT '',
    location       TEXT NOT NULL DEFAULT '',
    contact_number TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT '',
    image          TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'found',
    user_id        TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const columns = `id, description, location, contact_number, category, image, status, user_id, created_at, updated_at`

// DB is satisfied by *pgxpool.Pool and *pgx.Conn.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repo implements usecase/match.Corpus on two tables.
type Repo struct {
	db DB
}

// New creates a repository over db.
func New(db DB) *Repo {
	return &Repo{db: db}
}

// NewPool opens a pgx pool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate applies Schema.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// ListLost returns every lost item report ordered by creation time then ID.
func (r *Repo) ListLost(ctx context.Context) ([]domain.Item, error) {
	return r.list(ctx, domain.KindLost)
}

// ListFound returns every found item report ordered by creation time then ID.
func (r *Repo) ListFound(ctx context.Context) ([]domain.Item, error) {
	return r.list(ctx, domain.KindFound)
}

// GetLost returns a lost item by ID.
func (r *Repo) GetLost(ctx context.Context, id string) (domain.Item, error) {
	return r.get(ctx, domain.KindLost, id)
}

// GetFound returns a found item by ID.
func (r *Repo) GetFound(ctx context.Context, id string) (domain.Item, error) {
	return r.get(ctx, domain.KindFound, id)
}

// Put inserts or replaces an item report.
func (r *Repo) Put(ctx context.Context, it domain.Item) error {
	table, err := tableFor(it.Kind)
	if err != nil {
		return err
	}
	if it.ID == "" {
		return errors.New("put item: empty id")
	}
	status := it.Status
	if status == "" {
		status = domain.DefaultStatus(it.Kind)
	}
	now := time.Now().UTC()
	created, updated := it.CreatedAt, it.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = created
	}

	query := `INSERT INTO ` + table + ` (` + columns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			contact_number = EXCLUDED.contact_number,
			category = EXCLUDED.category,
			image = EXCLUDED.image,
			status = EXCLUDED.status,
			user_id = EXCLUDED.user_id,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.Exec(ctx, query,
		it.ID, it.Description, it.Location, it.Contact, it.Category,
		string(it.Image), string(status), it.OwnerID, created, updated,
	)
	if err != nil {
		return fmt.Errorf("put %s item %s: %w", it.Kind, it.ID, err)
	}
	return nil
}

func (r *Repo) list(ctx context.Context, kind domain.Kind) ([]domain.Item, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM `+table+` ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list %s items: %w", kind, err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByName[record])
	if err != nil {
		return nil, fmt.Errorf("scan %s items: %w", kind, err)
	}

	items := make([]domain.Item, len(recs))
	for i, rec := range recs {
		items[i] = rec.toItem(kind)
	}
	return items, nil
}

func (r *Repo) get(ctx context.Context, kind domain.Kind, id string) (domain.Item, error) {
	table, err := tableFor(kind)
	if err != nil {
		return domain.Item{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("get %s item %s: %w", kind, id, err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[record])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Item{}, domain.ErrItemNotFound
		}
		return domain.Item{}, fmt.Errorf("get %s item %s: %w", kind, id, err)
	}
	return rec.toItem(kind), nil
}

func tableFor(kind domain.Kind) (string, error) {
	switch kind {
	case domain.KindLost:
		return "lost_items", nil
	case domain.KindFound:
		return "found_items", nil
	default:
		return "", fmt.Errorf("unknown item kind %q", kind)
	}
}
