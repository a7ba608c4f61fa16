package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"feedctl/internal/domain/entity"
	"feedctl/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// ItemRepo is the Postgres-backed repository.ItemRepository.
type ItemRepo struct{ db *sql.DB }

func NewItemRepo(db *sql.DB) repository.ItemRepository {
	return &ItemRepo{db: db}
}

const itemColumns = `id, feed_id, title, link, content, author, published_at, ingested_at, content_hash`

func scanItem(row interface{ Scan(...any) error }) (*entity.Item, error) {
	var it entity.Item
	var publishedAt sql.NullTime
	if err := row.Scan(&it.ID, &it.FeedID, &it.Title, &it.Link, &it.Content, &it.Author,
		&publishedAt, &it.IngestedAt, &it.ContentHash); err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		it.PublishedAt = publishedAt.Time
	}
	return &it, nil
}

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505), the content-hash dedup collision path.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	const query = `
INSERT INTO items (feed_id, title, link, content, author, published_at, content_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, ingested_at`
	err := r.db.QueryRowContext(ctx, query,
		item.FeedID, item.Title, item.Link, item.Content, item.Author, item.PublishedAt, item.ContentHash,
	).Scan(&item.ID, &item.IngestedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicateContentHash
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *ItemRepo) Get(ctx context.Context, id int64) (*entity.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return it, nil
}

func (r *ItemRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1) ORDER BY published_at DESC`, ids)
	if err != nil {
		return nil, fmt.Errorf("GetByIDs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func collectItems(rows *sql.Rows) ([]*entity.Item, error) {
	var items []*entity.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("Scan: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// itemWhereClause builds the shared WHERE fragment for List and Count so the
// two never drift out of sync on filter semantics.
func itemWhereClause(filters repository.ItemFilters) (string, []any) {
	where := []string{"1=1"}
	var args []any
	idx := 1

	if filters.FeedID != nil {
		where = append(where, fmt.Sprintf("feed_id = $%d", idx))
		args = append(args, *filters.FeedID)
		idx++
	}
	if filters.SinceHours != nil {
		where = append(where, fmt.Sprintf("published_at >= now() - ($%d || ' hours')::interval", idx))
		args = append(args, *filters.SinceHours)
		idx++
	}

	return strings.Join(where, " AND "), args
}

func (r *ItemRepo) List(ctx context.Context, filters repository.ItemFilters) ([]*entity.Item, error) {
	where, args := itemWhereClause(filters)
	idx := len(args) + 1

	order := "DESC"
	if !filters.SortDesc {
		order = "ASC"
	}
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`SELECT %s FROM items WHERE %s ORDER BY published_at %s LIMIT $%d OFFSET $%d`,
		itemColumns, where, order, idx, idx+1)
	args = append(args, limit, filters.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

// Count returns the number of items matching filters, ignoring Limit and
// Offset, for total-page computation ahead of a paginated List call.
func (r *ItemRepo) Count(ctx context.Context, filters repository.ItemFilters) (int64, error) {
	where, args := itemWhereClause(filters)
	query := fmt.Sprintf(`SELECT count(*) FROM items WHERE %s`, where)

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return total, nil
}

func (r *ItemRepo) ListLatest(ctx context.Context, n int) ([]*entity.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items ORDER BY published_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("ListLatest: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func (r *ItemRepo) ListByFeeds(ctx context.Context, feedIDs []int64, limit int) ([]*entity.Item, error) {
	if len(feedIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE feed_id = ANY($1) ORDER BY published_at DESC LIMIT $2`, feedIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("ListByFeeds: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func (r *ItemRepo) ListByTimeRange(ctx context.Context, from, to time.Time) ([]*entity.Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE published_at BETWEEN $1 AND $2 ORDER BY published_at DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("ListByTimeRange: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collectItems(rows)
}

func (r *ItemRepo) ExistsByContentHash(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE content_hash = $1)`, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ExistsByContentHash: %w", err)
	}
	return exists, nil
}
