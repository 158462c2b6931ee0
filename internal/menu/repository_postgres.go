package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	itemColumns = `id, name, category, price, description, allergens, image`

	// CreateTableSQL is applied at startup when the menu lives in Postgres.
	CreateTableSQL = `CREATE TABLE IF NOT EXISTS menu_items (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        category TEXT NOT NULL DEFAULT '',
        price NUMERIC(10,2) NOT NULL,
        description TEXT NOT NULL DEFAULT '',
        allergens TEXT NOT NULL DEFAULT '',
        image TEXT NOT NULL DEFAULT '',
        ord INT NOT NULL DEFAULT 0
    )`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM menu_items ORDER BY ord, id`)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Item, error) {
	var it Item
	err := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM menu_items WHERE id = $1`, id).
		Scan(&it.ID, &it.Name, &it.Category, &it.Price, &it.Description, &it.Allergens, &it.Image)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("query menu item %s: %w", id, err)
	}
	return it, nil
}

// ListByIDs returns the items whose id is in ids, in the order of ids.
// Unknown ids are skipped; an empty ids slice returns without a query.
func (r *PostgresRepository) ListByIDs(ctx context.Context, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return []Item{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+itemColumns+`
        FROM menu_items
        WHERE id = ANY($1::text[])
        ORDER BY array_position($1::text[], id)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// Seed inserts items when the table is empty.
func (r *PostgresRepository) Seed(ctx context.Context, items []Item) error {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM menu_items`).Scan(&count); err != nil {
		return fmt.Errorf("count menu items: %w", err)
	}
	if count > 0 {
		return nil
	}
	for i, it := range items {
		_, err := r.db.ExecContext(ctx, `INSERT INTO menu_items (`+itemColumns+`, ord) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			it.ID, it.Name, it.Category, it.Price, it.Description, it.Allergens, it.Image, i)
		if err != nil {
			return fmt.Errorf("seed menu item %s: %w", it.ID, err)
		}
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	out := make([]Item, 0)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Price, &it.Description, &it.Allergens, &it.Image); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
