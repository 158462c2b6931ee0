package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const CreateTableSQL = `CREATE TABLE IF NOT EXISTS orders (
	id             TEXT PRIMARY KEY,
	customer_id    TEXT NOT NULL,
	display_name   TEXT NOT NULL DEFAULT '',
	contact        TEXT,
	items          JSONB NOT NULL,
	notes          TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	total_amount   NUMERIC(12,2) NOT NULL,
	unpriced_items TEXT[] NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS orders_customer_idx ON orders (customer_id, created_at DESC);`

const orderColumns = `id, customer_id, display_name, contact, items, notes, status, total_amount, unpriced_items, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		ord       Order
		contact   sql.NullString
		itemsJSON []byte
		status    string
		unpriced  []string
	)
	if err := row.Scan(&ord.ID, &ord.CustomerID, &ord.DisplayName, &contact, &itemsJSON, &ord.Notes,
		&status, &ord.TotalAmount, pq.Array(&unpriced), &ord.CreatedAt, &ord.UpdatedAt); err != nil {
		return Order{}, err
	}
	if contact.Valid {
		ord.Contact = &contact.String
	}
	if err := json.Unmarshal(itemsJSON, &ord.Items); err != nil {
		return Order{}, fmt.Errorf("order %s items: %w", ord.ID, err)
	}
	ord.Status = Status(status)
	if len(unpriced) > 0 {
		ord.UnpricedItems = unpriced
	}
	ord.CreatedAt = ord.CreatedAt.UTC()
	ord.UpdatedAt = ord.UpdatedAt.UTC()
	return ord, nil
}

// Insert relies on the primary key: a clash inserts nothing and returns no row.
func (r *PostgresRepository) Insert(ctx context.Context, ord Order) error {
	itemsJSON, err := json.Marshal(ord.Items)
	if err != nil {
		return err
	}
	var contact sql.NullString
	if ord.Contact != nil {
		contact = sql.NullString{String: *ord.Contact, Valid: true}
	}
	unpriced := ord.UnpricedItems
	if unpriced == nil {
		unpriced = []string{}
	}

	var id string
	err = r.db.QueryRowContext(ctx, `INSERT INTO orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO NOTHING
		RETURNING id`,
		ord.ID, ord.CustomerID, ord.DisplayName, contact, itemsJSON, ord.Notes,
		string(ord.Status), ord.TotalAmount, pq.Array(unpriced), ord.CreatedAt, ord.UpdatedAt).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateID
	}
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	ord, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return ord, err
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (Order, error) {
	row := r.db.QueryRowContext(ctx, `UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING `+orderColumns, id, string(status), at)
	ord, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return ord, err
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text = '' OR customer_id = $1) AND ($2::text = '' OR status = $2)
		ORDER BY created_at DESC, id`
	rows, err := r.db.QueryContext(ctx, query, f.CustomerID, string(f.Status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		ord, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, ord)
	}
	return orders, rows.Err()
}
