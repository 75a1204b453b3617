package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed schema.sql
var schema string

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// SyncMenu upserts the static catalog so order reads can join current
// names and prices.
func SyncMenu(ctx context.Context, db txBeginner, items []menu.Item) (err error) {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	for _, c := range menu.Categories {
		if _, err = tx.Exec(ctx, `
			INSERT INTO categories (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
			string(c), c.Title()); err != nil {
			return fmt.Errorf("upsert category %s: %w", c, err)
		}
	}
	for _, it := range items {
		if _, err = tx.Exec(ctx, `
			INSERT INTO menu_items (id, name, description, price, category_id, photo)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    description = EXCLUDED.description,
			    price = EXCLUDED.price,
			    category_id = EXCLUDED.category_id,
			    photo = EXCLUDED.photo,
			    updated_at = now()`,
			it.ID, it.Name, it.Description, it.Price, string(it.Category), it.Photo); err != nil {
			return fmt.Errorf("upsert menu item %s: %w", it.ID, err)
		}
	}
	return tx.Commit(ctx)
}
