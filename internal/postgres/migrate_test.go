package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/ivan-hilckov/shawarma-bot-sub000/internal/menu"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"users", "categories", "menu_items", "orders", "order_items"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, schema, "UNIQUE (user_id, external_id)")
}

func TestMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMenu(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	items := []menu.Item{{ID: "1", Name: "A", Price: decimal.NewFromInt(10), Category: menu.CategoryDrinks}}

	mock.ExpectBegin()
	for range menu.Categories {
		mock.ExpectExec("INSERT INTO categories").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectExec("INSERT INTO menu_items").
		WithArgs("1", "A", "", pgxmock.AnyArg(), "drinks", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, SyncMenu(context.Background(), mock, items))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSyncMenuRollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO categories").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = SyncMenu(context.Background(), mock, menu.Default().All())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
