package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite in memory with init hooks", func(t *testing.T) {
		var order []string
		db, err := New(ctx,
			WithDriver("sqlite3"),
			WithDataSource(":memory:"),
			WithMaxOpenConns(1),
			WithInit(
				func(ctx context.Context, db *sql.DB) error {
					order = append(order, "schema")
					_, err := db.ExecContext(ctx, `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
					return err
				},
				func(ctx context.Context, db *sql.DB) error {
					order = append(order, "seed")
					_, err := db.ExecContext(ctx, `INSERT INTO t (id) VALUES (1)`)
					return err
				},
			),
		)
		require.NoError(t, err)
		defer db.Close()

		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"schema", "seed"}, order)
	})

	t.Run("init failure closes the pool", func(t *testing.T) {
		_, err := New(ctx, WithInit(func(ctx context.Context, db *sql.DB) error {
			return errors.New("bad schema")
		}))
		assert.ErrorContains(t, err, "bad schema")
	})

	t.Run("empty options rejected", func(t *testing.T) {
		_, err := New(ctx, WithDriver(""))
		assert.Error(t, err)

		_, err = New(ctx, WithDataSource(""))
		assert.Error(t, err)
	})

	t.Run("unknown driver exhausts retries", func(t *testing.T) {
		_, err := New(ctx, WithDriver("nope"), WithRetry(2, time.Millisecond))
		assert.ErrorContains(t, err, "after 2 attempts")
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := New(cctx, WithDriver("nope"), WithRetry(5, time.Second))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
