package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/adullam/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

// Set fully replaces the slot.
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) GetOrCreate(ctx context.Context, key string, value []byte) ([]byte, error) {
	tb, ok := r.db.(dbx.TxBeginner)
	if !ok {
		return getOrCreate(ctx, r, key, value)
	}

	var out []byte
	err := dbx.WithTx(ctx, tb, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		out, err = getOrCreate(ctx, NewSQLiteRepository(tx), key, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func getOrCreate(ctx context.Context, r *SQLiteRepository, key string, value []byte) ([]byte, error) {
	cur, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if cur != nil {
		return cur, nil
	}
	if err := r.Set(ctx, key, value); err != nil {
		return nil, err
	}
	return value, nil
}
