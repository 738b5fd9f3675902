package signatures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID, signature string) error {
	query := `
		INSERT INTO users_signatures (signature, user_id)
		VALUES ($1, $2)
	`
	if _, err := r.db.ExecContext(ctx, query, signature, userID); err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Current(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT signature
		FROM users_signatures
		WHERE user_id = $1
	`
	var signature string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&signature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return signature, nil
}

func (r *PostgresRepository) Lock(ctx context.Context, userID string) (string, error) {
	query := `
		SELECT signature
		FROM users_signatures
		WHERE user_id = $1
		FOR UPDATE
	`
	var signature string
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&signature); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return signature, nil
}

func (r *PostgresRepository) Replace(ctx context.Context, userID, old, next string) error {
	query := `
		UPDATE users_signatures
		SET signature = $3, updated_at = now()
		WHERE user_id = $1 AND signature = $2
	`
	res, err := r.db.ExecContext(ctx, query, userID, old, next)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrConflict
	}
	return nil
}
