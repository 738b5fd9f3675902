package loginsessions

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, s *models.LoginSession) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	query := `
		INSERT INTO users_logins (id, user_id, ip, user_agent, time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, ip, user_agent)
		DO UPDATE SET time = EXCLUDED.time, updated_at = now()
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query, s.ID, s.UserID, s.IP, s.UserAgent, s.LastSeen).Scan(&s.ID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]models.LoginSession, error) {
	query := `
		SELECT id, user_id, ip, user_agent, time
		FROM users_logins
		WHERE user_id = $1
		ORDER BY time DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.LoginSession
	for rows.Next() {
		var s models.LoginSession
		if err := rows.Scan(&s.ID, &s.UserID, &s.IP, &s.UserAgent, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
