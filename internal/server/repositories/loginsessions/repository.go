// Package loginsessions stores the devices users have signed in from.
package loginsessions

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

type Repository interface {
	// Upsert records a sign-in. A repeat sign-in from the same (user, ip,
	// user agent) only moves LastSeen forward.
	Upsert(ctx context.Context, s *models.LoginSession) error
	// ListForUser returns sessions newest first.
	ListForUser(ctx context.Context, userID string) ([]models.LoginSession, error)
}
