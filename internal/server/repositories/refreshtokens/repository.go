// Package refreshtokens declares the credential store contract for the
// server-side records of live refresh tokens.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository defines operations for issuing, consuming and revoking refresh
// tokens. Tokens are addressed by their correlation id.
type Repository interface {
	// Create stores a new refresh token record.
	Create(ctx context.Context, token *models.RefreshToken) error

	// Consume deletes the record for token and returns what was deleted.
	// Of several concurrent calls for the same token at most one succeeds;
	// the others get common.ErrNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete removes a record. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteAllForUser removes every record of userID and reports how many.
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}
