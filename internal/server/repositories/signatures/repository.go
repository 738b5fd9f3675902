// Package signatures declares and implements storage for the per-user
// signature row (one row per user, enforced by a unique constraint on user_id).
package signatures

import "context"

type Repository interface {
	// Create inserts the user's first signature. A second row for the same
	// user yields common.ErrAlreadyExists.
	Create(ctx context.Context, userID, signature string) error

	// Current returns the live signature or common.ErrNotFound.
	Current(ctx context.Context, userID string) (string, error)

	// Lock returns the live signature and holds the row until the
	// surrounding transaction ends.
	Lock(ctx context.Context, userID string) (string, error)

	// Replace swaps old for next in place. It never inserts; if the row no
	// longer holds old (or does not exist) it yields common.ErrConflict.
	Replace(ctx context.Context, userID, old, next string) error
}
