// Package services contains the server-side business logic: account
// creation, the signature registry and the session lifecycle (signin,
// verify, refresh, logout, logout everywhere).
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
)

var domainErrors = []error{
	common.ErrNotFound,
	common.ErrAlreadyExists,
	common.ErrConflict,
	common.ErrValidation,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
	common.ErrTokenNotFound,
	common.ErrStoreUnavailable,
}

// storeError passes domain errors through and turns anything else into
// common.ErrStoreUnavailable, logging the cause.
func storeError(ctx context.Context, log logging.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	log.Error(ctx, "store failure", "op", op, "err", err)
	return fmt.Errorf("%w: %s: %w", common.ErrStoreUnavailable, op, err)
}
