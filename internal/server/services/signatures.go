package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// signatureBytes is the entropy of a signature; it is stored hex encoded.
const signatureBytes = 32

// SignatureRegistry owns the per-user signature that stamps access tokens.
// Replacing it is what revokes every access token issued before.
type SignatureRegistry struct {
	repos repomanager.RepositoryManager
}

func NewSignatureRegistry(repos repomanager.RepositoryManager) *SignatureRegistry {
	return &SignatureRegistry{repos: repos}
}

// Generate returns a fresh signature value without storing it.
func (r *SignatureRegistry) Generate() (string, error) {
	sig, err := common.MakeRandHexString(signatureBytes)
	if err != nil {
		return "", fmt.Errorf("generate signature: %w", err)
	}
	return sig, nil
}

// Create stores the first signature of a new user.
func (r *SignatureRegistry) Create(ctx context.Context, db dbx.DBTX, userID string) (string, error) {
	sig, err := r.Generate()
	if err != nil {
		return "", err
	}
	if err := r.repos.Signatures(db).Create(ctx, userID, sig); err != nil {
		return "", err
	}
	return sig, nil
}

func (r *SignatureRegistry) Current(ctx context.Context, db dbx.DBTX, userID string) (string, error) {
	return r.repos.Signatures(db).Current(ctx, userID)
}

// Lock returns the live signature and holds the user's row for the rest of
// the transaction db belongs to.
func (r *SignatureRegistry) Lock(ctx context.Context, db dbx.DBTX, userID string) (string, error) {
	return r.repos.Signatures(db).Lock(ctx, userID)
}

// RotateTo replaces old with next in place. If the row no longer holds old
// it yields common.ErrConflict.
func (r *SignatureRegistry) RotateTo(ctx context.Context, db dbx.DBTX, userID, old, next string) error {
	return r.repos.Signatures(db).Replace(ctx, userID, old, next)
}

// Rotate replaces the user's signature with a freshly generated one and
// returns it. db should be a transaction so the row stays locked between the
// read and the swap.
func (r *SignatureRegistry) Rotate(ctx context.Context, db dbx.DBTX, userID string) (string, error) {
	old, err := r.Lock(ctx, db, userID)
	if err != nil {
		return "", err
	}
	next, err := r.Generate()
	if err != nil {
		return "", err
	}
	if err := r.RotateTo(ctx, db, userID, old, next); err != nil {
		return "", err
	}
	return next, nil
}
