package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// NewUser is the input of account creation.
type NewUser struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	RepeatPassword string
}

// Column widths of the users table, in characters.
const (
	maxUsernameLen = 100
	maxEmailLen    = 100
	maxFullNameLen = 512
)

func (n NewUser) validate() error {
	username := strings.TrimSpace(n.Username)
	if username == "" {
		return fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if utf8.RuneCountInString(username) > maxUsernameLen {
		return fmt.Errorf("%w: username longer than %d characters", common.ErrValidation, maxUsernameLen)
	}
	if utf8.RuneCountInString(n.Email) > maxEmailLen {
		return fmt.Errorf("%w: email longer than %d characters", common.ErrValidation, maxEmailLen)
	}
	addr, err := mail.ParseAddress(n.Email)
	if err != nil || addr.Address != n.Email {
		return fmt.Errorf("%w: invalid email %q", common.ErrValidation, n.Email)
	}
	if utf8.RuneCountInString(n.FullName) > maxFullNameLen {
		return fmt.Errorf("%w: full name longer than %d characters", common.ErrValidation, maxFullNameLen)
	}
	if n.Password == "" {
		return fmt.Errorf("%w: password is required", common.ErrValidation)
	}
	if n.Password != n.RepeatPassword {
		return fmt.Errorf("%w: passwords do not match", common.ErrValidation)
	}
	return nil
}

// UserService creates accounts and answers identity lookups.
type UserService struct {
	db         dbx.DBTX
	tx         dbx.Transactor
	repos      repomanager.RepositoryManager
	signatures *SignatureRegistry
	hasher     password.Hasher
	log        logging.Logger
}

func NewUserService(db dbx.DBTX, tx dbx.Transactor, repos repomanager.RepositoryManager,
	signatures *SignatureRegistry, hasher password.Hasher, log logging.Logger) *UserService {
	return &UserService{
		db:         db,
		tx:         tx,
		repos:      repos,
		signatures: signatures,
		hasher:     hasher,
		log:        log.With("module", "users"),
	}
}

// Create validates n and stores the user together with its first signature.
// Either both rows are written or neither. A username or email collision
// yields common.ErrAlreadyExists.
func (s *UserService) Create(ctx context.Context, n NewUser, superuser bool) (*models.User, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(n.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repos.Users(tx).Create(ctx, &models.User{
			Username:    strings.TrimSpace(n.Username),
			Email:       n.Email,
			FullName:    n.FullName,
			Password:    digest,
			IsSuperuser: superuser,
		})
		if err != nil {
			return err
		}
		if _, err := s.signatures.Create(ctx, tx, u.ID); err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		return nil, storeError(ctx, s.log, "create user", err)
	}

	s.log.Info(ctx, "user created", "user_id", created.ID, "superuser", superuser)
	return created, nil
}

func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := s.repos.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeError(ctx, s.log, "get user by email", err)
	}
	return u, nil
}

func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.repos.Users(s.db).GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(ctx, s.log, "get user by id", err)
	}
	return u, nil
}

// ListLogins returns the devices the user signed in from, newest first.
func (s *UserService) ListLogins(ctx context.Context, userID string) ([]models.LoginSession, error) {
	list, err := s.repos.LoginSessions(s.db).ListForUser(ctx, userID)
	if err != nil {
		return nil, storeError(ctx, s.log, "list logins", err)
	}
	return list, nil
}
