package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Column widths of users_logins.
const (
	maxIPLen        = 120
	maxUserAgentLen = 150
)

// ClientInfo identifies the device a signin comes from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Session is the outcome of a signin or refresh: the new token pair and the
// cookie the transport must set.
type Session struct {
	UserID string
	Tokens *auth.Pair
	Cookie *http.Cookie
}

// SessionDeps bundles the collaborators of SessionService.
type SessionDeps struct {
	DB         dbx.DBTX
	Tx         dbx.Transactor
	Repos      repomanager.RepositoryManager
	Users      *UserService
	Signatures *SignatureRegistry
	Issuer     *auth.Issuer
	Hasher     password.Hasher
	Blacklist  blacklist.Cache
	Cookies    auth.CookiePolicy
	Logger     logging.Logger
}

type SessionService struct {
	db         dbx.DBTX
	tx         dbx.Transactor
	repos      repomanager.RepositoryManager
	users      *UserService
	signatures *SignatureRegistry
	issuer     *auth.Issuer
	hasher     password.Hasher
	blacklist  blacklist.Cache
	cookies    auth.CookiePolicy
	log        logging.Logger
	now        func() time.Time

	dummyOnce   sync.Once
	dummyDigest string
}

func NewSessionService(d SessionDeps) *SessionService {
	return &SessionService{
		db:         d.DB,
		tx:         d.Tx,
		repos:      d.Repos,
		users:      d.Users,
		signatures: d.Signatures,
		issuer:     d.Issuer,
		hasher:     d.Hasher,
		blacklist:  d.Blacklist,
		cookies:    d.Cookies,
		log:        d.Logger.With("module", "sessions"),
		now:        time.Now,
	}
}

// Signup creates a regular (non-superuser) account.
func (s *SessionService) Signup(ctx context.Context, n NewUser) (*models.User, error) {
	return s.users.Create(ctx, n, false)
}

// Signin checks the credentials and opens a session. An unknown email and a
// wrong password both yield common.ErrNotFound.
func (s *SessionService) Signin(ctx context.Context, email, plain string, client ClientInfo) (*Session, error) {
	user, err := s.repos.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.burnPasswordCheck(plain)
		}
		return nil, storeError(ctx, s.log, "signin lookup", err)
	}

	ok, err := s.hasher.Verify(plain, user.Password)
	if err != nil {
		s.log.Warn(ctx, "unreadable password digest", "user_id", user.ID, "err", err)
	}
	if !ok {
		return nil, common.ErrNotFound
	}

	now := s.now()
	var pair *auth.Pair
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		login := &models.LoginSession{
			UserID:    user.ID,
			IP:        truncate(client.IP, maxIPLen),
			UserAgent: truncate(client.UserAgent, maxUserAgentLen),
			LastSeen:  now,
		}
		if err := s.repos.LoginSessions(tx).Upsert(ctx, login); err != nil {
			return err
		}
		if err := s.repos.Users(tx).TouchLastLogin(ctx, user.ID, now); err != nil {
			return err
		}
		var err error
		pair, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, storeError(ctx, s.log, "signin", err)
	}

	s.log.Info(ctx, "signin", "user_id", user.ID, "ip", client.IP)
	return s.session(user.ID, pair), nil
}

// Verify reports whether accessToken may be used. It never fails: any
// decoding problem is a false. A blacklist outage is logged and ignored.
func (s *SessionService) Verify(ctx context.Context, accessToken string) bool {
	_, _, err := s.authenticate(ctx, accessToken)
	return err == nil
}

// RefreshTokens consumes refreshToken and issues a new pair. A token can be
// consumed once; later attempts, including concurrent ones, get
// common.ErrTokenNotFound.
func (s *SessionService) RefreshTokens(ctx context.Context, refreshToken string) (*Session, error) {
	rid, _, err := s.issuer.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	var (
		pair   *auth.Pair
		userID string
	)
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		consumed, err := s.repos.RefreshTokens(tx).Consume(ctx, rid)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrTokenNotFound
			}
			return err
		}
		user, err := s.repos.Users(tx).GetUserByID(ctx, consumed.UserID)
		if err != nil {
			return err
		}
		userID = user.ID
		pair, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, storeError(ctx, s.log, "refresh", err)
	}

	s.log.Debug(ctx, "tokens refreshed", "user_id", userID)
	return s.session(userID, pair), nil
}

// Logout forgets the refresh token. The returned cookie clears the access
// token and is valid even when an error is returned. Logging out an unknown
// or already used token is not an error.
func (s *SessionService) Logout(ctx context.Context, refreshToken string) (*http.Cookie, error) {
	cookie := s.cookies.Clear()

	rid, err := auth.ExtractCorrelationID(refreshToken)
	if err != nil {
		return cookie, err
	}
	if err := s.repos.RefreshTokens(s.db).Delete(ctx, rid); err != nil {
		return cookie, storeError(ctx, s.log, "logout", err)
	}
	return cookie, nil
}

// LogoutAll revokes every access and refresh token of the owner of
// accessToken. The user's signature row stays locked from the check until the
// rotation commits, and the blacklist entry is written under that lock before
// the signature is replaced. A concurrent LogoutAll that lost the race sees a
// moved signature and gets common.ErrInvalidToken without touching the
// blacklist, so the cached successor always matches the stored signature.
func (s *SessionService) LogoutAll(ctx context.Context, accessToken string) (*http.Cookie, error) {
	claims, oldSig, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	cookie := s.cookies.Clear()

	next, err := s.signatures.Generate()
	if err != nil {
		return cookie, err
	}

	var revoked int64
	err = s.tx.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		cur, err := s.signatures.Lock(ctx, tx, claims.UserID)
		if err != nil {
			return err
		}
		if cur != oldSig {
			return fmt.Errorf("%w: signature already rotated", common.ErrInvalidToken)
		}

		if err := s.blacklist.Deny(ctx, claims.UserID, oldSig, next); err != nil {
			s.log.Error(ctx, "blacklist write failed", "user_id", claims.UserID, "err", err)
			return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
		}

		if err := s.signatures.RotateTo(ctx, tx, claims.UserID, oldSig, next); err != nil {
			if errors.Is(err, common.ErrConflict) {
				return fmt.Errorf("%w: signature already rotated", common.ErrInvalidToken)
			}
			return err
		}
		revoked, err = s.repos.RefreshTokens(tx).DeleteAllForUser(ctx, claims.UserID)
		return err
	})
	if err != nil {
		return cookie, storeError(ctx, s.log, "logout all", err)
	}

	s.log.Info(ctx, "logout everywhere", "user_id", claims.UserID, "refresh_tokens_revoked", revoked)
	return cookie, nil
}

// CurrentUser resolves an access token to its user.
func (s *SessionService) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	claims, _, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.users.GetUserByID(ctx, claims.UserID)
}

// Logins lists the devices the owner of accessToken signed in from, newest
// first.
func (s *SessionService) Logins(ctx context.Context, accessToken string) ([]models.LoginSession, error) {
	claims, _, err := s.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return s.users.ListLogins(ctx, claims.UserID)
}

// authenticate decodes accessToken and checks it against the blacklist.
func (s *SessionService) authenticate(ctx context.Context, accessToken string) (*auth.AccessClaims, string, error) {
	claims, sig, err := s.issuer.DecodeAccess(accessToken)
	if err != nil {
		return nil, "", err
	}
	denied, err := s.blacklist.IsDenied(ctx, claims.UserID, sig)
	if err != nil {
		s.log.Warn(ctx, "blacklist unavailable, allowing token", "user_id", claims.UserID, "err", err)
		return claims, sig, nil
	}
	if denied {
		return nil, "", fmt.Errorf("%w: revoked", common.ErrInvalidToken)
	}
	return claims, sig, nil
}

// issue mints a pair stamped with the user's current signature and stores
// the refresh record.
func (s *SessionService) issue(ctx context.Context, tx dbx.DBTX, user *models.User) (*auth.Pair, error) {
	sig, err := s.signatures.Current(ctx, tx, user.ID)
	if err != nil {
		return nil, err
	}

	pair, err := s.issuer.MintPair(auth.UserClaims{
		UserID:      user.ID,
		Username:    user.Username,
		IsSuperuser: user.IsSuperuser,
	}, sig, uuid.NewString())
	if err != nil {
		return nil, err
	}

	if err := s.repos.RefreshTokens(tx).Create(ctx, &models.RefreshToken{
		Token:     pair.RefreshID,
		UserID:    user.ID,
		ExpiresAt: pair.RefreshExpiresAt,
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *SessionService) session(userID string, pair *auth.Pair) *Session {
	return &Session{
		UserID: userID,
		Tokens: pair,
		Cookie: s.cookies.Set(pair.Access),
	}
}

// burnPasswordCheck spends the same work as a real password check so an
// unknown email takes as long as a wrong password.
func (s *SessionService) burnPasswordCheck(plain string) {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash(uuid.NewString())
	})
	if s.dummyDigest != "" {
		_, _ = s.hasher.Verify(plain, s.dummyDigest)
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
