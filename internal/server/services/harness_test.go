package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/blacklist"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/password"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

const (
	testSecret    = "test-secret"
	testAccessTTL = 15 * time.Minute
)

type harness struct {
	store    *memStore
	mr       *miniredis.Miniredis
	bl       *blacklist.RedisBlacklist
	issuer   *auth.Issuer
	hasher   *password.Argon2
	sigs     *SignatureRegistry
	users    *UserService
	sessions *SessionService
}

func testCookiePolicy() auth.CookiePolicy {
	return auth.CookiePolicy{
		Name:     common.DefaultAccessTokenCookieName,
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   testAccessTTL,
	}
}

func newTestHasher(t *testing.T) *password.Argon2 {
	t.Helper()
	h, err := password.NewArgon2(password.Params{Memory: 64, Time: 1, Parallelism: 1})
	require.NoError(t, err)
	return h
}

func newTestIssuer(t *testing.T) *auth.Issuer {
	t.Helper()
	iss, err := auth.NewIssuer([]byte(testSecret), "HS256", testAccessTTL, 14*24*time.Hour)
	require.NoError(t, err)
	return iss
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	h := &harness{
		store:  newMemStore(),
		mr:     mr,
		issuer: newTestIssuer(t),
		hasher: newTestHasher(t),
	}
	h.bl = blacklist.NewRedisBlacklist(rdb, common.BlacklistNamespace, testAccessTTL)
	h.sigs = NewSignatureRegistry(h.store)
	h.users = NewUserService(nil, h.store, h.store, h.sigs, h.hasher, logging.Nop{})
	h.sessions = h.sessionsWith(h.bl)
	return h
}

// sessionsWith builds a session service over the harness store that consults
// cache instead of the harness blacklist.
func (h *harness) sessionsWith(cache blacklist.Cache) *SessionService {
	return NewSessionService(SessionDeps{
		Tx:         h.store,
		Repos:      h.store,
		Users:      h.users,
		Signatures: h.sigs,
		Issuer:     h.issuer,
		Hasher:     h.hasher,
		Blacklist:  cache,
		Cookies:    testCookiePolicy(),
		Logger:     logging.Nop{},
	})
}

func (h *harness) cachedSuccessor(userID string) string {
	return h.mr.HGet(common.BlacklistNamespace+":blacklist:"+userID, "successor")
}

func newUserInput(name string) NewUser {
	return NewUser{
		Username:       name,
		Email:          name + "@x.com",
		Password:       "p",
		RepeatPassword: "p",
	}
}

func (h *harness) signup(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := h.sessions.Signup(context.Background(), newUserInput(name))
	require.NoError(t, err)
	return u
}

func (h *harness) signin(t *testing.T, name, ua string) *Session {
	t.Helper()
	s, err := h.sessions.Signin(context.Background(), name+"@x.com", "p", ClientInfo{IP: "10.0.0.1", UserAgent: ua})
	require.NoError(t, err)
	return s
}

func authClaims(userID string) auth.UserClaims {
	return auth.UserClaims{UserID: userID}
}
