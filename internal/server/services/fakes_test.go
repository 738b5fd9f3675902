package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/loginsessions"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/google/uuid"
)

// memStore is an in-memory credential store. It is both the repository
// manager and the transactor: transactions are serialized and a failed one
// restores the snapshot taken when it started.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users   map[string]models.User
	sigs    map[string]string // user id -> signature
	refresh map[string]models.RefreshToken
	logins  map[string]models.LoginSession // user|ip|ua -> session

	// fail makes the named operation return failErr.
	fail    map[string]bool
	failErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]models.User{},
		sigs:    map[string]string{},
		refresh: map[string]models.RefreshToken{},
		logins:  map[string]models.LoginSession{},
		fail:    map[string]bool{},
	}
}

func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = true
	m.failErr = err
}

func (m *memStore) check(op string) error {
	if m.fail[op] {
		return m.failErr
	}
	return nil
}

type memSnapshot struct {
	users   map[string]models.User
	sigs    map[string]string
	refresh map[string]models.RefreshToken
	logins  map[string]models.LoginSession
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := memSnapshot{cloneMap(m.users), cloneMap(m.sigs), cloneMap(m.refresh), cloneMap(m.logins)}
	m.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		m.mu.Lock()
		m.users, m.sigs, m.refresh, m.logins = snap.users, snap.sigs, snap.refresh, snap.logins
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memStore) Users(dbx.DBTX) users.Repository               { return memUsers{m} }
func (m *memStore) Signatures(dbx.DBTX) signatures.Repository     { return memSigs{m} }
func (m *memStore) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return memRefresh{m}
}
func (m *memStore) LoginSessions(dbx.DBTX) loginsessions.Repository { return memLogins{m} }

func (m *memStore) refreshCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rt := range m.refresh {
		if rt.UserID == userID {
			n++
		}
	}
	return n
}

func (m *memStore) signature(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sigs[userID]
}

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("users.Create"); err != nil {
		return nil, err
	}
	for _, ex := range r.m.users {
		if ex.Username == u.Username || ex.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now()
	r.m.users[u.ID] = *u
	return u, nil
}

func (r memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("users.GetUserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r memUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[id]; ok {
		return &u, nil
	}
	return nil, common.ErrNotFound
}

func (r memUsers) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return common.ErrNotFound
	}
	u.LastLogin = &at
	r.m.users[id] = u
	return nil
}

type memSigs struct{ m *memStore }

func (r memSigs) Create(_ context.Context, userID, signature string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("signatures.Create"); err != nil {
		return err
	}
	if _, ok := r.m.sigs[userID]; ok {
		return common.ErrAlreadyExists
	}
	r.m.sigs[userID] = signature
	return nil
}

func (r memSigs) Current(_ context.Context, userID string) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sig, ok := r.m.sigs[userID]
	if !ok {
		return "", common.ErrNotFound
	}
	return sig, nil
}

func (r memSigs) Lock(ctx context.Context, userID string) (string, error) {
	return r.Current(ctx, userID)
}

func (r memSigs) Replace(_ context.Context, userID, old, next string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("signatures.Replace"); err != nil {
		return err
	}
	if cur, ok := r.m.sigs[userID]; !ok || cur != old {
		return common.ErrConflict
	}
	r.m.sigs[userID] = next
	return nil
}

type memRefresh struct{ m *memStore }

func (r memRefresh) Create(_ context.Context, t *models.RefreshToken) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("refresh.Create"); err != nil {
		return err
	}
	r.m.refresh[t.Token] = *t
	return nil
}

func (r memRefresh) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.refresh[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	delete(r.m.refresh, token)
	return &t, nil
}

func (r memRefresh) Delete(_ context.Context, token string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("refresh.Delete"); err != nil {
		return err
	}
	delete(r.m.refresh, token)
	return nil
}

func (r memRefresh) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("refresh.DeleteAllForUser"); err != nil {
		return 0, err
	}
	var n int64
	for k, t := range r.m.refresh {
		if t.UserID == userID {
			delete(r.m.refresh, k)
			n++
		}
	}
	return n, nil
}

type memLogins struct{ m *memStore }

func (r memLogins) Upsert(_ context.Context, s *models.LoginSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check("logins.Upsert"); err != nil {
		return err
	}
	key := s.UserID + "|" + s.IP + "|" + s.UserAgent
	if ex, ok := r.m.logins[key]; ok {
		s.ID = ex.ID
	} else if s.ID == "" {
		s.ID = uuid.NewString()
	}
	r.m.logins[key] = *s
	return nil
}

func (r memLogins) ListForUser(_ context.Context, userID string) ([]models.LoginSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.LoginSession
	for _, s := range r.m.logins {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastSeen.After(out[j].LastSeen) })
	return out, nil
}
