package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/securehealth/identity/internal/core/domain"
	"github.com/securehealth/identity/internal/core/port"
	"github.com/securehealth/identity/internal/repository"
)

// memoryStore is a transactional in-memory stand-in for the postgres store. Writes made
// inside a failed transaction are discarded.
type memoryStore struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	sessions map[string]domain.Session
	txCount  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		accounts: make(map[string]domain.Account),
		sessions: make(map[string]domain.Session),
	}
}

func (m *memoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, stores port.Stores) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++

	accounts := make(map[string]domain.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	sessions := make(map[string]domain.Session, len(m.sessions))
	for k, v := range m.sessions {
		sessions[k] = v
	}

	if err := fn(ctx, port.Stores{
		Accounts: &memoryAccounts{rows: accounts},
		Sessions: &memorySessions{rows: sessions},
	}); err != nil {
		return err
	}

	m.accounts = accounts
	m.sessions = sessions
	return nil
}

func (m *memoryStore) account(email string) (domain.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			return a, true
		}
	}
	return domain.Account{}, false
}

func (m *memoryStore) putAccount(a domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

func (m *memoryStore) sessionList() []domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

type memoryAccounts struct {
	rows    map[string]domain.Account
	saveErr error
}

func (r *memoryAccounts) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	for _, a := range r.rows {
		if a.Email == email {
			found := a
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryAccounts) FindByID(_ context.Context, id string) (*domain.Account, error) {
	a, ok := r.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *memoryAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *memoryAccounts) Save(_ context.Context, account domain.Account) error {
	for id, a := range r.rows {
		if id != account.ID && a.Email == account.Email {
			return repository.ErrConflict
		}
	}
	r.rows[account.ID] = account
	return nil
}

type memorySessions struct {
	rows map[string]domain.Session
}

func (r *memorySessions) FindByHash(_ context.Context, hash string) (*domain.Session, error) {
	for _, s := range r.rows {
		if s.RefreshTokenHash == hash {
			found := s
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memorySessions) Save(_ context.Context, session domain.Session) error {
	r.rows[session.ID] = session
	return nil
}

// fakeHasher marks hashes with a prefix so tests can tell them apart from raw passwords.
type fakeHasher struct {
	mu       sync.Mutex
	verified []string
}

func (h *fakeHasher) Hash(password string) (string, error) {
	return "hashed$" + reverse(password), nil
}

func (h *fakeHasher) Verify(password, encoded string) (bool, error) {
	h.mu.Lock()
	h.verified = append(h.verified, encoded)
	h.mu.Unlock()
	return encoded == "hashed$"+reverse(password), nil
}

func (h *fakeHasher) verifyCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.verified)
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

type fakeIssuer struct {
	mu      sync.Mutex
	signErr error
	seq     int
	signed  []port.AccessClaims
}

func (f *fakeIssuer) SignAccessToken(subject string, claims port.AccessClaims, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signErr != nil {
		return "", f.signErr
	}
	f.seq++
	f.signed = append(f.signed, claims)
	return fmt.Sprintf("access-%s-%d", subject, f.seq), nil
}

func (f *fakeIssuer) RandomOpaqueToken(int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return fmt.Sprintf("refresh-%d", f.seq), nil
}

type sentOTP struct {
	email string
	code  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentOTP
}

func (f *fakeNotifier) SendOTP(_ context.Context, email, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentOTP{email: email, code: code})
	return f.err
}

func (f *fakeNotifier) last() (sentOTP, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentOTP{}, false
	}
	return f.sent[len(f.sent)-1], true
}

type fakeEvents struct {
	mu         sync.Mutex
	registered []domain.AccountRegisteredEvent
	locked     []domain.AccountLockedEvent
	created    []domain.SessionCreatedEvent
	revoked    []domain.SessionRevokedEvent
	err        error
}

func (f *fakeEvents) PublishAccountRegistered(_ context.Context, e domain.AccountRegisteredEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, e)
	return f.err
}

func (f *fakeEvents) PublishAccountLocked(_ context.Context, e domain.AccountLockedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = append(f.locked, e)
	return f.err
}

func (f *fakeEvents) PublishSessionCreated(_ context.Context, e domain.SessionCreatedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, e)
	return f.err
}

func (f *fakeEvents) PublishSessionRevoked(_ context.Context, e domain.SessionRevokedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, e)
	return f.err
}

type fakeMetrics struct {
	logins   map[string]int
	otp      map[string]int
	regs     map[string]int
	lockouts int
	created  map[string]int
	revoked  map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		logins:  map[string]int{},
		otp:     map[string]int{},
		regs:    map[string]int{},
		created: map[string]int{},
		revoked: map[string]int{},
	}
}

func (f *fakeMetrics) LoginAttempt(outcome string)    { f.logins[outcome]++ }
func (f *fakeMetrics) OTPVerification(outcome string) { f.otp[outcome]++ }
func (f *fakeMetrics) Registration(role string)       { f.regs[role]++ }
func (f *fakeMetrics) Lockout()                       { f.lockouts++ }
func (f *fakeMetrics) SessionCreated(source string)   { f.created[source]++ }
func (f *fakeMetrics) SessionRevoked(reason string)   { f.revoked[reason]++ }

type fakePasswordPolicy struct {
	minLength int
}

func (p fakePasswordPolicy) Validate(password string, _ ...string) error {
	if len(password) < p.minLength {
		return errors.New("too short")
	}
	return nil
}
