package auth

import (
	"context"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yusf-1/zagrosexpress-main/internal/model"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

// In-memory repos with the same conditional-update semantics as the SQL ones.

type memCredentials struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]model.Credential
	order []uuid.UUID
}

func newMemCredentials() *memCredentials {
	return &memCredentials{byID: map[uuid.UUID]model.Credential{}}
}

func (m *memCredentials) add(password, label string, shared bool) model.Credential {
	c, err := m.Create(context.Background(), password, label, shared)
	if err != nil {
		panic(err)
	}
	return c
}

func (m *memCredentials) Create(_ context.Context, password, ownerLabel string, isShared bool) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Password == password {
			return model.Credential{}, repo.ErrDuplicatePassword
		}
	}
	now := time.Now()
	c := model.Credential{
		ID:         uuid.New(),
		Password:   password,
		OwnerLabel: ownerLabel,
		IsShared:   isShared,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.byID[c.ID] = c
	m.order = append(m.order, c.ID)
	return c, nil
}

func (m *memCredentials) GetByID(_ context.Context, id uuid.UUID) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return model.Credential{}, repo.ErrNotFound
	}
	return c, nil
}

func (m *memCredentials) GetByPassword(_ context.Context, password string) (model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if c.Password == password {
			return c, nil
		}
	}
	return model.Credential{}, repo.ErrNotFound
}

func (m *memCredentials) List(_ context.Context) ([]model.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Credential, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		if c, ok := m.byID[m.order[i]]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCredentials) update(id uuid.UUID, fn func(*model.Credential)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return repo.ErrNotFound
	}
	fn(&c)
	m.byID[id] = c
	return nil
}

func (m *memCredentials) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return m.update(id, func(c *model.Credential) { c.IsActive = active })
}

func (m *memCredentials) ResetBinding(_ context.Context, id uuid.UUID) error {
	return m.update(id, func(c *model.Credential) {
		c.BoundDevice = nil
		c.LastUsedAt = nil
	})
}

func (m *memCredentials) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memCredentials) ClaimDevice(_ context.Context, id uuid.UUID, deviceID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.IsShared || !c.IsActive || c.BoundDevice != nil {
		return false, nil
	}
	d := deviceID
	c.BoundDevice = &d
	c.LastUsedAt = &at
	m.byID[id] = c
	return true, nil
}

type memSessions struct {
	mu     sync.Mutex
	byHash map[string]model.Session
}

func newMemSessions() *memSessions {
	return &memSessions{byHash: map[string]model.Session{}}
}

func (m *memSessions) Create(_ context.Context, s model.Session) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	m.byHash[s.TokenHash] = s
	return s, nil
}

func (m *memSessions) FindActiveByTokenHash(_ context.Context, tokenHash string, now time.Time) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byHash[tokenHash]
	if !ok || !s.ExpiresAt.After(now) {
		return model.Session{}, repo.ErrNotFound
	}
	return s, nil
}

func (m *memSessions) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byHash, tokenHash)
	return nil
}

func (m *memSessions) DeleteByCredential(_ context.Context, credentialID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, s := range m.byHash {
		if s.CredentialID != nil && *s.CredentialID == credentialID {
			delete(m.byHash, h)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for h, s := range m.byHash {
		if !s.ExpiresAt.After(now) {
			delete(m.byHash, h)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byHash)
}

type memCodes struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.OneTimeCode
}

func newMemCodes() *memCodes {
	return &memCodes{byID: map[uuid.UUID]model.OneTimeCode{}}
}

func (m *memCodes) Replace(_ context.Context, phone, codeHashHex string, expiresAt time.Time) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.byID {
		if c.PhoneNumber == phone {
			delete(m.byID, id)
		}
	}
	hash, err := hex.DecodeString(codeHashHex)
	if err != nil {
		return uuid.Nil, err
	}
	c := model.OneTimeCode{
		ID:          uuid.New(),
		PhoneNumber: phone,
		CodeHash:    hash,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	m.byID[c.ID] = c
	return c.ID, nil
}

func (m *memCodes) GetLatestUnverified(_ context.Context, phone string) (model.OneTimeCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []model.OneTimeCode
	for _, c := range m.byID {
		if c.PhoneNumber == phone && !c.Verified {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return model.OneTimeCode{}, repo.ErrNotFound
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.After(pending[j].CreatedAt) })
	return pending[0], nil
}

func (m *memCodes) IncrementAttempts(_ context.Context, id uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.Verified {
		return 0, repo.ErrNotFound
	}
	c.Attempts++
	m.byID[id] = c
	return c.Attempts, nil
}

func (m *memCodes) MarkVerified(_ context.Context, id uuid.UUID, maxAttempts int, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok || c.Verified || c.Attempts >= maxAttempts || !c.ExpiresAt.After(now) {
		return false, nil
	}
	c.Verified = true
	m.byID[id] = c
	return true, nil
}

func (m *memCodes) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memCodes) DeleteExpiredUnverified(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.byID {
		if !c.Verified && !c.ExpiresAt.After(now) {
			delete(m.byID, id)
			n++
		}
	}
	return n, nil
}

func (m *memCodes) forPhone(phone string) []model.OneTimeCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OneTimeCode
	for _, c := range m.byID {
		if c.PhoneNumber == phone {
			out = append(out, c)
		}
	}
	return out
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, phone, body string) error {
	args := m.Called(ctx, phone, body)
	return args.Error(0)
}

// clock is a settable time source for services that take now func() time.Time
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
