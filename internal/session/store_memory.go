package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and development. Expiry is
// checked lazily on read, mirroring how absence works in Redis.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type MemoryStoreOption func(*MemoryStore)

// WithClock injects the clock used for expiry checks.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) set(key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || s.now().After(e.expiresAt) {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) extend(key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || s.now().After(e.expiresAt) {
		return nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.entries[key] = e
	return nil
}

func memSetJSON[T any](s *MemoryStore, key string, rec T, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.set(key, string(data), ttl)
}

func memGetJSON[T any](s *MemoryStore, key string) (T, bool, error) {
	var rec T
	raw, ok, err := s.get(key)
	if err != nil || !ok {
		return rec, false, err
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, false, fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return rec, true, nil
}

func (s *MemoryStore) SetRefreshSession(_ context.Context, subject, token string, ttl time.Duration) error {
	return s.set(keyRefresh+subject, token, ttl)
}

func (s *MemoryStore) GetRefreshSession(_ context.Context, subject string) (string, bool, error) {
	return s.get(keyRefresh + subject)
}

func (s *MemoryStore) DeleteRefreshSession(_ context.Context, subject string) error {
	return s.delete(keyRefresh + subject)
}

func (s *MemoryStore) SetMemberID(_ context.Context, subject string, memberID int64, ttl time.Duration) error {
	return s.set(keyMemberID+subject, strconv.FormatInt(memberID, 10), ttl)
}

func (s *MemoryStore) GetMemberID(_ context.Context, subject string) (int64, bool, error) {
	raw, ok, err := s.get(keyMemberID + subject)
	if err != nil || !ok {
		return 0, false, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached member id: %w", err)
	}
	return id, true, nil
}

func (s *MemoryStore) DeleteMemberID(_ context.Context, subject string) error {
	return s.delete(keyMemberID + subject)
}

func (s *MemoryStore) SetSignupStaging(_ context.Context, correlationID string, rec SignupStaging, ttl time.Duration) error {
	return memSetJSON(s, keySignup+correlationID, rec, ttl)
}

func (s *MemoryStore) GetSignupStaging(_ context.Context, correlationID string) (SignupStaging, bool, error) {
	return memGetJSON[SignupStaging](s, keySignup+correlationID)
}

func (s *MemoryStore) DeleteSignupStaging(_ context.Context, correlationID string) error {
	return s.delete(keySignup + correlationID)
}

func (s *MemoryStore) SetPhoneCode(_ context.Context, phone string, rec PhoneCodeStaging, ttl time.Duration) error {
	return memSetJSON(s, keyPhoneCode+phone, rec, ttl)
}

func (s *MemoryStore) GetPhoneCode(_ context.Context, phone string) (PhoneCodeStaging, bool, error) {
	return memGetJSON[PhoneCodeStaging](s, keyPhoneCode+phone)
}

func (s *MemoryStore) DeletePhoneCode(_ context.Context, phone string) error {
	return s.delete(keyPhoneCode + phone)
}

func (s *MemoryStore) SetLinkStaging(_ context.Context, phone string, rec LinkStaging, ttl time.Duration) error {
	return memSetJSON(s, keyLinkStaging+phone, rec, ttl)
}

func (s *MemoryStore) GetLinkStaging(_ context.Context, phone string) (LinkStaging, bool, error) {
	return memGetJSON[LinkStaging](s, keyLinkStaging+phone)
}

func (s *MemoryStore) DeleteLinkStaging(_ context.Context, phone string) error {
	return s.delete(keyLinkStaging + phone)
}

func (s *MemoryStore) ExtendLinkStaging(_ context.Context, phone string, ttl time.Duration) error {
	return s.extend(keyLinkStaging+phone, ttl)
}

func (s *MemoryStore) MarkPhoneVerified(_ context.Context, phone string, ttl time.Duration) error {
	return s.set(keyPhoneVerified+phone, "1", ttl)
}

func (s *MemoryStore) IsPhoneVerified(_ context.Context, phone string) (bool, error) {
	_, ok, err := s.get(keyPhoneVerified + phone)
	return ok, err
}

func (s *MemoryStore) DeletePhoneVerified(_ context.Context, phone string) error {
	return s.delete(keyPhoneVerified + phone)
}
