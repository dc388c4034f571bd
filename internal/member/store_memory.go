package member

import (
	"context"
	"fmt"
	"sync"
	"time"

	"petmily/internal/provider"
	"petmily/pkg/sentinel"
)

// MemoryRepository stores members in memory for tests and development.
type MemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	members map[int64]*Member
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1, members: make(map[int64]*Member)}
}

func (r *MemoryRepository) FindByID(_ context.Context, id int64) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[id]
	if !ok || m.IsDeleted() {
		return nil, fmt.Errorf("member %d: %w", id, sentinel.ErrNotFound)
	}
	return copyMember(m), nil
}

func (r *MemoryRepository) FindByUUID(_ context.Context, uuid string) (*Member, error) {
	return r.findLive(func(m *Member) bool { return m.UUID == uuid })
}

func (r *MemoryRepository) FindByEmail(_ context.Context, email string) (*Member, error) {
	return r.findLive(func(m *Member) bool { return m.Email == email })
}

func (r *MemoryRepository) FindByPhoneNumber(_ context.Context, phone string) (*Member, error) {
	return r.findLive(func(m *Member) bool { return m.PhoneNumber == phone })
}

func (r *MemoryRepository) FindBySocialID(_ context.Context, p provider.Provider, externalID string) (*Member, error) {
	if externalID == "" {
		return nil, fmt.Errorf("empty external id: %w", sentinel.ErrNotFound)
	}
	return r.findLive(func(m *Member) bool { return m.SocialID(p) == externalID })
}

func (r *MemoryRepository) Save(_ context.Context, m *Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if m.ID == 0 {
		m.ID = r.nextID
		r.nextID++
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	r.members[m.ID] = copyMember(m)
	return nil
}

func (r *MemoryRepository) findLive(match func(*Member) bool) (*Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if !m.IsDeleted() && match(m) {
			return copyMember(m), nil
		}
	}
	return nil, fmt.Errorf("member: %w", sentinel.ErrNotFound)
}

func copyMember(m *Member) *Member {
	out := *m
	if m.DeletedAt != nil {
		t := *m.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}
