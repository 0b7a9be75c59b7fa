package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a process-local PolicyStore used when no database is
// configured for tests and single-user runs.
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]*Policy
	nextID   int64
}

var _ PolicyStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty catalogue
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{policies: make(map[string]*Policy)}
}

func (m *MemoryStore) Save(_ context.Context, policy *Policy) error {
	if err := ValidateName(policy.Name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.policies[policy.Name]; ok {
		policy.ID = existing.ID
		policy.CreatedAt = existing.CreatedAt
	} else {
		m.nextID++
		policy.ID = m.nextID
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now

	stored := *policy
	m.policies[policy.Name] = &stored
	return nil
}

func (m *MemoryStore) Get(_ context.Context, name string) (*Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	policies := make([]*Policy, 0, len(m.policies))
	for _, p := range m.policies {
		out := *p
		policies = append(policies, &out)
	}
	sort.Slice(policies, func(i, j int) bool { return policies[i].Name < policies[j].Name })
	return policies, nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.policies[name]; !ok {
		return ErrNotFound
	}
	delete(m.policies, name)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
