package caller

import (
	"context"
	"sync"

	"veritas/pkg/platform/sentinel"
)

// MemoryStore keeps callers in process. It is the development and test
// default.
type MemoryStore struct {
	mu      sync.RWMutex
	byKeyID map[string]*Credential
	byName  map[string]*Credential
}

func NewMemoryStore(creds ...*Credential) *MemoryStore {
	s := &MemoryStore{
		byKeyID: make(map[string]*Credential),
		byName:  make(map[string]*Credential),
	}
	for _, c := range creds {
		s.Put(c)
	}
	return s
}

// Put inserts or replaces a credential.
func (s *MemoryStore) Put(c *Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.byKeyID[c.KeyID] = &cp
	s.byName[c.Name] = &cp
}

// Seed loads credentials when the store is empty.
func (s *MemoryStore) Seed(_ context.Context, creds []*Credential) error {
	s.mu.Lock()
	empty := len(s.byName) == 0
	s.mu.Unlock()
	if !empty {
		return nil
	}
	for _, c := range creds {
		s.Put(c)
	}
	return nil
}

func (s *MemoryStore) FindByKeyID(_ context.Context, keyID string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byKeyID[keyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) FindByName(_ context.Context, name string) (*Caller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byName[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := c.Caller
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Caller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Caller, 0, len(s.byName))
	for _, c := range s.byName {
		cp := c.Caller
		out = append(out, &cp)
	}
	return out, nil
}
