package identity

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store used for unit tests and store-less dev
// mode. It enforces the same write-time email uniqueness as the Mongo store.
type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Identity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Identity)}
}

func (m *MemoryStore) FindByID(ctx context.Context, id string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if ident, ok := m.byID[id]; ok {
		return clone(ident), nil
	}
	return nil, nil
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ident := range m.byID {
		if ident.HasEmail(email) {
			return clone(ident), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) FindByProvider(ctx context.Context, provider, providerUserID string) (*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ident := range m.byID {
		if l, ok := ident.OAuthLinks[provider]; ok && l.UserID == providerUserID {
			return clone(ident), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) Insert(ctx context.Context, ident *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkEmailsUnique(ident); err != nil {
		return err
	}
	m.byID[ident.ID] = clone(ident)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, ident *Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[ident.ID]; !ok {
		return ErrNoSuchUser
	}
	if err := m.checkEmailsUnique(ident); err != nil {
		return err
	}
	m.byID[ident.ID] = clone(ident)
	return nil
}

func (m *MemoryStore) List(ctx context.Context) ([]*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Identity, 0, len(m.byID))
	for _, ident := range m.byID {
		out = append(out, clone(ident))
	}
	return out, nil
}

func (m *MemoryStore) Search(ctx context.Context, query string) ([]*Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	out := []*Identity{}
	for _, ident := range m.byID {
		if strings.Contains(strings.ToLower(ident.DisplayName), q) {
			out = append(out, clone(ident))
			continue
		}
		for _, e := range ident.Emails {
			if strings.Contains(e, q) {
				out = append(out, clone(ident))
				break
			}
		}
	}
	return out, nil
}

// caller must hold the write lock
func (m *MemoryStore) checkEmailsUnique(ident *Identity) error {
	for _, other := range m.byID {
		if other.ID == ident.ID {
			continue
		}
		for _, e := range ident.Emails {
			if other.HasEmail(e) {
				return ErrEmailTaken
			}
		}
	}
	return nil
}

func clone(ident *Identity) *Identity {
	cp := *ident
	cp.Emails = append([]string(nil), ident.Emails...)
	if ident.PasswordHash != nil {
		cp.PasswordHash = append([]byte(nil), ident.PasswordHash...)
	}
	if ident.OAuthLinks != nil {
		cp.OAuthLinks = make(map[string]OAuthLink, len(ident.OAuthLinks))
		for k, v := range ident.OAuthLinks {
			cp.OAuthLinks[k] = v
		}
	}
	return &cp
}
