package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	domcheckout "example.com/storefront-checkout/app/internal/domain/checkout"
)

const defaultMaxRetries = 16

type slot = atomic.Pointer[domcheckout.State]

// MemoryStore keeps one atomically swapped snapshot per session. Writers
// never lock; a mutator that lost a race is re-run against the newer snapshot.
type MemoryStore struct {
	sessions   sync.Map // sessionID -> *slot
	maxRetries int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{maxRetries: defaultMaxRetries}
}

func (m *MemoryStore) load(sessionID string) (*slot, *domcheckout.State) {
	v, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, nil
	}
	p := v.(*slot)
	return p, p.Load()
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (domcheckout.State, error) {
	_, cur := m.load(sessionID)
	if cur == nil {
		return domcheckout.State{}, domcheckout.ErrSessionNotFound
	}
	return *cur, nil
}

// Put replaces the session whole, detaching any previous snapshot.
func (m *MemoryStore) Put(ctx context.Context, s domcheckout.State) error {
	next := s
	next.Version = 1
	if _, cur := m.load(s.SessionID); cur != nil {
		next.Version = cur.Version + 1
	}
	fresh := new(slot)
	fresh.Store(&next)
	if prev, loaded := m.sessions.Swap(s.SessionID, fresh); loaded {
		prev.(*slot).Store(nil)
	}
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, sessionID string, fn domcheckout.Mutator) (domcheckout.State, error) {
	p, _ := m.load(sessionID)
	if p == nil {
		return domcheckout.State{}, domcheckout.ErrSessionNotFound
	}
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return domcheckout.State{}, err
		}
		cur := p.Load()
		if cur == nil {
			return domcheckout.State{}, domcheckout.ErrSessionNotFound
		}
		next, err := fn(*cur)
		if err != nil {
			return domcheckout.State{}, err
		}
		next.SessionID = cur.SessionID
		next.Version = cur.Version + 1
		if p.CompareAndSwap(cur, &next) {
			return next, nil
		}
	}
	return domcheckout.State{}, domcheckout.ErrSessionConflict
}

// Delete empties the slot before dropping it so that an Update racing with it
// fails instead of writing into a detached snapshot.
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	v, ok := m.sessions.LoadAndDelete(sessionID)
	if !ok {
		return nil
	}
	v.(*slot).Store(nil)
	return nil
}

// Prune removes sessions untouched since before and reports how many went.
func (m *MemoryStore) Prune(before time.Time) int {
	removed := 0
	m.sessions.Range(func(key, value any) bool {
		cur := value.(*slot).Load()
		if cur == nil || cur.UpdatedAt.Before(before) {
			if m.sessions.CompareAndDelete(key, value) {
				value.(*slot).Store(nil)
				removed++
			}
		}
		return true
	})
	return removed
}
