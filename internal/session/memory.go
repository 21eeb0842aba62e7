package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	values  map[Key]string
	expires time.Time
}

// MemoryStore keeps sessions in process. Changes reach subscribers of this
// process only.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
	ttl      time.Duration
	now      func() time.Time

	subMu sync.Mutex
	subs  map[chan Change]struct{}
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		ttl:      ttl,
		now:      time.Now,
		subs:     make(map[chan Change]struct{}),
	}
}

func (m *MemoryStore) Create(ctx context.Context) (string, error) {
	sid := uuid.NewString()
	m.mu.Lock()
	m.sessions[sid] = &memoryEntry{values: map[Key]string{}, expires: m.deadline()}
	m.mu.Unlock()
	return sid, nil
}

func (m *MemoryStore) Exists(ctx context.Context, sid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lookup(sid)
	return ok, nil
}

func (m *MemoryStore) Get(ctx context.Context, sid string, key Key) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(sid)
	if !ok {
		return "", false, ErrNotFound
	}
	v, ok := e.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, sid string, key Key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	e, ok := m.lookup(sid)
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	e.values[key] = value
	m.mu.Unlock()

	m.publish(Change{SID: sid, Key: key, Value: value})
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sid string, key Key) error {
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	e, ok := m.lookup(sid)
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	_, had := e.values[key]
	delete(e.values, key)
	m.mu.Unlock()

	if had {
		m.publish(Change{SID: sid, Key: key, Deleted: true})
	}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, sid string) error {
	m.mu.Lock()
	_, ok := m.sessions[sid]
	delete(m.sessions, sid)
	m.mu.Unlock()

	if ok {
		m.publish(Change{SID: sid, Deleted: true})
	}
	return nil
}

func (m *MemoryStore) Snapshot(ctx context.Context, sid string) (map[Key]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(sid)
	if !ok {
		return nil, ErrNotFound
	}
	out := make(map[Key]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, 64)
	m.subMu.Lock()
	m.subs[ch] = struct{}{}
	m.subMu.Unlock()

	go func() {
		<-ctx.Done()
		m.subMu.Lock()
		delete(m.subs, ch)
		close(ch)
		m.subMu.Unlock()
	}()
	return ch, nil
}

// lookup returns a live entry and slides its expiry. Callers hold m.mu.
func (m *MemoryStore) lookup(sid string) (*memoryEntry, bool) {
	e, ok := m.sessions[sid]
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && m.now().After(e.expires) {
		delete(m.sessions, sid)
		return nil, false
	}
	e.expires = m.deadline()
	return e, true
}

func (m *MemoryStore) deadline() time.Time {
	return m.now().Add(m.ttl)
}

// publish never blocks; a subscriber with a full buffer misses the change.
func (m *MemoryStore) publish(c Change) {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for ch := range m.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
