package confirm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("confirmation not found or expired")

// Action is the deferred side effect behind a confirmation prompt.
type Action func(ctx context.Context) (any, error)

// Pending is what the shell renders as a confirmation dialog.
type Pending struct {
	Token     string    `json:"confirm_token"`
	Prompt    string    `json:"prompt"`
	ExpiresAt time.Time `json:"expires_at"`
}

type entry struct {
	sid     string
	prompt  string
	action  Action
	expires time.Time
}

// Registry holds actions awaiting an explicit confirm. Each action runs at
// most once and only for the session that opened it.
type Registry struct {
	mu    sync.Mutex
	items map[string]*entry
	ttl   time.Duration
	now   func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		items: make(map[string]*entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *Registry) Open(sid, prompt string, action Action) Pending {
	token := uuid.NewString()
	expires := r.now().Add(r.ttl)
	r.mu.Lock()
	r.items[token] = &entry{sid: sid, prompt: prompt, action: action, expires: expires}
	r.mu.Unlock()
	return Pending{Token: token, Prompt: prompt, ExpiresAt: expires}
}

// Confirm runs the action. The token is consumed even if the action fails.
func (r *Registry) Confirm(ctx context.Context, sid, token string) (any, error) {
	e, err := r.take(sid, token)
	if err != nil {
		return nil, err
	}
	return e.action(ctx)
}

// Cancel discards the action without running it.
func (r *Registry) Cancel(sid, token string) bool {
	_, err := r.take(sid, token)
	return err == nil
}

// Sweep drops expired entries and returns how many were removed.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for token, e := range r.items {
		if now.After(e.expires) {
			delete(r.items, token)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) take(sid, token string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[token]
	if !ok || e.sid != sid {
		return nil, ErrNotFound
	}
	delete(r.items, token)
	if r.now().After(e.expires) {
		return nil, ErrNotFound
	}
	return e, nil
}
