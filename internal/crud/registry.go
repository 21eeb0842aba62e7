package crud

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-survey-console/internal/rbac"
)

var (
	ErrUnknownSchema = errors.New("unknown page schema")
	ErrPageNotFound  = errors.New("page not mounted")
)

// Registry owns the mounted pages of every session. Pages idle longer than
// the TTL are unmounted by Run.
type Registry struct {
	schemas map[string]*Schema
	order   []string
	ttl     time.Duration

	mu    sync.Mutex
	pages map[string]*mounted

	// OnMutate runs after a successful write on a schema that affects
	// permissions.
	OnMutate func(schema *Schema)
	// Observe receives the outcome of every page operation.
	Observe func(schema, op string, err error)
}

type mounted struct {
	sid  string
	page *Page
}

func NewRegistry(schemas []*Schema, ttl time.Duration) *Registry {
	r := &Registry{
		schemas: make(map[string]*Schema, len(schemas)),
		ttl:     ttl,
		pages:   make(map[string]*mounted),
	}
	for _, s := range schemas {
		r.schemas[s.Key] = s
		r.order = append(r.order, s.Key)
	}
	return r
}

func (r *Registry) Schema(key string) (*Schema, bool) {
	s, ok := r.schemas[key]
	return s, ok
}

// Schemas returns every schema in registration order.
func (r *Registry) Schemas() []*Schema {
	out := make([]*Schema, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.schemas[k])
	}
	return out
}

// Mount fetches a fresh page for sid.
func (r *Registry) Mount(ctx context.Context, sid, schema string, api API, perms rbac.Set) (*Page, error) {
	s, ok := r.schemas[schema]
	if !ok {
		return nil, ErrUnknownSchema
	}
	p, err := Mount(ctx, api, s, perms)
	r.observe(schema, "mount", err)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.pages[p.ID] = &mounted{sid: sid, page: p}
	r.mu.Unlock()
	return p, nil
}

// Page returns a page mounted by sid. Pages of other sessions are invisible.
func (r *Registry) Page(sid, id string) (*Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.pages[id]
	if !ok || m.sid != sid {
		return nil, ErrPageNotFound
	}
	return m.page, nil
}

// Submit, Update and Delete wrap the page operations with observation and
// the permission hook.
func (r *Registry) Submit(ctx context.Context, p *Page, api API, perms rbac.Set, values map[string]string) (Record, error) {
	rec, err := p.Submit(ctx, api, perms, values)
	r.after(p.schema, "create", err)
	return rec, err
}

func (r *Registry) Update(ctx context.Context, p *Page, api API, perms rbac.Set, id string, values map[string]string) (Record, error) {
	rec, err := p.Update(ctx, api, perms, id, values)
	r.after(p.schema, "update", err)
	return rec, err
}

func (r *Registry) Delete(ctx context.Context, p *Page, api API, perms rbac.Set, category, id string) error {
	err := p.Delete(ctx, api, perms, category, id)
	r.after(p.schema, "delete", err)
	return err
}

func (r *Registry) Unmount(sid, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.pages[id]
	if !ok || m.sid != sid {
		return false
	}
	delete(r.pages, id)
	return true
}

// UnmountSession drops every page of sid, e.g. on logout.
func (r *Registry) UnmountSession(sid string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, m := range r.pages {
		if m.sid == sid {
			delete(r.pages, id)
			n++
		}
	}
	return n
}

// Sweep unmounts pages idle since before now minus the TTL.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, m := range r.pages {
		if now.Sub(m.page.idleSince()) > r.ttl {
			delete(r.pages, id)
			n++
		}
	}
	return n
}

func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

func (r *Registry) after(s *Schema, op string, err error) {
	r.observe(s.Key, op, err)
	if err == nil && s.AffectsPermissions && r.OnMutate != nil {
		r.OnMutate(s)
	}
}

func (r *Registry) observe(schema, op string, err error) {
	if r.Observe != nil {
		r.Observe(schema, op, err)
	}
}
