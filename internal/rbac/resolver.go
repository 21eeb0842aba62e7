package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"go-survey-console/internal/model"

	"golang.org/x/sync/singleflight"
)

const (
	NoticeNoRole      = "No role assigned to this user."
	NoticeUnavailable = "Unable to load permissions. Some features may be hidden."
)

// Fetcher is the subset of the API connection the resolver needs.
type Fetcher interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Invalidation tells subscribers which sessions must re-resolve. SID is
// empty when every session was invalidated.
type Invalidation struct {
	SID string
}

// Resolver computes permission sets once per session and caches them until
// explicitly invalidated.
type Resolver struct {
	mu         sync.RWMutex
	cache      map[string]Set
	generation uint64
	group      singleflight.Group
	logger     *slog.Logger

	subMu sync.Mutex
	subs  map[chan Invalidation]struct{}
}

func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cache:  make(map[string]Set),
		logger: logger,
		subs:   make(map[chan Invalidation]struct{}),
	}
}

// Resolve returns the session's permission set. It never fails: errors
// become a zero set with a Notice.
func (r *Resolver) Resolve(ctx context.Context, sid string, api Fetcher) Set {
	r.mu.RLock()
	set, ok := r.cache[sid]
	gen := r.generation
	r.mu.RUnlock()
	if ok {
		return set
	}

	v, _, _ := r.group.Do(sid, func() (any, error) {
		set := r.fetch(ctx, api)
		if set.Err == nil {
			r.mu.Lock()
			// Skip caching if an invalidation ran while we were fetching.
			if r.generation == gen {
				r.cache[sid] = set
			}
			r.mu.Unlock()
		}
		return set, nil
	})
	return v.(Set)
}

func (r *Resolver) fetch(ctx context.Context, api Fetcher) Set {
	// 1. Load the profile
	var user model.User
	if err := api.Get(ctx, "/auth/profile/", nil, &user); err != nil {
		r.logger.Warn("permission resolution failed", "step", "profile", "err", err)
		return Set{Notice: NoticeUnavailable, Err: fmt.Errorf("fetch profile: %w", err)}
	}

	// 2. Superadmin short-circuit
	if user.IsSuperadmin() {
		return Set{Superadmin: true, User: &user}
	}

	// 3. No role means no permissions
	roleID := user.RoleID()
	if roleID == 0 {
		return Set{User: &user, Matrix: map[model.PageKey]model.Capabilities{}, Notice: NoticeNoRole}
	}

	// 4. Load the role's rows
	var role model.Role
	if err := api.Get(ctx, fmt.Sprintf("/auth/roles/%d/", roleID), nil, &role); err != nil {
		r.logger.Warn("permission resolution failed", "step", "role", "role_id", roleID, "err", err)
		return Set{User: &user, Notice: NoticeUnavailable, Err: fmt.Errorf("fetch role %d: %w", roleID, err)}
	}
	return Set{User: &user, Matrix: BuildMatrix(role.Permissions)}
}

// Invalidate drops one session's cached set, e.g. on logout.
func (r *Resolver) Invalidate(sid string) {
	r.mu.Lock()
	delete(r.cache, sid)
	r.generation++
	r.mu.Unlock()
	r.notify(Invalidation{SID: sid})
}

// InvalidateAll drops every cached set after a role, permission or user change.
func (r *Resolver) InvalidateAll() {
	r.mu.Lock()
	r.cache = make(map[string]Set)
	r.generation++
	r.mu.Unlock()
	r.notify(Invalidation{})
}

// Subscribe streams invalidations until ctx is done.
func (r *Resolver) Subscribe(ctx context.Context) <-chan Invalidation {
	ch := make(chan Invalidation, 16)
	r.subMu.Lock()
	r.subs[ch] = struct{}{}
	r.subMu.Unlock()
	go func() {
		<-ctx.Done()
		r.subMu.Lock()
		delete(r.subs, ch)
		close(ch)
		r.subMu.Unlock()
	}()
	return ch
}

func (r *Resolver) notify(inv Invalidation) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- inv:
		default:
		}
	}
}
