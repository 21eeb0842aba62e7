package session

import (
	"context"
	"errors"
)

// Credentials exposes a session's tokens to the upstream API client.
type Credentials struct {
	store Store
	sid   string
}

func NewCredentials(store Store, sid string) *Credentials {
	return &Credentials{store: store, sid: sid}
}

func (c *Credentials) AccessToken(ctx context.Context) (string, error) {
	return c.get(ctx, KeyAccessToken)
}

func (c *Credentials) RefreshToken(ctx context.Context) (string, error) {
	return c.get(ctx, KeyRefreshToken)
}

func (c *Credentials) SetAccessToken(ctx context.Context, token string) error {
	return c.store.Set(ctx, c.sid, KeyAccessToken, token)
}

// ForceLogout clears both tokens and sets the auth flag to false.
func (c *Credentials) ForceLogout(ctx context.Context) error {
	for _, k := range []Key{KeyAccessToken, KeyRefreshToken} {
		if err := c.store.Delete(ctx, c.sid, k); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if err := c.store.Set(ctx, c.sid, KeyAuthenticated, "false"); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (c *Credentials) get(ctx context.Context, key Key) (string, error) {
	v, _, err := c.store.Get(ctx, c.sid, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
