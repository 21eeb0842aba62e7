package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Key is one of the persisted per-session values.
type Key string

const (
	KeyAuthenticated     Key = "isAuthenticated"
	KeyAccessToken       Key = "access_token"
	KeyRefreshToken      Key = "refresh_token"
	KeySelectedSurveyID  Key = "selectedSurveyId"
	KeyGoodsType         Key = "goodsType"
	KeyCurrentSurveyData Key = "currentSurveyData"
)

// Keys lists every key a session may hold.
var Keys = []Key{
	KeyAuthenticated,
	KeyAccessToken,
	KeyRefreshToken,
	KeySelectedSurveyID,
	KeyGoodsType,
	KeyCurrentSurveyData,
}

func (k Key) Valid() bool {
	for _, known := range Keys {
		if k == known {
			return true
		}
	}
	return false
}

var (
	ErrUnknownKey = errors.New("unknown session key")
	ErrNotFound   = errors.New("session not found")
)

// Change is published after every write. Key is empty when the whole
// session was cleared.
type Change struct {
	SID     string `json:"sid"`
	Key     Key    `json:"key,omitempty"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// Store is the single source of truth for per-session state. Writes are
// last-writer-wins.
type Store interface {
	Create(ctx context.Context) (string, error)
	Exists(ctx context.Context, sid string) (bool, error)
	Get(ctx context.Context, sid string, key Key) (string, bool, error)
	Set(ctx context.Context, sid string, key Key, value string) error
	Delete(ctx context.Context, sid string, key Key) error
	Clear(ctx context.Context, sid string) error
	Snapshot(ctx context.Context, sid string) (map[Key]string, error)
	// Subscribe streams changes of every session until ctx is done.
	Subscribe(ctx context.Context) (<-chan Change, error)
}

func checkKey(key Key) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	return nil
}

// IsAuthenticated reads the auth flag; missing sessions are unauthenticated.
func IsAuthenticated(ctx context.Context, s Store, sid string) bool {
	if sid == "" {
		return false
	}
	v, ok, err := s.Get(ctx, sid, KeyAuthenticated)
	return err == nil && ok && v == "true"
}

// GetString returns the value or "" when unset.
func GetString(ctx context.Context, s Store, sid string, key Key) (string, error) {
	v, _, err := s.Get(ctx, sid, key)
	return v, err
}

func GetJSON(ctx context.Context, s Store, sid string, key Key, out any) (bool, error) {
	v, ok, err := s.Get(ctx, sid, key)
	if err != nil || !ok || v == "" {
		return false, err
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func SetJSON(ctx context.Context, s Store, sid string, key Key, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, sid, key, string(b))
}

// Login marks the session authenticated with a fresh token pair.
func Login(ctx context.Context, s Store, sid, access, refresh string) error {
	if err := s.Set(ctx, sid, KeyAccessToken, access); err != nil {
		return err
	}
	if err := s.Set(ctx, sid, KeyRefreshToken, refresh); err != nil {
		return err
	}
	return s.Set(ctx, sid, KeyAuthenticated, "true")
}

// Logout drops the tokens and the survey selection and lowers the auth flag.
func Logout(ctx context.Context, s Store, sid string) error {
	for _, k := range []Key{KeyAccessToken, KeyRefreshToken, KeySelectedSurveyID, KeyCurrentSurveyData} {
		if err := s.Delete(ctx, sid, k); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if err := s.Set(ctx, sid, KeyAuthenticated, "false"); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}
