package session

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// exercise runs the behaviour every Store must share.
func exercise(t *testing.T, s Store) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	sid, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, _ := s.Exists(ctx, sid); !ok {
		t.Fatalf("created session does not exist")
	}

	if _, ok, err := s.Get(ctx, sid, KeyGoodsType); err != nil || ok {
		t.Fatalf("unset key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, sid, KeyGoodsType, "pet"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := s.Get(ctx, sid, KeyGoodsType); err != nil || !ok || v != "pet" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}

	select {
	case c := <-changes:
		if c.SID != sid || c.Key != KeyGoodsType || c.Value != "pet" {
			t.Fatalf("change = %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no change published")
	}

	if err := s.Set(ctx, sid, Key("bogus"), "x"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("unknown key err = %v", err)
	}
	if err := s.Set(ctx, "missing-sid", KeyGoodsType, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing session err = %v", err)
	}

	if err := Login(ctx, s, sid, "a1", "r1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !IsAuthenticated(ctx, s, sid) {
		t.Fatalf("not authenticated after Login")
	}
	if err := SetJSON(ctx, s, sid, KeyCurrentSurveyData, map[string]int{"id": 7}); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	var survey map[string]int
	if ok, err := GetJSON(ctx, s, sid, KeyCurrentSurveyData, &survey); err != nil || !ok || survey["id"] != 7 {
		t.Fatalf("GetJSON = %v %v %v", survey, ok, err)
	}

	snap, err := s.Snapshot(ctx, sid)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap[KeyAccessToken] != "a1" || snap[KeyGoodsType] != "pet" {
		t.Fatalf("Snapshot = %v", snap)
	}

	if err := Logout(ctx, s, sid); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if IsAuthenticated(ctx, s, sid) {
		t.Fatalf("still authenticated after Logout")
	}
	if v, _ := GetString(ctx, s, sid, KeyAccessToken); v != "" {
		t.Fatalf("access token survived Logout: %q", v)
	}
	if v, _ := GetString(ctx, s, sid, KeyGoodsType); v != "pet" {
		t.Fatalf("goods type lost on Logout: %q", v)
	}

	if err := s.Clear(ctx, sid); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ok, _ := s.Exists(ctx, sid); ok {
		t.Fatalf("cleared session still exists")
	}
	if IsAuthenticated(ctx, s, "") {
		t.Fatalf("empty sid authenticated")
	}
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemoryStore(time.Hour))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	exercise(t, NewRedisStore(client, time.Minute, nil))
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	ctx := context.Background()

	sid, _ := s.Create(ctx)
	now = now.Add(30 * time.Second)
	if ok, _ := s.Exists(ctx, sid); !ok {
		t.Fatalf("session expired early")
	}
	// The read above slid the deadline.
	now = now.Add(45 * time.Second)
	if ok, _ := s.Exists(ctx, sid); !ok {
		t.Fatalf("sliding expiry not applied")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := s.Exists(ctx, sid); ok {
		t.Fatalf("session outlived its TTL")
	}
	if _, _, err := s.Get(ctx, sid, KeyGoodsType); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after expiry err = %v", err)
	}
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)
	sid, _ := s.Create(ctx)
	if err := Login(ctx, s, sid, "a1", "r1"); err != nil {
		t.Fatal(err)
	}

	creds := NewCredentials(s, sid)
	if v, _ := creds.AccessToken(ctx); v != "a1" {
		t.Fatalf("AccessToken = %q", v)
	}
	if err := creds.SetAccessToken(ctx, "a2"); err != nil {
		t.Fatal(err)
	}
	if v, _ := creds.AccessToken(ctx); v != "a2" {
		t.Fatalf("AccessToken after refresh = %q", v)
	}
	if err := creds.ForceLogout(ctx); err != nil {
		t.Fatalf("ForceLogout: %v", err)
	}
	if v, _ := creds.RefreshToken(ctx); v != "" {
		t.Fatalf("refresh token survived: %q", v)
	}
	if IsAuthenticated(ctx, s, sid) {
		t.Fatalf("authenticated after ForceLogout")
	}

	gone := NewCredentials(s, "no-such-session")
	if v, err := gone.AccessToken(ctx); err != nil || v != "" {
		t.Fatalf("missing session = %q %v", v, err)
	}
	if err := gone.ForceLogout(ctx); err != nil {
		t.Fatalf("ForceLogout of missing session: %v", err)
	}
}
