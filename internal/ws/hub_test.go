package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go-survey-console/internal/rbac"
	"go-survey-console/internal/session"
)

type fakeConn struct {
	mu sync.Mutex
	frames chan string
	broken bool
	closed int
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan string, 16)}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errors.New("broken pipe")
	}
	f.frames <- string(data)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) next(t *testing.T) map[string]string {
	t.Helper()
	select {
	case s := <-f.frames:
		var out map[string]string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			t.Fatalf("decode %q: %v", s, err)
		}
		return out
	case <-time.After(2 * time.Second):
		t.Fatalf("no frame pushed")
	}
	return nil
}

func (f *fakeConn) none(t *testing.T) {
	t.Helper()
	select {
	case s := <-f.frames:
		t.Fatalf("unexpected frame %s", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func echoBuild(_ context.Context, sid, path string) (any, error) {
	return map[string]string{"sid": sid, "path": path}, nil
}

func newHub() *Hub {
	return NewHub(echoBuild, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestJoinPushesImmediately(t *testing.T) {
	h := newHub()
	connected := 0
	h.OnConnect = func() { connected++ }

	conn := newFakeConn()
	h.Join(context.Background(), NewClient("s1", conn, "/enquiries"))

	if got := conn.next(t); got["sid"] != "s1" || got["path"] != "/enquiries" {
		t.Fatalf("frame = %v", got)
	}
	if h.Count("s1") != 1 || connected != 1 {
		t.Fatalf("count = %d connected = %d", h.Count("s1"), connected)
	}
}

func TestNotifyTargetsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHub()
	go h.Run(ctx)

	a, b := newFakeConn(), newFakeConn()
	ca := NewClient("s1", a, "/")
	h.Join(ctx, ca)
	h.Join(ctx, NewClient("s2", b, "/settings"))
	a.next(t)
	b.next(t)

	ca.SetPath("/survey/5/customer")
	h.Notify <- "s1"
	if got := a.next(t); got["path"] != "/survey/5/customer" {
		t.Fatalf("frame = %v", got)
	}
	b.none(t)

	// empty id refreshes everyone
	h.Notify <- ""
	a.next(t)
	b.next(t)
}

func TestWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHub()
	go h.Run(ctx)

	changes := make(chan session.Change)
	invalidations := make(chan rbac.Invalidation)
	go h.Watch(ctx, changes, invalidations)

	conn := newFakeConn()
	h.Join(ctx, NewClient("s1", conn, "/"))
	conn.next(t)

	changes <- session.Change{SID: "s1", Key: session.KeyAccessToken, Value: "a2"}
	conn.none(t)

	changes <- session.Change{SID: "s1", Key: session.KeySelectedSurveyID, Value: "5"}
	conn.next(t)

	changes <- session.Change{SID: "s1", Deleted: true}
	conn.next(t)

	invalidations <- rbac.Invalidation{SID: ""}
	conn.next(t)

	// a closed source does not stop the other one
	close(changes)
	invalidations <- rbac.Invalidation{SID: "s1"}
	conn.next(t)
}

func TestFailedWriteDropsClient(t *testing.T) {
	h := newHub()
	disconnected := 0
	h.OnDisconnect = func() { disconnected++ }

	conn := newFakeConn()
	c := NewClient("s1", conn, "/")
	h.Join(context.Background(), c)
	conn.next(t)

	conn.mu.Lock()
	conn.broken = true
	conn.mu.Unlock()
	h.Push(context.Background(), c)

	if h.Count("s1") != 0 {
		t.Fatalf("client kept after failed write")
	}
	h.Leave(c)
	if conn.closes() != 1 || disconnected != 1 {
		t.Fatalf("closes = %d disconnected = %d", conn.closes(), disconnected)
	}
}

func TestRunClosesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHub()
	conn := newFakeConn()
	h.Join(ctx, NewClient("s1", conn, "/"))
	conn.next(t)

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
	if conn.closes() != 1 || h.Count("s1") != 0 {
		t.Fatalf("closes = %d count = %d", conn.closes(), h.Count("s1"))
	}
}
