package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

type fakeCreds struct {
	mu          sync.Mutex
	access      string
	refresh     string
	loggedOut   bool
	accessWrite int
}

func (f *fakeCreds) AccessToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access, nil
}

func (f *fakeCreds) RefreshToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh, nil
}

func (f *fakeCreds) SetAccessToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = token
	f.accessWrite++
	return nil
}

func (f *fakeCreds) ForceLogout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = true
	f.access, f.refresh = "", ""
	return nil
}

// upstream accepts "Bearer fresh" on /data/ and issues "fresh" on refresh.
type upstream struct {
	refreshes  atomic.Int32
	refreshOK  bool
	refreshLag time.Duration
	seen       atomic.Value
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		u.refreshes.Add(1)
		time.Sleep(u.refreshLag)
		if !u.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["refresh"] == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"access":"fresh"}`))
	})
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		u.seen.Store(r.Header.Get("Authorization"))
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"name":"ok"}`))
	})
	return mux
}

func newTestClient(t *testing.T, u *upstream) *Client {
	t.Helper()
	srv := httptest.NewServer(u.handler())
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestGetWithValidToken(t *testing.T) {
	u := &upstream{refreshOK: true}
	creds := &fakeCreds{access: "fresh", refresh: "r1"}
	conn := newTestClient(t, u).With(creds)

	var out struct{ Name string }
	if err := conn.Get(context.Background(), "/data/", nil, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("decoded %+v", out)
	}
	if n := u.refreshes.Load(); n != 0 {
		t.Fatalf("refreshed %d times with a valid token", n)
	}
}

func TestRefreshOnceAndRetry(t *testing.T) {
	u := &upstream{refreshOK: true}
	creds := &fakeCreds{access: "stale", refresh: "r1"}
	conn := newTestClient(t, u).With(creds)

	var out struct{ Name string }
	if err := conn.Get(context.Background(), "/data/", nil, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("decoded %+v", out)
	}
	if creds.access != "fresh" {
		t.Fatalf("access token not stored, got %q", creds.access)
	}
	if n := u.refreshes.Load(); n != 1 {
		t.Fatalf("refreshes = %d, want 1", n)
	}
}

func TestRefreshFailureForcesLogout(t *testing.T) {
	u := &upstream{refreshOK: false}
	creds := &fakeCreds{access: "stale", refresh: "r1"}
	conn := newTestClient(t, u).With(creds)

	err := conn.Get(context.Background(), "/data/", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !creds.loggedOut {
		t.Fatalf("session was not logged out")
	}
	if Message(err) != SessionExpiredMessage {
		t.Fatalf("Message = %q", Message(err))
	}
}

func TestRetryRejectedForcesLogout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == DefaultRefreshPath {
			w.Write([]byte(`{"access":"also-bad"}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := &fakeCreds{access: "stale", refresh: "r1"}
	err := New(srv.URL).With(creds).Get(context.Background(), "/data/", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !creds.loggedOut {
		t.Fatalf("session was not logged out")
	}
}

func TestConcurrentRefreshIsShared(t *testing.T) {
	const callers = 5
	u := &upstream{refreshOK: true, refreshLag: 300 * time.Millisecond}
	creds := &fakeCreds{access: "stale", refresh: "r1"}
	client := newTestClient(t, u)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- client.With(creds).Get(context.Background(), "/data/", nil, nil)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if n := u.refreshes.Load(); n != 1 {
		t.Fatalf("refreshes = %d, want 1", n)
	}
}

func TestPreemptiveRefresh(t *testing.T) {
	u := &upstream{refreshOK: true}
	expiring, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"exp": time.Now().Add(2 * time.Second).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	creds := &fakeCreds{access: expiring, refresh: "r1"}
	if err := newTestClient(t, u).With(creds).Get(context.Background(), "/data/", nil, nil); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got := u.seen.Load(); got != "Bearer fresh" {
		t.Fatalf("upstream saw %v, want the refreshed token", got)
	}
}

func TestAnonymousDoesNotRefresh(t *testing.T) {
	u := &upstream{refreshOK: true}
	err := newTestClient(t, u).With(nil).Get(context.Background(), "/data/", nil, nil)
	if StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("err = %v, want a 401 APIError", err)
	}
	if got := u.seen.Load(); got != "" {
		t.Fatalf("anonymous call sent Authorization %q", got)
	}
	if n := u.refreshes.Load(); n != 0 {
		t.Fatalf("anonymous call refreshed")
	}
}

func TestPutMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			t.Errorf("image: %v", err)
			return
		}
		content, _ := io.ReadAll(f)
		json.NewEncoder(w).Encode(map[string]string{
			"name":     r.FormValue("name"),
			"filename": hdr.Filename,
			"content":  string(content),
		})
	}))
	defer srv.Close()

	var out map[string]string
	err := New(srv.URL).With(Anonymous).PutMultipart(context.Background(), "/auth/profile/",
		map[string]string{"name": "Ann"},
		[]File{{Field: "image", Filename: "me.png", Content: []byte("png")}},
		&out)
	if err != nil {
		t.Fatalf("PutMultipart: %v", err)
	}
	if out["name"] != "Ann" || out["filename"] != "me.png" || out["content"] != "png" {
		t.Fatalf("server saw %v", out)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", GenericMessage},
		{"plain text", "Bad Gateway", "Bad Gateway"},
		{"json string", `"Nope"`, "Nope"},
		{"error key", `{"error":"Enquiry not found"}`, "Enquiry not found"},
		{"detail key", `{"detail":"Not allowed"}`, "Not allowed"},
		{"non field errors", `{"non_field_errors":["a","b"]}`, "a, b"},
		{"field map", `{"email": ["taken"]}`, `{"email":["taken"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &APIError{Status: 400, Body: []byte(tt.body)}
			if got := e.Message(); got != tt.want {
				t.Fatalf("Message() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	notFound := &APIError{Status: 404, Body: []byte(`{"item_name":"exists"}`)}
	if !IsNotFound(notFound) {
		t.Fatalf("IsNotFound = false")
	}
	if notFound.Field("item_name") != "exists" || notFound.Field("missing") != "" {
		t.Fatalf("Field lookup wrong")
	}
	if StatusOf(errors.New("dial tcp")) != 0 {
		t.Fatalf("transport error should have status 0")
	}
	if Message(errors.New("dial tcp")) != GenericMessage {
		t.Fatalf("transport error message")
	}
}

func TestMissingAccessTokenRefreshes(t *testing.T) {
	u := &upstream{refreshOK: true}
	creds := &fakeCreds{refresh: "r1"}
	var out struct{ Name string }
	if err := newTestClient(t, u).With(creds).Get(context.Background(), "/data/", nil, &out); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Name != "ok" || u.refreshes.Load() != 1 {
		t.Fatalf("out = %+v refreshes = %d", out, u.refreshes.Load())
	}
	if access, _ := creds.AccessToken(context.Background()); access != "fresh" {
		t.Fatalf("access = %q", access)
	}
}

func TestMissingAccessTokenExpires(t *testing.T) {
	u := &upstream{refreshOK: false}
	creds := &fakeCreds{refresh: "r1"}
	err := newTestClient(t, u).With(creds).Get(context.Background(), "/data/", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if !creds.loggedOut {
		t.Fatalf("session was not logged out")
	}
}
