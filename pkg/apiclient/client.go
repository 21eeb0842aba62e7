package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-survey-console/pkg/jwt"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

// Credentials supplies and updates the tokens of one console session.
type Credentials interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetAccessToken(ctx context.Context, token string) error
	ForceLogout(ctx context.Context) error
}

type anonymous struct{}

func (anonymous) AccessToken(context.Context) (string, error)  { return "", nil }
func (anonymous) RefreshToken(context.Context) (string, error) { return "", nil }
func (anonymous) SetAccessToken(context.Context, string) error { return nil }
func (anonymous) ForceLogout(context.Context) error            { return nil }

// Anonymous is used for calls made before login (login itself, OTP reset).
var Anonymous Credentials = anonymous{}

// Observer receives request and refresh outcomes, for metrics.
type Observer interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
	ObserveRefresh(result string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, int, time.Duration) {}
func (nopObserver) ObserveRefresh(string)                    {}

const (
	DefaultTimeout     = 15 * time.Second
	DefaultRefreshPath = "/auth/token/refresh/"
	// Access tokens this close to expiry are refreshed before the call.
	DefaultRefreshSkew = 10 * time.Second
)

// Client talks to the upstream REST API. It is safe for concurrent use;
// bind it to a session with With.
type Client struct {
	baseURL     string
	http        *http.Client
	refreshPath string
	refreshSkew time.Duration
	group       singleflight.Group
	observer    Observer
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRefreshPath(p string) Option {
	return func(c *Client) { c.refreshPath = p }
}

func WithRefreshSkew(d time.Duration) Option {
	return func(c *Client) { c.refreshSkew = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		refreshPath: DefaultRefreshPath,
		refreshSkew: DefaultRefreshSkew,
		observer:    nopObserver{},
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// With binds the client to one session's credentials.
func (c *Client) With(creds Credentials) *Conn {
	if creds == nil {
		creds = Anonymous
	}
	return &Conn{client: c, creds: creds}
}

// Conn issues requests on behalf of one session.
type Conn struct {
	client *Client
	creds  Credentials
}

// File is one part of a multipart upload.
type File struct {
	Field    string
	Filename string
	Content  []byte
}

func (s *Conn) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return s.do(ctx, http.MethodGet, path, nil, "", out)
}

func (s *Conn) Post(ctx context.Context, path string, body, out any) error {
	return s.sendJSON(ctx, http.MethodPost, path, body, out)
}

func (s *Conn) Put(ctx context.Context, path string, body, out any) error {
	return s.sendJSON(ctx, http.MethodPut, path, body, out)
}

func (s *Conn) Patch(ctx context.Context, path string, body, out any) error {
	return s.sendJSON(ctx, http.MethodPatch, path, body, out)
}

func (s *Conn) Delete(ctx context.Context, path string) error {
	return s.do(ctx, http.MethodDelete, path, nil, "", nil)
}

// PutMultipart sends fields and files as multipart/form-data.
func (s *Conn) PutMultipart(ctx context.Context, path string, fields map[string]string, files []File, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return fmt.Errorf("create form file %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return fmt.Errorf("write form file %s: %w", f.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}
	return s.do(ctx, http.MethodPut, path, buf.Bytes(), w.FormDataContentType(), out)
}

func (s *Conn) sendJSON(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
	}
	return s.do(ctx, method, path, payload, "application/json", out)
}

// do sends the request, refreshing the access token at most once on a 401.
func (s *Conn) do(ctx context.Context, method, path string, payload []byte, contentType string, out any) error {
	c := s.client

	access, err := s.creds.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}

	if access != "" && jwt.ExpiresWithin(access, c.refreshSkew, c.now()) {
		if fresh, err := s.refresh(ctx); err == nil {
			access = fresh
		}
	}

	resp, body, err := c.send(ctx, method, path, payload, contentType, access)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && s.hasTokens(ctx, access) {
		fresh, err := s.refresh(ctx)
		if err != nil {
			return s.expire(ctx, path, err)
		}
		resp, body, err = c.send(ctx, method, path, payload, contentType, fresh)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return s.expire(ctx, path, errors.New("retry rejected"))
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: body}
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// hasTokens reports whether the session holds any token; anonymous calls
// get the upstream 401 as is.
func (s *Conn) hasTokens(ctx context.Context, access string) bool {
	if access != "" {
		return true
	}
	refresh, err := s.creds.RefreshToken(ctx)
	return err == nil && refresh != ""
}

func (s *Conn) expire(ctx context.Context, path string, cause error) error {
	s.client.logger.Warn("forcing logout after failed token refresh", "path", path, "err", cause)
	if err := s.creds.ForceLogout(ctx); err != nil {
		s.client.logger.Error("force logout failed", "err", err)
	}
	return ErrSessionExpired
}

// refresh exchanges the refresh token for a new access token. Concurrent
// refreshes of the same token share one upstream call.
func (s *Conn) refresh(ctx context.Context) (string, error) {
	c := s.client
	refreshToken, err := s.creds.RefreshToken(ctx)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		c.observer.ObserveRefresh("missing")
		return "", errors.New("no refresh token")
	}

	v, err, shared := c.group.Do(refreshToken, func() (any, error) {
		payload, _ := json.Marshal(map[string]string{"refresh": refreshToken})
		resp, body, err := c.send(ctx, http.MethodPost, c.refreshPath, payload, "application/json", "")
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusOK {
			return "", &APIError{Method: http.MethodPost, Path: c.refreshPath, Status: resp.StatusCode, Body: body}
		}
		var out struct {
			Access string `json:"access"`
		}
		if err := json.Unmarshal(body, &out); err != nil || out.Access == "" {
			return "", errors.New("refresh response carried no access token")
		}
		return out.Access, nil
	})
	if err != nil {
		c.observer.ObserveRefresh("failed")
		return "", err
	}
	if shared {
		c.observer.ObserveRefresh("shared")
	} else {
		c.observer.ObserveRefresh("ok")
	}

	access := v.(string)
	if err := s.creds.SetAccessToken(ctx, access); err != nil {
		return "", fmt.Errorf("store access token: %w", err)
	}
	return access, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, contentType, access string) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observer.ObserveRequest(method, 0, time.Since(start))
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observer.ObserveRequest(method, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	return resp, body, nil
}
