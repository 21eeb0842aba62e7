package service

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"go-survey-console/pkg/apiclient"
)

// call is one request the fake upstream received.
type call struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// fakeAPI answers from canned JSON keyed "METHOD path". Writes without a
// canned response echo their body.
type fakeAPI struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     []call
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: map[string]string{}, errs: map[string]error{}}
}

func (f *fakeAPI) on(method, path, body string) *fakeAPI {
	f.responses[method+" "+path] = body
	return f
}

func (f *fakeAPI) errOn(method, path string, err error) *fakeAPI {
	f.errs[method+" "+path] = err
	return f
}

func (f *fakeAPI) do(method, path string, query url.Values, body, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{Method: method, Path: path, Query: query, Body: body})
	err := f.errs[method+" "+path]
	resp, ok := f.responses[method+" "+path]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if !ok {
		if method == "GET" {
			resp = "[]"
		} else {
			b, _ := json.Marshal(body)
			resp = string(b)
		}
	}
	return json.Unmarshal([]byte(resp), out)
}

func (f *fakeAPI) Get(_ context.Context, path string, query url.Values, out any) error {
	return f.do("GET", path, query, nil, out)
}

func (f *fakeAPI) Post(_ context.Context, path string, body, out any) error {
	return f.do("POST", path, nil, body, out)
}

func (f *fakeAPI) Put(_ context.Context, path string, body, out any) error {
	return f.do("PUT", path, nil, body, out)
}

func (f *fakeAPI) Patch(_ context.Context, path string, body, out any) error {
	return f.do("PATCH", path, nil, body, out)
}

func (f *fakeAPI) Delete(_ context.Context, path string) error {
	return f.do("DELETE", path, nil, nil, nil)
}

func (f *fakeAPI) PutMultipart(_ context.Context, path string, fields map[string]string, files []apiclient.File, out any) error {
	return f.do("PUT", path, nil, map[string]any{"fields": fields, "files": len(files)}, out)
}

// sent returns the calls matching method and path.
func (f *fakeAPI) sent(method, path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
