package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go-survey-console/pkg/apiclient"
)

// API is the upstream connection of one session. *apiclient.Conn
// implements it.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
	PutMultipart(ctx context.Context, path string, fields map[string]string, files []apiclient.File, out any) error
}

var (
	ErrNoSurveySelected = errors.New("no survey selected")
	ErrInvalidGoodsType = errors.New("goods type must be article or pet")
	ErrIndexOutOfRange  = errors.New("entry does not exist")
)

// Failure is an upstream error paired with the message the user sees.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

// Status returns the upstream status, or 0 for transport errors.
func (f *Failure) Status() int {
	return apiclient.StatusOf(f.Err)
}

// fail wraps err with the server's message when it sent one, else fallback.
// Session expiry passes through untouched.
func fail(err error, fallback string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, apiclient.ErrSessionExpired) {
		return err
	}
	msg := fallback
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && len(strings.TrimSpace(string(apiErr.Body))) > 0 {
		msg = apiErr.Message()
	}
	return &Failure{Message: msg, Err: err}
}

// failField is like fail but only trusts one field of the body, for
// endpoints whose other shapes are not meant for users.
func failField(err error, field, fallback string) error {
	if err == nil || errors.Is(err, apiclient.ErrSessionExpired) {
		return err
	}
	msg := fallback
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		if m := apiErr.Field(field); m != "" {
			msg = m
		}
	}
	return &Failure{Message: msg, Err: err}
}

func failDetail(err error, fallback string) error {
	return failField(err, "detail", fallback)
}

// Rejection is a refusal decided locally; nothing was sent upstream.
type Rejection struct {
	Message string
}

func (r *Rejection) Error() string { return r.Message }

func reject(msg string) error {
	return &Rejection{Message: msg}
}
