package crud

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/pkg/apiclient"
	"go-survey-console/pkg/validator"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrRowNotFound     = errors.New("row not found")
	ErrNotEditable     = errors.New("category does not support editing")
)

// API is the subset of the upstream connection a page uses.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
}

// Record is a row exactly as the server returned it.
type Record map[string]any

// ID returns the record id as a string.
func (r Record) ID() string {
	return stringOf(r["id"])
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

// Banner is a transient page message.
type Banner struct {
	Kind      BannerKind `json:"kind"`
	Text      string     `json:"text"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Page is the state of one mounted list-and-form page. Collections are
// fetched once on mount and kept for the page's lifetime.
type Page struct {
	ID     string
	schema *Schema

	mu       sync.Mutex
	category string
	rows     map[string][]Record
	options  map[string][]model.Option
	form     map[string]string
	banner   *Banner
	now      func() time.Time

	// lastUsed is read by the sweeper without taking mu.
	lastUsed atomic.Int64
}

// Mount fetches every category and option source in parallel and waits for
// all of them. A failed fetch leaves an error banner, not an error.
func Mount(ctx context.Context, api API, schema *Schema, perms rbac.Set) (*Page, error) {
	return mount(ctx, api, schema, perms, time.Now)
}

func mount(ctx context.Context, api API, schema *Schema, perms rbac.Set, now func() time.Time) (*Page, error) {
	if err := perms.Require(schema.Page, model.ActionView); err != nil {
		return nil, err
	}
	if len(schema.Categories) == 0 {
		return nil, fmt.Errorf("schema %s: %w", schema.Key, ErrUnknownCategory)
	}

	p := &Page{
		ID:       uuid.NewString(),
		schema:   schema,
		category: schema.Categories[0].Key,
		rows:     make(map[string][]Record, len(schema.Categories)),
		options:  make(map[string][]model.Option, len(schema.Options)),
		now:      now,
	}
	p.lastUsed.Store(now().UnixNano())
	p.form = p.defaults()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for _, c := range schema.Categories {
		c := c
		g.Go(func() error {
			var rows []Record
			if err := api.Get(ctx, c.Endpoint, nil, &rows); err != nil {
				return fmt.Errorf("fetch %s: %w", c.Key, err)
			}
			if rows == nil {
				rows = []Record{}
			}
			mu.Lock()
			p.rows[c.Key] = rows
			mu.Unlock()
			return nil
		})
	}
	for _, o := range schema.Options {
		o := o
		g.Go(func() error {
			var rows []Record
			if err := api.Get(ctx, o.Endpoint, nil, &rows); err != nil {
				return fmt.Errorf("fetch %s: %w", o.Key, err)
			}
			opts := make([]model.Option, 0, len(rows))
			for _, r := range rows {
				opts = append(opts, model.Option{Value: r.ID(), Label: stringOf(r[o.LabelField])})
			}
			mu.Lock()
			p.options[o.Key] = opts
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, apiclient.ErrSessionExpired) {
			return nil, err
		}
		p.setBanner(BannerError, fmt.Sprintf("Failed to fetch %s. Please try again.", strings.ToLower(schema.Title)))
	}
	for _, c := range schema.Categories {
		if p.rows[c.Key] == nil {
			p.rows[c.Key] = []Record{}
		}
	}
	return p, nil
}

func (p *Page) Schema() *Schema {
	return p.schema
}

// Select switches the active category and resets the form.
func (p *Page) Select(category string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.schema.category(category); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	p.category = category
	p.form = p.defaults()
	p.touch()
	return nil
}

// Submit validates values, posts them to the active category and appends
// the server's record. The page is not locked while the POST is in flight.
func (p *Page) Submit(ctx context.Context, api API, perms rbac.Set, values map[string]string) (Record, error) {
	p.touch()
	if err := perms.Require(p.schema.Page, model.ActionAdd); err != nil {
		return nil, err
	}

	p.mu.Lock()
	c, _ := p.schema.category(p.category)
	payload, verr := p.validate(c, values)
	if verr != nil {
		p.form = mergeForm(p.form, values)
		p.mu.Unlock()
		return nil, verr
	}
	p.mu.Unlock()

	var created Record
	err := api.Post(ctx, c.Endpoint, payload, &created)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if p.category == c.Key {
			p.form = mergeForm(p.form, values)
		}
		p.failure(err, "save", c.Noun)
		return nil, err
	}
	p.rows[c.Key] = append(p.rows[c.Key], created)
	if p.category == c.Key {
		p.form = p.defaults()
	}
	p.setBanner(BannerSuccess, fmt.Sprintf("%s saved successfully!", capitalize(c.Noun)))
	return created, nil
}

// Update replaces a row of the active category with the server's version.
func (p *Page) Update(ctx context.Context, api API, perms rbac.Set, id string, values map[string]string) (Record, error) {
	p.touch()
	if err := perms.Require(p.schema.Page, model.ActionEdit); err != nil {
		return nil, err
	}

	p.mu.Lock()
	c, _ := p.schema.category(p.category)
	if c.UpdateMethod == "" {
		p.mu.Unlock()
		return nil, ErrNotEditable
	}
	if indexOf(p.rows[c.Key], id) < 0 {
		p.mu.Unlock()
		return nil, ErrRowNotFound
	}
	payload, verr := p.validate(c, values)
	p.mu.Unlock()
	if verr != nil {
		return nil, verr
	}

	var updated Record
	path := c.Endpoint + url.PathEscape(id) + "/"
	var err error
	if c.UpdateMethod == "PATCH" {
		err = api.Patch(ctx, path, payload, &updated)
	} else {
		err = api.Put(ctx, path, payload, &updated)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failure(err, "update", c.Noun)
		return nil, err
	}
	// the row may have been deleted while the request was in flight
	if idx := indexOf(p.rows[c.Key], id); idx >= 0 {
		p.rows[c.Key][idx] = updated
	}
	p.setBanner(BannerSuccess, fmt.Sprintf("%s updated successfully!", capitalize(c.Noun)))
	return updated, nil
}

// DeletePrompt is the confirmation text for deleting id from category.
func (p *Page) DeletePrompt(category, id string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.schema.category(category)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if indexOf(p.rows[c.Key], id) < 0 {
		return "", ErrRowNotFound
	}
	return c.deletePrompt(), nil
}

// Delete removes a row only after the server accepted the DELETE. Rows of
// child categories pointing at it are dropped with it.
func (p *Page) Delete(ctx context.Context, api API, perms rbac.Set, category, id string) error {
	p.touch()
	if err := perms.Require(p.schema.Page, model.ActionDelete); err != nil {
		return err
	}
	c, ok := p.schema.category(category)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}

	p.mu.Lock()
	found := indexOf(p.rows[c.Key], id) >= 0
	p.mu.Unlock()
	if !found {
		return ErrRowNotFound
	}

	err := api.Delete(ctx, c.Endpoint+url.PathEscape(id)+"/")

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		p.failure(err, "delete", c.Noun)
		return err
	}
	if idx := indexOf(p.rows[c.Key], id); idx >= 0 {
		rows := p.rows[c.Key]
		p.rows[c.Key] = append(rows[:idx:idx], rows[idx+1:]...)
	}
	for _, child := range p.schema.children(c.Key) {
		kept := p.rows[child.Key][:0:0]
		for _, r := range p.rows[child.Key] {
			if stringOf(r[child.Parent.Field]) != id {
				kept = append(kept, r)
			}
		}
		p.rows[child.Key] = kept
	}
	p.setBanner(BannerSuccess, fmt.Sprintf("%s deleted successfully!", capitalize(c.Noun)))
	return nil
}

// Row is the display projection of a record.
type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Parent      string `json:"parent,omitempty"`
	Children    int    `json:"children,omitempty"`
	Data        Record `json:"data"`
}

type CategoryView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Snapshot is everything the shell needs to render the page.
type Snapshot struct {
	ID         string                    `json:"id"`
	Schema     string                    `json:"schema"`
	Title      string                    `json:"title"`
	Category   string                    `json:"category"`
	Categories []CategoryView            `json:"categories"`
	Fields     []Field                   `json:"fields"`
	Form       map[string]string         `json:"form"`
	Rows       []Row                     `json:"rows"`
	Options    map[string][]model.Option `json:"options,omitempty"`
	Actions    model.Capabilities        `json:"actions"`
	Banner     *Banner                   `json:"banner,omitempty"`
}

// View renders the active category. Expired banners are dropped here.
func (p *Page) View(perms rbac.Set) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.banner != nil && p.now().After(p.banner.ExpiresAt) {
		p.banner = nil
	}

	c, _ := p.schema.category(p.category)
	snap := Snapshot{
		ID:       p.ID,
		Schema:   p.schema.Key,
		Title:    p.schema.Title,
		Category: c.Key,
		Fields:   p.schema.fieldsOf(c),
		Form:     copyForm(p.form),
		Rows:     p.rowsOf(c),
		Actions:  perms.Can(p.schema.Page),
	}
	for _, cat := range p.schema.Categories {
		snap.Categories = append(snap.Categories, CategoryView{Key: cat.Key, Label: cat.Label, Count: len(p.rows[cat.Key])})
	}
	if len(p.options) > 0 {
		snap.Options = make(map[string][]model.Option, len(p.options))
		for k, v := range p.options {
			snap.Options[k] = append([]model.Option(nil), v...)
		}
	}
	if p.banner != nil {
		b := *p.banner
		snap.Banner = &b
	}
	return snap
}

func (p *Page) rowsOf(c *Category) []Row {
	children := p.schema.children(c.Key)
	out := make([]Row, 0, len(p.rows[c.Key]))
	for _, r := range p.rows[c.Key] {
		row := Row{ID: r.ID(), Title: stringOf(r[c.titleField()]), Data: r}
		if c.DescriptionField != "" {
			row.Description = stringOf(r[c.DescriptionField])
			if row.Description == "" {
				row.Description = p.schema.EmptyDescription
			}
		}
		if c.Parent != nil {
			row.Parent = stringOf(r[c.Parent.Field])
		}
		for _, child := range children {
			for _, cr := range p.rows[child.Key] {
				if stringOf(cr[child.Parent.Field]) == row.ID {
					row.Children++
				}
			}
		}
		out = append(out, row)
	}
	return out
}

// validate checks values against the category's fields and builds the
// request payload. Callers hold p.mu.
func (p *Page) validate(c *Category, values map[string]string) (map[string]any, error) {
	fields := p.schema.fieldsOf(c)
	errs := map[string]string{}
	payload := make(map[string]any, len(fields))

	for _, f := range fields {
		raw := strings.TrimSpace(values[f.Name])
		if raw == "" {
			raw = f.Default
		}
		if f.Rules != "" && (raw != "" || strings.Contains(f.Rules, "required")) {
			if e := validator.ValidateVar(f.Label, raw, f.Rules); e != nil {
				errs[f.Name] = e.Message
				continue
			}
		}
		if f.Ref != "" && raw != "" && indexOf(p.rows[f.Ref], raw) < 0 {
			errs[f.Name] = fmt.Sprintf("Select a valid %s", strings.ToLower(f.Label))
			continue
		}
		if f.OptionsFrom != "" && raw != "" && !hasOption(p.options[f.OptionsFrom], raw) {
			errs[f.Name] = fmt.Sprintf("Select a valid %s", strings.ToLower(f.Label))
			continue
		}

		switch f.Kind {
		case KindInt:
			if raw == "" {
				continue
			}
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs[f.Name] = f.Label + " must be a number"
				continue
			}
			payload[f.Name] = n
		case KindBool:
			payload[f.Name] = raw == "true" || raw == "on" || raw == "1"
		default:
			payload[f.Name] = raw
		}
	}
	if len(errs) > 0 {
		return nil, validator.FieldErrors(errs)
	}
	return payload, nil
}

// failure sets an error banner, preferring the server's own message.
func (p *Page) failure(err error, verb, noun string) {
	msg := fmt.Sprintf("Failed to %s %s. Please try again.", verb, noun)
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && len(strings.TrimSpace(string(apiErr.Body))) > 0 {
		msg = apiErr.Message()
	}
	p.setBanner(BannerError, msg)
}

func (p *Page) setBanner(kind BannerKind, text string) {
	p.banner = &Banner{Kind: kind, Text: text, ExpiresAt: p.now().Add(p.schema.BannerTTL)}
}

func (p *Page) defaults() map[string]string {
	c, _ := p.schema.category(p.category)
	form := map[string]string{}
	for _, f := range p.schema.fieldsOf(c) {
		form[f.Name] = f.Default
	}
	return form
}

func (p *Page) touch() {
	p.lastUsed.Store(p.now().UnixNano())
}

func (p *Page) idleSince() time.Time {
	return time.Unix(0, p.lastUsed.Load())
}

func indexOf(rows []Record, id string) int {
	for i, r := range rows {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

func hasOption(opts []model.Option, v string) bool {
	for _, o := range opts {
		if o.Value == v {
			return true
		}
	}
	return false
}

func mergeForm(form map[string]string, values map[string]string) map[string]string {
	out := copyForm(form)
	for k := range out {
		if v, ok := values[k]; ok {
			out[k] = v
		}
	}
	return out
}

func copyForm(form map[string]string) map[string]string {
	out := make(map[string]string, len(form))
	for k, v := range form {
		out[k] = v
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
