package service

import (
	"context"

	"go-survey-console/internal/nav"
	"go-survey-console/internal/rbac"
	"go-survey-console/internal/routes"
	"go-survey-console/internal/session"
	"go-survey-console/pkg/apiclient"
)

// Navigation is the payload the browser shell renders around every page,
// and what the websocket pushes when it changes.
type Navigation struct {
	Type        string       `json:"type"`
	Entries     []nav.Entry  `json:"entries"`
	Bottom      []nav.Entry  `json:"bottom"`
	Title       string       `json:"title"`
	Permissions rbac.SetView `json:"permissions"`
}

// ShellService ties a session id to its upstream connection, permission
// set and navigation.
type ShellService interface {
	Conn(sid string) *apiclient.Conn
	Permissions(ctx context.Context, sid string) rbac.Set
	Gate(ctx context.Context, sid, path string) routes.Decision
	Navigation(ctx context.Context, sid, path string) (*Navigation, error)
}

type shellService struct {
	client   *apiclient.Client
	store    session.Store
	resolver *rbac.Resolver
	gate     *routes.Gate
}

func NewShellService(client *apiclient.Client, store session.Store, resolver *rbac.Resolver, gate *routes.Gate) ShellService {
	return &shellService{client: client, store: store, resolver: resolver, gate: gate}
}

func (s *shellService) Conn(sid string) *apiclient.Conn {
	return s.client.With(session.NewCredentials(s.store, sid))
}

func (s *shellService) Permissions(ctx context.Context, sid string) rbac.Set {
	return s.resolver.Resolve(ctx, sid, s.Conn(sid))
}

// Gate evaluates one browser navigation from scratch.
func (s *shellService) Gate(ctx context.Context, sid, path string) routes.Decision {
	authenticated := sid != "" && session.IsAuthenticated(ctx, s.store, sid)
	d := s.gate.Evaluate(ctx, path, authenticated, func(ctx context.Context) rbac.Set {
		return s.Permissions(ctx, sid)
	})
	if d.State == routes.Authorized && d.Title == "" {
		selected, _ := session.GetString(ctx, s.store, sid, session.KeySelectedSurveyID)
		d.Title = s.gate.Table().Title(path, selected)
	}
	return d
}

func (s *shellService) Navigation(ctx context.Context, sid, path string) (*Navigation, error) {
	values, err := s.store.Snapshot(ctx, sid)
	if err != nil {
		return nil, err
	}
	perms := s.Permissions(ctx, sid)
	c := nav.Context{
		SelectedSurveyID: values[session.KeySelectedSurveyID],
		GoodsType:        values[session.KeyGoodsType],
	}
	return &Navigation{
		Type:        "navigation",
		Entries:     nav.Build(perms, c),
		Bottom:      nav.BuildBottom(perms),
		Title:       s.gate.Table().Title(path, c.SelectedSurveyID),
		Permissions: perms.View(),
	}, nil
}
