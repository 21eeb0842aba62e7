package service

import (
	"context"
	"errors"
	"sync"

	"go-survey-console/internal/model"
	"go-survey-console/internal/rbac"
	"go-survey-console/pkg/apiclient"

	"golang.org/x/sync/errgroup"
)

// DashboardCard links to one enquiry screen. Count is nil until Stats has
// filled it.
type DashboardCard struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Link        string        `json:"link"`
	ButtonText  string        `json:"button_text"`
	Page        model.PageKey `json:"page"`
	Count       *int          `json:"count,omitempty"`

	list EnquiryList
}

var dashboardCards = []DashboardCard{
	{
		Title:       "New Enquiries",
		Description: "View all new enquiries submitted to the system.",
		Link:        "/enquiries",
		ButtonText:  "View New Enquiries",
		Page:        model.PageEnquiries,
		list:        ListAll,
	},
	{
		Title:       "Processing Enquiries",
		Description: "Enquiries assigned to salespersons and under processing.",
		Link:        "/processing-enquiries",
		ButtonText:  "View Processing Enquiries",
		Page:        model.PageProcessingEnquiries,
		list:        ListProcessing,
	},
	{
		Title:       "Follow Ups",
		Description: "List all non-scheduled enquiries for all employees.",
		Link:        "/follow-ups",
		ButtonText:  "View Follow Ups",
		Page:        model.PageFollowUps,
		list:        ListFollowUps,
	},
	{
		Title:       "Scheduled Surveys",
		Description: "List all scheduled surveys for all employees.",
		Link:        "/scheduled-surveys",
		ButtonText:  "View Scheduled Surveys",
		Page:        model.PageScheduledSurveys,
		list:        ListScheduled,
	},
}

type DashboardService interface {
	Cards(perms rbac.Set) []DashboardCard
	Stats(ctx context.Context, api API, perms rbac.Set) ([]DashboardCard, error)
}

type dashboardService struct {
	enquiries EnquiryService
}

func NewDashboardService(enquiries EnquiryService) DashboardService {
	return &dashboardService{enquiries: enquiries}
}

// Cards returns the cards whose target page the session may view.
func (s *dashboardService) Cards(perms rbac.Set) []DashboardCard {
	out := make([]DashboardCard, 0, len(dashboardCards))
	for _, c := range dashboardCards {
		if perms.Has(c.Page, model.ActionView) {
			out = append(out, c)
		}
	}
	return out
}

// Stats is Cards with a row count per card. A failed count leaves that
// card without one; only session expiry fails the whole call.
func (s *dashboardService) Stats(ctx context.Context, api API, perms rbac.Set) ([]DashboardCard, error) {
	cards := s.Cards(perms)

	var (
		g       errgroup.Group
		mu      sync.Mutex
		expired error
	)
	for i := range cards {
		i := i
		g.Go(func() error {
			rows, err := s.enquiries.List(ctx, api, perms, cards[i].list, EnquiryFilter{})
			if err != nil {
				if errors.Is(err, apiclient.ErrSessionExpired) {
					mu.Lock()
					expired = err
					mu.Unlock()
				}
				return nil
			}
			n := len(rows)
			cards[i].Count = &n
			return nil
		})
	}
	_ = g.Wait()

	if expired != nil {
		return nil, expired
	}
	return cards, nil
}
