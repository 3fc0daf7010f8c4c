package service

import (
	"context"

	"github.com/spec-kit/crm-service/internal/authz"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

const (
	staffActivityLimit = 10
	recentClaimLimit   = 5
)

// DashboardService assembles the role-specific landing views.
type DashboardService struct {
	users         repository.UserRepository
	leads         repository.LeadRepository
	clients       repository.ClientRepository
	claims        repository.ClaimRepository
	subscriptions repository.SubscriptionRepository
	activity      *ActivityRecorder
}

type DashboardDependencies struct {
	UserRepo         repository.UserRepository
	LeadRepo         repository.LeadRepository
	ClientRepo       repository.ClientRepository
	ClaimRepo        repository.ClaimRepository
	SubscriptionRepo repository.SubscriptionRepository
	Activity         *ActivityRecorder
}

func NewDashboardService(deps DashboardDependencies) *DashboardService {
	return &DashboardService{
		users:         deps.UserRepo,
		leads:         deps.LeadRepo,
		clients:       deps.ClientRepo,
		claims:        deps.ClaimRepo,
		subscriptions: deps.SubscriptionRepo,
		activity:      deps.Activity,
	}
}

// ForRole returns the dashboard matching actor's role.
func (s *DashboardService) ForRole(ctx context.Context, actor domain.Identity) (any, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return s.Admin(ctx, actor)
	case domain.RoleSupervisor:
		return s.Supervisor(ctx, actor)
	case domain.RoleOperator:
		return s.Operator(ctx, actor)
	default:
		return s.Client(ctx, actor)
	}
}

func (s *DashboardService) Admin(ctx context.Context, actor domain.Identity) (*domain.StaffDashboard, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	dashboard, err := s.managerView(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.users.Summary(ctx)
	if err != nil {
		return nil, err
	}
	dashboard.Users = &users
	return dashboard, nil
}

// Supervisor is the admin view without user statistics.
func (s *DashboardService) Supervisor(ctx context.Context, actor domain.Identity) (*domain.StaffDashboard, error) {
	if err := authz.RequireManager(actor); err != nil {
		return nil, err
	}
	return s.managerView(ctx)
}

// Operator limits every figure to the caller's own leads, claims and activity.
func (s *DashboardService) Operator(ctx context.Context, actor domain.Identity) (*domain.StaffDashboard, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	self := ref(actor.UserID)
	leads, err := s.leadSummary(ctx, self)
	if err != nil {
		return nil, err
	}
	claims, err := s.claimSummary(ctx, repository.ClaimScope{AssignedToID: self})
	if err != nil {
		return nil, err
	}
	recent, err := s.recentActivity(ctx, repository.ActivityFilter{UserID: self, Limit: staffActivityLimit})
	if err != nil {
		return nil, err
	}
	return &domain.StaffDashboard{Leads: leads, Claims: claims, RecentActivity: recent}, nil
}

// Client is the portal landing view of the caller's own client record.
func (s *DashboardService) Client(ctx context.Context, actor domain.Identity) (*domain.ClientDashboard, error) {
	if err := authz.RequireClientPortal(actor); err != nil {
		return nil, err
	}
	clientID := actor.LinkedClientID()
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, notFound(err, "Client", clientID)
	}
	subs, err := s.subscriptions.ListByClient(ctx, clientID, false)
	if err != nil {
		return nil, err
	}
	scope := repository.ClaimScope{ClientID: &clientID}
	counts, err := s.claims.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.claims.List(ctx, repository.ClaimFilter{
		Scope: scope,
		Page:  repository.Page{Page: 1, Limit: recentClaimLimit, SortBy: "createdAt", SortOrder: "desc"},
	})
	if err != nil {
		return nil, err
	}

	dashboard := &domain.ClientDashboard{
		Profile: domain.PortalProfile{
			FirstName: client.FirstName,
			LastName:  client.LastName,
			Email:     client.Email,
			Company:   client.Company,
		},
		Subscriptions: domain.PortalSubscriptionSummary{
			Total:        len(subs),
			MonthlySpend: monthlyRecurring(subs),
		},
		Claims: domain.PortalClaimSummary{
			Open:     counts[domain.ClaimStatusOpen] + counts[domain.ClaimStatusInProgress],
			Resolved: counts[domain.ClaimStatusResolved] + counts[domain.ClaimStatusClosed],
		},
		RecentClaims: make([]domain.RecentClaim, 0, len(recent)),
	}
	for _, sub := range subs {
		if sub.IsActive {
			dashboard.Subscriptions.Active++
		}
	}
	for _, n := range counts {
		dashboard.Claims.Total += n
	}
	for _, claim := range recent {
		dashboard.RecentClaims = append(dashboard.RecentClaims, domain.RecentClaim{
			ID:        claim.ID,
			Title:     claim.Title,
			Status:    claim.Status,
			CreatedAt: claim.CreatedAt,
		})
	}
	return dashboard, nil
}

func (s *DashboardService) managerView(ctx context.Context) (*domain.StaffDashboard, error) {
	leads, err := s.leadSummary(ctx, nil)
	if err != nil {
		return nil, err
	}
	clients, err := s.clients.Summary(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := s.claimSummary(ctx, repository.ClaimScope{})
	if err != nil {
		return nil, err
	}
	subs, err := s.subscriptions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	monthly := monthlyRecurring(subs)
	recent, err := s.recentActivity(ctx, repository.ActivityFilter{Limit: staffActivityLimit})
	if err != nil {
		return nil, err
	}
	return &domain.StaffDashboard{
		Leads:          leads,
		Clients:        clients,
		Claims:         claims,
		Revenue:        &domain.RevenueSummary{MonthlyRecurring: monthly, YearlyProjected: monthly * 12},
		RecentActivity: recent,
	}, nil
}

func (s *DashboardService) leadSummary(ctx context.Context, visibleTo *string) (domain.LeadSummary, error) {
	counts, err := s.leads.CountByStatus(ctx, visibleTo)
	if err != nil {
		return domain.LeadSummary{}, err
	}
	summary := domain.LeadSummary{
		New:       counts[domain.LeadStatusNew],
		Converted: counts[domain.LeadStatusConverted],
	}
	for _, n := range counts {
		summary.Total += n
	}
	summary.ConversionRate = percentage(summary.Converted, summary.Total)
	return summary, nil
}

func (s *DashboardService) claimSummary(ctx context.Context, scope repository.ClaimScope) (domain.ClaimSummary, error) {
	counts, err := s.claims.CountByStatus(ctx, scope)
	if err != nil {
		return domain.ClaimSummary{}, err
	}
	summary := domain.ClaimSummary{
		Open:       counts[domain.ClaimStatusOpen],
		InProgress: counts[domain.ClaimStatusInProgress],
		Resolved:   counts[domain.ClaimStatusResolved] + counts[domain.ClaimStatusClosed],
	}
	for _, n := range counts {
		summary.Total += n
	}
	return summary, nil
}

func (s *DashboardService) recentActivity(ctx context.Context, filter repository.ActivityFilter) ([]domain.ActivityItem, error) {
	activities, err := s.activity.Recent(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]domain.ActivityItem, 0, len(activities))
	for _, a := range activities {
		item := domain.ActivityItem{ID: a.ID, Action: a.Action, Description: a.Description, CreatedAt: a.CreatedAt}
		if a.User != nil {
			item.User = domain.ActivityUser{FirstName: a.User.FirstName, LastName: a.User.LastName}
		}
		items = append(items, item)
	}
	return items, nil
}
