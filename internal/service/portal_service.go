package service

import (
	"context"
	"io"
	"strings"

	"github.com/spec-kit/crm-service/internal/authz"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// PortalService is the client-facing view of the caller's own records. Every
// method resolves the client from the identity, never from request input.
type PortalService struct {
	clients       repository.ClientRepository
	subscriptions repository.SubscriptionRepository
	tx            repository.TxManager
	activity      *ActivityRecorder
	claims        *ClaimService
	dashboard     *DashboardService
}

type PortalDependencies struct {
	ClientRepo       repository.ClientRepository
	SubscriptionRepo repository.SubscriptionRepository
	TxManager        repository.TxManager
	Activity         *ActivityRecorder
	Claims           *ClaimService
	Dashboard        *DashboardService
}

// PortalProfileInput lists the fields a client may edit about themself.
type PortalProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     domain.Nullable[string]
	Company   domain.Nullable[string]
	Address   domain.Nullable[string]
	City      domain.Nullable[string]
	State     domain.Nullable[string]
	ZipCode   domain.Nullable[string]
	Country   domain.Nullable[string]
}

func NewPortalService(deps PortalDependencies) *PortalService {
	return &PortalService{
		clients:       deps.ClientRepo,
		subscriptions: deps.SubscriptionRepo,
		tx:            deps.TxManager,
		activity:      deps.Activity,
		claims:        deps.Claims,
		dashboard:     deps.Dashboard,
	}
}

func (s *PortalService) Dashboard(ctx context.Context, actor domain.Identity) (*domain.ClientDashboard, error) {
	return s.dashboard.Client(ctx, actor)
}

func (s *PortalService) Profile(ctx context.Context, actor domain.Identity) (*domain.Client, error) {
	if err := authz.RequireClientPortal(actor); err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, actor.LinkedClientID())
	if err != nil {
		return nil, notFound(err, "Client", actor.LinkedClientID())
	}
	return client, nil
}

func (s *PortalService) UpdateProfile(ctx context.Context, actor domain.Identity, input PortalProfileInput) (*domain.Client, error) {
	client, err := s.Profile(ctx, actor)
	if err != nil {
		return nil, err
	}
	if input.FirstName != nil {
		client.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		client.LastName = strings.TrimSpace(*input.LastName)
	}
	applyText(input.Phone, &client.Phone)
	applyText(input.Company, &client.Company)
	applyText(input.Address, &client.Address)
	applyText(input.City, &client.City)
	applyText(input.State, &client.State)
	applyText(input.ZipCode, &client.ZipCode)
	applyText(input.Country, &client.Country)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.clients.Update(ctx, client); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionUpdated, "Client profile updated via portal", actor.UserID,
			ActivityRefs{ClientID: ref(client.ID)})
	})
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, actor)
}

// Subscriptions lists the caller's active subscriptions.
func (s *PortalService) Subscriptions(ctx context.Context, actor domain.Identity) ([]domain.ClientProduct, error) {
	if err := authz.RequireClientPortal(actor); err != nil {
		return nil, err
	}
	subs, err := s.subscriptions.ListByClient(ctx, actor.LinkedClientID(), true)
	if err != nil {
		return nil, err
	}
	if subs == nil {
		subs = []domain.ClientProduct{}
	}
	return subs, nil
}

func (s *PortalService) Claims(ctx context.Context, actor domain.Identity, input ClaimListInput) ([]domain.Claim, int, error) {
	if err := authz.RequireClientPortal(actor); err != nil {
		return nil, 0, err
	}
	input.ClientID = nil
	input.AssignedToID = nil
	return s.claims.List(ctx, actor, input)
}

func (s *PortalService) Claim(ctx context.Context, actor domain.Identity, id string) (*domain.Claim, error) {
	if err := authz.RequireClientPortal(actor); err != nil {
		return nil, err
	}
	return s.claims.Get(ctx, actor, id)
}

func (s *PortalService) CreateClaim(ctx context.Context, actor domain.Identity, input PortalClaimInput) (*domain.Claim, error) {
	return s.claims.CreatePortal(ctx, actor, input)
}

func (s *PortalService) AddAttachment(ctx context.Context, actor domain.Identity, claimID string, upload Upload) (*domain.ClaimAttachment, error) {
	if err := authz.RequireClientPortal(actor); err != nil {
		return nil, err
	}
	return s.claims.AddAttachment(ctx, actor, claimID, upload)
}

func (s *PortalService) OpenAttachment(ctx context.Context, actor domain.Identity, claimID, attachmentID string) (*domain.ClaimAttachment, io.ReadCloser, error) {
	if err := authz.RequireClientPortal(actor); err != nil {
		return nil, nil, err
	}
	return s.claims.OpenAttachment(ctx, actor, claimID, attachmentID)
}
