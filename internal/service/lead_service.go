package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/authz"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// LeadService coordinates the sales pipeline.
type LeadService struct {
	leads      repository.LeadRepository
	clients    repository.ClientRepository
	users      repository.UserRepository
	tx         repository.TxManager
	activity   *ActivityRecorder
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// LeadDependencies bundles repositories for the lead service.
type LeadDependencies struct {
	LeadRepo   repository.LeadRepository
	ClientRepo repository.ClientRepository
	UserRepo   repository.UserRepository
	TxManager  repository.TxManager
	Activity   *ActivityRecorder
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	BcryptCost int
	Now        func() time.Time
}

// LeadListInput describes lead listing filters.
type LeadListInput struct {
	Status       *domain.LeadStatus
	Source       string
	AssignedToID *string
	Search       string
	Page         repository.Page
}

// LeadCreateInput describes lead creation payload.
type LeadCreateInput struct {
	FirstName      string
	LastName       string
	Email          string
	Phone          *string
	Company        *string
	Source         *string
	Notes          *string
	EstimatedValue *float64
	AssignedToID   *string
}

// LeadUpdateInput describes a partial lead update. Status is changed through UpdateStatus.
type LeadUpdateInput struct {
	FirstName      *string
	LastName       *string
	Email          *string
	Phone          domain.Nullable[string]
	Company        domain.Nullable[string]
	Source         domain.Nullable[string]
	Notes          domain.Nullable[string]
	EstimatedValue domain.Nullable[float64]
}

// LeadConvertInput carries the address captured when a lead becomes a client.
type LeadConvertInput struct {
	CreatePortalAccount bool
	Address             *string
	City                *string
	State               *string
	ZipCode             *string
	Country             *string
	TaxID               *string
}

// LeadConversion is the outcome of Convert.
type LeadConversion struct {
	Lead     *domain.Lead
	ClientID string
}

// NewLeadService constructs the service.
func NewLeadService(deps LeadDependencies) *LeadService {
	return &LeadService{
		leads:      deps.LeadRepo,
		clients:    deps.ClientRepo,
		users:      deps.UserRepo,
		tx:         deps.TxManager,
		activity:   deps.Activity,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     nopLogger(deps.Logger),
		bcryptCost: deps.BcryptCost,
		now:        nowFunc(deps.Now),
	}
}

// List returns the leads visible to actor. Operators only see leads they
// created or are assigned to.
func (s *LeadService) List(ctx context.Context, actor domain.Identity, input LeadListInput) ([]domain.Lead, int, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, 0, err
	}
	return s.leads.List(ctx, repository.LeadFilter{
		VisibleTo:    authz.LeadScope(actor),
		Status:       input.Status,
		Source:       strings.TrimSpace(input.Source),
		AssignedToID: input.AssignedToID,
		Search:       input.Search,
		Page:         input.Page,
	})
}

// Get fetches a lead after the ownership check.
func (s *LeadService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Lead", id)
	}
	if err := authz.Authorize(actor, authz.LeadOwner(*lead)); err != nil {
		return nil, err
	}
	return lead, nil
}

// Create records a new NEW lead owned by actor.
func (s *LeadService) Create(ctx context.Context, actor domain.Identity, input LeadCreateInput) (*domain.Lead, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	if input.AssignedToID != nil && *input.AssignedToID != actor.UserID {
		if err := requireManager(actor, "Only admins and supervisors can assign leads"); err != nil {
			return nil, err
		}
	}
	if _, err := lookupAssignee(ctx, s.users, input.AssignedToID); err != nil {
		return nil, err
	}

	lead := &domain.Lead{
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Email:          normalizeEmail(input.Email),
		Phone:          optional(input.Phone),
		Company:        optional(input.Company),
		Source:         optional(input.Source),
		Notes:          optional(input.Notes),
		EstimatedValue: input.EstimatedValue,
		Status:         domain.LeadStatusNew,
		CreatedByID:    actor.UserID,
		AssignedToID:   input.AssignedToID,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.leads.Create(ctx, lead); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionCreated,
			fmt.Sprintf("Lead %q created", lead.FullName()), actor.UserID,
			ActivityRefs{LeadID: ref(lead.ID)})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, lead.ID)
}

// Update edits contact fields of a lead actor may access.
func (s *LeadService) Update(ctx context.Context, actor domain.Identity, id string, input LeadUpdateInput) (*domain.Lead, error) {
	lead, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.FirstName != nil {
		lead.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		lead.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		lead.Email = normalizeEmail(*input.Email)
	}
	applyText(input.Phone, &lead.Phone)
	applyText(input.Company, &lead.Company)
	applyText(input.Source, &lead.Source)
	applyText(input.Notes, &lead.Notes)
	input.EstimatedValue.Apply(&lead.EstimatedValue)

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.leads.Update(ctx, lead); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionUpdated,
			fmt.Sprintf("Lead %q updated", lead.FullName()), actor.UserID,
			ActivityRefs{LeadID: ref(lead.ID)})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, lead.ID)
}

// Delete removes a lead. The audit entry is not linked to the lead so it
// survives the cascade.
func (s *LeadService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if err := requireManager(actor, "Only admins and supervisors can delete leads"); err != nil {
		return err
	}
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "Lead", id)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.leads.Delete(ctx, lead.ID); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionDeleted,
			fmt.Sprintf("Lead %q deleted", lead.FullName()), actor.UserID, ActivityRefs{})
	})
}

// UpdateStatus moves a lead through the pipeline. CONVERTED leads are locked.
func (s *LeadService) UpdateStatus(ctx context.Context, actor domain.Identity, id string, status domain.LeadStatus) (*domain.Lead, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("Invalid lead status", map[string]any{"status": status})
	}
	lead, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if lead.Status.Locked() {
		return nil, apperrors.NewBadRequest("Cannot change status of converted leads")
	}

	oldStatus := lead.Status
	lead.Status = status
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.leads.Update(ctx, lead); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionStatusChanged,
			fmt.Sprintf("Lead status changed from %s to %s", oldStatus, status), actor.UserID,
			ActivityRefs{
				LeadID:   ref(lead.ID),
				Metadata: map[string]any{"oldStatus": oldStatus, "newStatus": status},
			})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, lead.ID)
}

// Assign sets or clears the lead's assignee.
func (s *LeadService) Assign(ctx context.Context, actor domain.Identity, id string, assigneeID *string) (*domain.Lead, error) {
	if err := requireManager(actor, "Only admins and supervisors can assign leads"); err != nil {
		return nil, err
	}
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Lead", id)
	}
	assignee, err := lookupAssignee(ctx, s.users, assigneeID)
	if err != nil {
		return nil, err
	}

	description := "Lead unassigned"
	lead.AssignedToID = nil
	if assignee != nil {
		lead.AssignedToID = ref(assignee.ID)
		description = "Lead assigned to " + assignee.FullName()
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.leads.Update(ctx, lead); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionAssigned, description, actor.UserID, ActivityRefs{LeadID: ref(lead.ID)})
	})
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, lead.ID)
}

// Convert turns a lead into a client. The optional portal user, the client,
// the lead status change and the audit entry commit together or not at all.
func (s *LeadService) Convert(ctx context.Context, actor domain.Identity, id string, input LeadConvertInput) (*LeadConversion, error) {
	if err := requireManager(actor, "Only admins and supervisors can convert leads"); err != nil {
		return nil, err
	}
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Lead", id)
	}
	if lead.Status == domain.LeadStatusConverted {
		return nil, apperrors.NewBadRequest("Lead is already converted")
	}
	if _, err := s.clients.GetByEmail(ctx, lead.Email); err == nil {
		return nil, apperrors.NewBadRequest("A client with this email already exists")
	} else if !isNotFound(err) {
		return nil, err
	}

	var portalUser *domain.User
	var tempPassword string
	if input.CreatePortalAccount {
		if _, err := s.users.GetByEmail(ctx, lead.Email); err == nil {
			return nil, apperrors.NewBadRequest("A user account with this email already exists")
		} else if !isNotFound(err) {
			return nil, err
		}
		tempPassword, err = auth.GenerateTempPassword()
		if err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(tempPassword, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		portalUser = &domain.User{
			Email:        lead.Email,
			PasswordHash: hash,
			FirstName:    lead.FirstName,
			LastName:     lead.LastName,
			Phone:        lead.Phone,
			Role:         domain.RoleClient,
			IsActive:     true,
		}
	}

	client := &domain.Client{
		FirstName:       lead.FirstName,
		LastName:        lead.LastName,
		Email:           lead.Email,
		Phone:           lead.Phone,
		Company:         lead.Company,
		Address:         optional(input.Address),
		City:            optional(input.City),
		State:           optional(input.State),
		ZipCode:         optional(input.ZipCode),
		Country:         optional(input.Country),
		TaxID:           optional(input.TaxID),
		IsActive:        true,
		ConvertedFromID: ref(lead.ID),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if portalUser != nil {
			if err := s.users.Create(ctx, portalUser); err != nil {
				return err
			}
			client.UserID = ref(portalUser.ID)
		}
		if err := s.clients.Create(ctx, client); err != nil {
			return err
		}
		convertedAt := s.now()
		lead.Status = domain.LeadStatusConverted
		lead.ConvertedAt = &convertedAt
		if err := s.leads.Update(ctx, lead); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionConverted,
			fmt.Sprintf("Lead converted to client %q", client.FullName()), actor.UserID,
			ActivityRefs{LeadID: ref(lead.ID), ClientID: ref(client.ID)})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLeadConversion()
	payload := events.LeadConvertedPayload{LeadID: lead.ID, ClientID: client.ID, ClientName: client.FullName()}
	if portalUser != nil {
		payload.PortalUserID = ref(portalUser.ID)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventLeadConverted,
		Subject: lead.ID,
		Actor:   eventActor(actor),
		Payload: payload,
	})
	if portalUser != nil {
		publish(ctx, s.dispatcher, s.logger, events.Event{
			Type:    events.EventPortalAccountCreated,
			Subject: client.ID,
			Actor:   eventActor(actor),
			Payload: events.PortalAccountCreatedPayload{
				ClientID:     client.ID,
				UserID:       portalUser.ID,
				Email:        portalUser.Email,
				TempPassword: tempPassword,
			},
		})
	}

	converted, err := s.reload(ctx, lead.ID)
	if err != nil {
		return nil, err
	}
	return &LeadConversion{Lead: converted, ClientID: client.ID}, nil
}

// Stats summarizes the pipeline visible to actor.
func (s *LeadService) Stats(ctx context.Context, actor domain.Identity) (*domain.LeadStats, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	scope := authz.LeadScope(actor)
	counts, err := s.leads.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	value, err := s.leads.SumEstimatedValue(ctx, scope)
	if err != nil {
		return nil, err
	}

	stats := &domain.LeadStats{ByStatus: []domain.StatusCount{}, TotalEstimatedValue: value}
	for _, status := range domain.LeadStatuses {
		n := counts[status]
		stats.Total += n
		if n > 0 {
			stats.ByStatus = append(stats.ByStatus, domain.StatusCount{Status: string(status), Count: n})
		}
	}
	stats.ConversionRate = percentage(counts[domain.LeadStatusConverted], stats.Total)
	return stats, nil
}

// Sources lists distinct lead sources for filter dropdowns.
func (s *LeadService) Sources(ctx context.Context, actor domain.Identity) ([]string, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	sources, err := s.leads.Sources(ctx)
	if err != nil {
		return nil, err
	}
	if sources == nil {
		sources = []string{}
	}
	return sources, nil
}

func (s *LeadService) reload(ctx context.Context, id string) (*domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Lead", id)
	}
	return lead, nil
}
