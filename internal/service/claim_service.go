package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/authz"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/storage"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

const resolutionSample = 100

// ClaimService coordinates support claims, their lifecycle and attachments.
type ClaimService struct {
	claims      repository.ClaimRepository
	attachments repository.AttachmentRepository
	clients     repository.ClientRepository
	users       repository.UserRepository
	tx          repository.TxManager
	activity    *ActivityRecorder
	files       storage.FileStore
	maxUpload   int64
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// ClaimDependencies bundles repositories for the claim service.
type ClaimDependencies struct {
	ClaimRepo      repository.ClaimRepository
	AttachmentRepo repository.AttachmentRepository
	ClientRepo     repository.ClientRepository
	UserRepo       repository.UserRepository
	TxManager      repository.TxManager
	Activity       *ActivityRecorder
	FileStore      storage.FileStore
	MaxUploadSize  int64
	Dispatcher     events.Dispatcher
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	Now            func() time.Time
}

// ClaimListInput describes claim listing filters.
type ClaimListInput struct {
	Status       *domain.ClaimStatus
	Priority     *domain.ClaimPriority
	ClientID     *string
	AssignedToID *string
	Search       string
	Page         repository.Page
}

// ClaimCreateInput describes a claim opened by staff on behalf of a client.
type ClaimCreateInput struct {
	Title        string
	Description  string
	Priority     domain.ClaimPriority
	ClientID     string
	AssignedToID *string
}

// PortalClaimInput describes a claim opened by the client themself.
type PortalClaimInput struct {
	Title       string
	Description string
	Priority    domain.ClaimPriority
}

type ClaimUpdateInput struct {
	Title       *string
	Description *string
	Priority    *domain.ClaimPriority
}

// Upload is an attachment file received from a caller.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func NewClaimService(deps ClaimDependencies) *ClaimService {
	return &ClaimService{
		claims:      deps.ClaimRepo,
		attachments: deps.AttachmentRepo,
		clients:     deps.ClientRepo,
		users:       deps.UserRepo,
		tx:          deps.TxManager,
		activity:    deps.Activity,
		files:       deps.FileStore,
		maxUpload:   deps.MaxUploadSize,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      nopLogger(deps.Logger),
		now:         nowFunc(deps.Now),
	}
}

// List returns claims visible to actor. Filters that would widen the caller's
// scope are rejected.
func (s *ClaimService) List(ctx context.Context, actor domain.Identity, input ClaimListInput) ([]domain.Claim, int, error) {
	scope, err := s.listScope(actor, input)
	if err != nil {
		return nil, 0, err
	}
	return s.claims.List(ctx, repository.ClaimFilter{
		Scope:    scope,
		Status:   input.Status,
		Priority: input.Priority,
		Search:   strings.TrimSpace(input.Search),
		Page:     input.Page,
	})
}

func (s *ClaimService) listScope(actor domain.Identity, input ClaimListInput) (repository.ClaimScope, error) {
	base := authz.ClaimScopeFor(actor)
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleSupervisor:
		return repository.ClaimScope{AssignedToID: input.AssignedToID, ClientID: input.ClientID}, nil
	case domain.RoleOperator:
		if input.ClientID != nil {
			return repository.ClaimScope{}, apperrors.NewForbidden("Only admins and supervisors can filter claims by client")
		}
		if input.AssignedToID != nil && *input.AssignedToID != actor.UserID {
			return repository.ClaimScope{}, apperrors.NewForbidden("Access denied to this claim")
		}
		return repoClaimScope(base), nil
	case domain.RoleClient:
		if err := authz.RequireClientPortal(actor); err != nil {
			return repository.ClaimScope{}, err
		}
		if input.AssignedToID != nil {
			return repository.ClaimScope{}, apperrors.NewForbidden("Staff access required")
		}
		if input.ClientID != nil && *input.ClientID != actor.LinkedClientID() {
			return repository.ClaimScope{}, apperrors.NewForbidden("Access denied to this claim")
		}
		return repoClaimScope(base), nil
	}
	return repository.ClaimScope{}, apperrors.NewForbidden("Insufficient permissions")
}

// Get returns a claim with its attachments after the ownership check.
func (s *ClaimService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.Claim, error) {
	claim, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByClaim(ctx, claim.ID)
	if err != nil {
		return nil, err
	}
	claim.Attachments = attachments
	return claim, nil
}

func (s *ClaimService) Create(ctx context.Context, actor domain.Identity, input ClaimCreateInput) (*domain.Claim, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	if input.AssignedToID != nil && *input.AssignedToID != actor.UserID {
		if err := requireManager(actor, "Only admins and supervisors can assign claims"); err != nil {
			return nil, err
		}
	}
	if _, err := s.clients.GetByID(ctx, input.ClientID); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewBadRequest("Client not found")
		}
		return nil, err
	}
	if _, err := lookupAssignee(ctx, s.users, input.AssignedToID); err != nil {
		return nil, err
	}
	claim := s.newClaim(actor, input.Title, input.Description, input.Priority, input.ClientID)
	claim.AssignedToID = input.AssignedToID
	return s.create(ctx, actor, claim, false)
}

// CreatePortal opens a claim for the caller's own client record. Any client id
// in the request is ignored.
func (s *ClaimService) CreatePortal(ctx context.Context, actor domain.Identity, input PortalClaimInput) (*domain.Claim, error) {
	if err := authz.RequireClientPortal(actor); err != nil {
		return nil, err
	}
	claim := s.newClaim(actor, input.Title, input.Description, input.Priority, actor.LinkedClientID())
	return s.create(ctx, actor, claim, true)
}

func (s *ClaimService) newClaim(actor domain.Identity, title, description string, priority domain.ClaimPriority, clientID string) *domain.Claim {
	if priority == "" {
		priority = domain.ClaimPriorityMedium
	}
	return &domain.Claim{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Status:      domain.ClaimStatusOpen,
		Priority:    priority,
		ClientID:    clientID,
		CreatedByID: actor.UserID,
	}
}

func (s *ClaimService) create(ctx context.Context, actor domain.Identity, claim *domain.Claim, viaPortal bool) (*domain.Claim, error) {
	if !claim.Priority.Valid() {
		return nil, apperrors.NewValidationError("Invalid claim priority", map[string]any{"priority": claim.Priority})
	}
	description := fmt.Sprintf("Claim %q created", claim.Title)
	if viaPortal {
		description += " via portal"
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Create(ctx, claim); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionCreated, description, actor.UserID,
			ActivityRefs{ClientID: ref(claim.ClientID), ClaimID: ref(claim.ID)})
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventClaimCreated,
		Subject: claim.ID,
		Actor:   eventActor(actor),
		Payload: events.ClaimCreatedPayload{
			ClientID:     claim.ClientID,
			Title:        claim.Title,
			Priority:     claim.Priority,
			AssignedToID: claim.AssignedToID,
			ViaPortal:    viaPortal,
		},
	})
	return s.Get(ctx, actor, claim.ID)
}

// Update edits the title, description or priority of a claim.
func (s *ClaimService) Update(ctx context.Context, actor domain.Identity, id string, input ClaimUpdateInput) (*domain.Claim, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	claim, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		claim.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		claim.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, apperrors.NewValidationError("Invalid claim priority", map[string]any{"priority": *input.Priority})
		}
		claim.Priority = *input.Priority
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Update(ctx, claim); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionUpdated,
			fmt.Sprintf("Claim %q updated", claim.Title), actor.UserID,
			ActivityRefs{ClientID: ref(claim.ClientID), ClaimID: ref(claim.ID)})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, claim.ID)
}

// Delete removes a claim and its attachments. Stored files are removed best-effort.
func (s *ClaimService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if err := requireManager(actor, "Only admins and supervisors can delete claims"); err != nil {
		return err
	}
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "Claim", id)
	}
	attachments, err := s.attachments.ListByClaim(ctx, claim.ID)
	if err != nil {
		return err
	}
	for _, attachment := range attachments {
		s.removeFile(ctx, attachment)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Delete(ctx, claim.ID); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionDeleted,
			fmt.Sprintf("Claim %q deleted", claim.Title), actor.UserID,
			ActivityRefs{ClientID: ref(claim.ClientID)})
	})
}

// UpdateStatus moves a claim to status. The first entry into RESOLVED or
// CLOSED stamps ResolvedAt, which later transitions keep.
func (s *ClaimService) UpdateStatus(ctx context.Context, actor domain.Identity, id string, status domain.ClaimStatus, resolution string) (*domain.Claim, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("Invalid claim status", map[string]any{"status": status})
	}
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	claim, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	oldStatus := claim.Status
	claim.TransitionTo(status, strings.TrimSpace(resolution), s.now())
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Update(ctx, claim); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionStatusChanged,
			fmt.Sprintf("Claim status changed from %s to %s", oldStatus, status), actor.UserID,
			ActivityRefs{
				ClientID: ref(claim.ClientID),
				ClaimID:  ref(claim.ID),
				Metadata: map[string]any{"oldStatus": oldStatus, "newStatus": status},
			})
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordClaimStatusChange(string(status))
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventClaimStatusChanged,
		Subject: claim.ID,
		Actor:   eventActor(actor),
		Payload: events.ClaimStatusChangedPayload{ClientID: claim.ClientID, OldStatus: oldStatus, NewStatus: status},
	})
	return s.Get(ctx, actor, claim.ID)
}

// Assign sets or clears the claim's assignee.
func (s *ClaimService) Assign(ctx context.Context, actor domain.Identity, id string, assigneeID *string) (*domain.Claim, error) {
	if err := requireManager(actor, "Only admins and supervisors can assign claims"); err != nil {
		return nil, err
	}
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Claim", id)
	}
	assignee, err := lookupAssignee(ctx, s.users, assigneeID)
	if err != nil {
		return nil, err
	}

	description := "Claim unassigned"
	claim.AssignedToID = nil
	if assignee != nil {
		claim.AssignedToID = ref(assignee.ID)
		description = "Claim assigned to " + assignee.FullName()
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.claims.Update(ctx, claim); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionAssigned, description, actor.UserID,
			ActivityRefs{ClientID: ref(claim.ClientID), ClaimID: ref(claim.ID)})
	})
	if err != nil {
		return nil, err
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventClaimAssigned,
		Subject: claim.ID,
		Actor:   eventActor(actor),
		Payload: events.ClaimAssignedPayload{AssignedToID: claim.AssignedToID},
	})
	return s.Get(ctx, actor, claim.ID)
}

// AddAttachment validates and stores an uploaded file against a claim the
// caller may access.
func (s *ClaimService) AddAttachment(ctx context.Context, actor domain.Identity, claimID string, upload Upload) (*domain.ClaimAttachment, error) {
	claim, err := s.load(ctx, actor, claimID)
	if err != nil {
		return nil, err
	}
	if err := storage.ValidateUpload(upload.ContentType, upload.Size, s.maxUpload); err != nil {
		return nil, err
	}
	object, err := s.files.Save(ctx, upload.Filename, upload.ContentType, upload.Body)
	if err != nil {
		return nil, err
	}

	attachment := &domain.ClaimAttachment{
		ClaimID:      claim.ID,
		Filename:     object.Filename,
		OriginalName: upload.Filename,
		MimeType:     upload.ContentType,
		Size:         object.Size,
		Path:         object.Path,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attachments.Create(ctx, attachment); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionAttachmentAdded,
			fmt.Sprintf("Attachment %q added", upload.Filename), actor.UserID,
			ActivityRefs{ClientID: ref(claim.ClientID), ClaimID: ref(claim.ID)})
	})
	if err != nil {
		s.removeFile(ctx, *attachment)
		return nil, err
	}
	return attachment, nil
}

// DeleteAttachment removes an attachment record and its stored file and
// returns the claim as it stands afterwards.
func (s *ClaimService) DeleteAttachment(ctx context.Context, actor domain.Identity, claimID, attachmentID string) (*domain.Claim, error) {
	if err := requireManager(actor, "Only admins and supervisors can delete attachments"); err != nil {
		return nil, err
	}
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, notFound(err, "Claim", claimID)
	}
	attachment, err := s.attachment(ctx, claim.ID, attachmentID)
	if err != nil {
		return nil, err
	}
	s.removeFile(ctx, *attachment)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.attachments.Delete(ctx, attachment.ID); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionAttachmentDeleted,
			fmt.Sprintf("Attachment %q deleted", attachment.OriginalName), actor.UserID,
			ActivityRefs{ClientID: ref(claim.ClientID), ClaimID: ref(claim.ID)})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, claim.ID)
}

// OpenAttachment streams a stored file. Access to the parent claim is checked
// on every call. The caller closes the returned reader.
func (s *ClaimService) OpenAttachment(ctx context.Context, actor domain.Identity, claimID, attachmentID string) (*domain.ClaimAttachment, io.ReadCloser, error) {
	claim, err := s.load(ctx, actor, claimID)
	if err != nil {
		return nil, nil, err
	}
	attachment, err := s.attachment(ctx, claim.ID, attachmentID)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.files.Open(ctx, attachment.Path)
	if err != nil {
		return nil, nil, err
	}
	return attachment, body, nil
}

// Stats summarizes claims visible to actor.
func (s *ClaimService) Stats(ctx context.Context, actor domain.Identity) (*domain.ClaimStats, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, err
	}
	scope := repoClaimScope(authz.ClaimScopeFor(actor))
	byStatus, err := s.claims.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	byPriority, err := s.claims.CountByPriority(ctx, scope)
	if err != nil {
		return nil, err
	}
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	resolved, err := s.claims.CountResolvedSince(ctx, scope, monthStart)
	if err != nil {
		return nil, err
	}
	durations, err := s.claims.ResolutionDurations(ctx, scope, resolutionSample)
	if err != nil {
		return nil, err
	}

	stats := &domain.ClaimStats{
		ByStatus:              []domain.StatusCount{},
		ByPriority:            []domain.PriorityCount{},
		ResolvedThisMonth:     resolved,
		AverageResolutionTime: averageHours(durations),
		OpenClaims:            byStatus[domain.ClaimStatusOpen] + byStatus[domain.ClaimStatusInProgress],
	}
	for _, status := range domain.ClaimStatuses {
		n := byStatus[status]
		stats.Total += n
		if n > 0 {
			stats.ByStatus = append(stats.ByStatus, domain.StatusCount{Status: string(status), Count: n})
		}
	}
	for _, priority := range domain.ClaimPriorities {
		if n := byPriority[priority]; n > 0 {
			stats.ByPriority = append(stats.ByPriority, domain.PriorityCount{Priority: string(priority), Count: n})
		}
	}
	return stats, nil
}

func (s *ClaimService) load(ctx context.Context, actor domain.Identity, id string) (*domain.Claim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Claim", id)
	}
	if err := authz.Authorize(actor, authz.ClaimOwner(*claim)); err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *ClaimService) attachment(ctx context.Context, claimID, attachmentID string) (*domain.ClaimAttachment, error) {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, notFound(err, "Attachment", attachmentID)
	}
	if attachment.ClaimID != claimID {
		return nil, apperrors.NewNotFound("Attachment", map[string]any{"id": attachmentID})
	}
	return attachment, nil
}

func (s *ClaimService) removeFile(ctx context.Context, attachment domain.ClaimAttachment) {
	if attachment.Path == "" {
		return
	}
	if err := s.files.Delete(ctx, attachment.Path); err != nil {
		s.logger.Warn("remove attachment file",
			zap.String("attachment_id", attachment.ID),
			zap.String("path", attachment.Path),
			zap.Error(err))
	}
}

// averageHours returns the mean of durations in hours, rounded to one decimal.
func averageHours(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return round1(total.Hours() / float64(len(durations)))
}
