package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/storage"
)

type claimFixture struct {
	env    *testEnv
	admin  domain.Identity
	op     domain.Identity
	client *domain.Client
	portal domain.Identity
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()
	env := newTestEnv(t)
	admin := env.staff(t, domain.RoleAdmin, "admin@example.com")
	op := env.staff(t, domain.RoleOperator, "op@example.com")
	client := env.client(t, admin, "client@example.com")
	return &claimFixture{env: env, admin: admin, op: op, client: client, portal: env.portalIdentity(t, admin, client)}
}

func (f *claimFixture) claim(t *testing.T, title string, assignee *string) *domain.Claim {
	t.Helper()
	claim, err := f.env.claims.Create(context.Background(), f.admin, ClaimCreateInput{
		Title:        title,
		Description:  "details",
		ClientID:     f.client.ID,
		AssignedToID: assignee,
	})
	require.NoError(t, err)
	return claim
}

func textUpload(name, body string) Upload {
	return Upload{Filename: name, ContentType: "text/plain", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func TestClaimCreateDefaults(t *testing.T) {
	f := newClaimFixture(t)
	claim := f.claim(t, "  Router offline ", nil)

	assert.Equal(t, "Router offline", claim.Title)
	assert.Equal(t, domain.ClaimStatusOpen, claim.Status)
	assert.Equal(t, domain.ClaimPriorityMedium, claim.Priority)
	assert.Empty(t, claim.Attachments)
	assert.Len(t, f.env.dispatcher.ofType(events.EventClaimCreated), 1)

	_, err := f.env.claims.Create(context.Background(), f.admin, ClaimCreateInput{Title: "x", Description: "y", ClientID: "missing"})
	domainErr := requireStatus(t, err, http.StatusBadRequest)
	assert.Equal(t, "Client not found", domainErr.Message)

	_, err = f.env.claims.Create(context.Background(), f.op, ClaimCreateInput{Title: "x", Description: "y", ClientID: f.client.ID, AssignedToID: &f.admin.UserID})
	requireStatus(t, err, http.StatusForbidden)
}

func TestClaimResolvedAtSurvivesReopen(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	claim := f.claim(t, "Billing error", nil)

	resolved, err := f.env.claims.UpdateStatus(ctx, f.admin, claim.ID, domain.ClaimStatusResolved, " refunded ")
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, testNow, *resolved.ResolvedAt)
	assert.Equal(t, "refunded", *resolved.Resolution)

	reopened, err := f.env.claims.UpdateStatus(ctx, f.admin, claim.ID, domain.ClaimStatusOpen, "")
	require.NoError(t, err)
	require.NotNil(t, reopened.ResolvedAt)
	assert.Equal(t, testNow, *reopened.ResolvedAt)
	assert.Equal(t, "refunded", *reopened.Resolution)

	_, err = f.env.claims.UpdateStatus(ctx, f.admin, claim.ID, domain.ClaimStatus("DONE"), "")
	requireStatus(t, err, http.StatusBadRequest)

	changes := f.env.dispatcher.ofType(events.EventClaimStatusChanged)
	require.Len(t, changes, 2)
}

func TestOperatorClaimScope(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	mine := f.claim(t, "mine", &f.op.UserID)
	other := f.claim(t, "unassigned", nil)

	claims, total, err := f.env.claims.List(ctx, f.op, ClaimListInput{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, mine.ID, claims[0].ID)

	_, err = f.env.claims.Get(ctx, f.op, other.ID)
	requireStatus(t, err, http.StatusForbidden)

	_, _, err = f.env.claims.List(ctx, f.op, ClaimListInput{ClientID: &f.client.ID})
	requireStatus(t, err, http.StatusForbidden)

	_, _, err = f.env.claims.List(ctx, f.op, ClaimListInput{AssignedToID: &f.admin.UserID})
	requireStatus(t, err, http.StatusForbidden)

	_, err = f.env.claims.Assign(ctx, f.op, other.ID, &f.op.UserID)
	domainErr := requireStatus(t, err, http.StatusForbidden)
	assert.Equal(t, "Only admins and supervisors can assign claims", domainErr.Message)

	title := "hijacked"
	_, err = f.env.claims.Update(ctx, f.op, other.ID, ClaimUpdateInput{Title: &title})
	domainErr = requireStatus(t, err, http.StatusForbidden)
	assert.Equal(t, "Access denied to this claim", domainErr.Message)

	_, err = f.env.claims.UpdateStatus(ctx, f.op, other.ID, domain.ClaimStatusResolved, "done")
	requireStatus(t, err, http.StatusForbidden)

	untouched, err := f.env.claims.Get(ctx, f.admin, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "unassigned", untouched.Title)
	assert.Equal(t, domain.ClaimStatusOpen, untouched.Status)
	assert.Nil(t, untouched.ResolvedAt)

	_, err = f.env.claims.UpdateStatus(ctx, f.op, mine.ID, domain.ClaimStatusInProgress, "")
	require.NoError(t, err)
}

func TestPortalClaimScope(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	own := f.claim(t, "own", nil)

	otherClient := f.env.client(t, f.admin, "other@example.com")
	foreign, err := f.env.claims.Create(ctx, f.admin, ClaimCreateInput{Title: "foreign", Description: "d", ClientID: otherClient.ID})
	require.NoError(t, err)

	claims, total, err := f.env.portal.Claims(ctx, f.portal, ClaimListInput{ClientID: &otherClient.ID, AssignedToID: &f.admin.UserID})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, own.ID, claims[0].ID)

	_, err = f.env.portal.Claim(ctx, f.portal, foreign.ID)
	requireStatus(t, err, http.StatusForbidden)

	_, _, err = f.env.claims.List(ctx, f.portal, ClaimListInput{ClientID: &otherClient.ID})
	requireStatus(t, err, http.StatusForbidden)

	created, err := f.env.portal.CreateClaim(ctx, f.portal, PortalClaimInput{Title: "From portal", Description: "help", Priority: domain.ClaimPriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, f.client.ID, created.ClientID)
	assert.Equal(t, domain.ClaimPriorityHigh, created.Priority)

	activities := f.env.store.Activities()
	assert.Equal(t, `Claim "From portal" created via portal`, activities[len(activities)-1].Description)
}

func TestClaimAttachments(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	claim := f.claim(t, "Broken modem", nil)

	attachment, err := f.env.portal.AddAttachment(ctx, f.portal, claim.ID, textUpload("notes.txt", "modem log"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", attachment.OriginalName)
	assert.Equal(t, int64(9), attachment.Size)

	meta, body, err := f.env.portal.OpenAttachment(ctx, f.portal, claim.ID, attachment.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "modem log", string(data))
	assert.Equal(t, "text/plain", meta.MimeType)

	loaded, err := f.env.claims.Get(ctx, f.admin, claim.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Attachments, 1)

	_, err = f.env.claims.AddAttachment(ctx, f.admin, claim.ID, Upload{Filename: "a.exe", ContentType: "application/x-msdownload", Size: 3, Body: strings.NewReader("abc")})
	requireStatus(t, err, http.StatusBadRequest)
	_, err = f.env.claims.AddAttachment(ctx, f.admin, claim.ID, textUpload("big.txt", strings.Repeat("x", 2048)))
	requireStatus(t, err, http.StatusBadRequest)

	_, err = f.env.claims.DeleteAttachment(ctx, f.op, claim.ID, attachment.ID)
	requireStatus(t, err, http.StatusForbidden)

	other := f.claim(t, "Other", nil)
	_, err = f.env.claims.DeleteAttachment(ctx, f.admin, other.ID, attachment.ID)
	requireStatus(t, err, http.StatusNotFound)

	updated, err := f.env.claims.DeleteAttachment(ctx, f.admin, claim.ID, attachment.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.ID, updated.ID)
	assert.Empty(t, updated.Attachments)
	_, err = f.env.files.Open(ctx, attachment.Path)
	assert.Error(t, err)
}

func TestAttachmentDownloadChecksClaimAccess(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	claim := f.claim(t, "Broken modem", nil)
	attachment, err := f.env.claims.AddAttachment(ctx, f.admin, claim.ID, textUpload("notes.txt", "modem log"))
	require.NoError(t, err)

	second := f.env.client(t, f.admin, "second@example.com")
	secondPortal := f.env.portalIdentity(t, f.admin, second)
	secondClaim, err := f.env.portal.CreateClaim(ctx, secondPortal, PortalClaimInput{Title: "Mine", Description: "d"})
	require.NoError(t, err)

	_, _, err = f.env.portal.OpenAttachment(ctx, secondPortal, claim.ID, attachment.ID)
	requireStatus(t, err, http.StatusForbidden)

	_, _, err = f.env.claims.OpenAttachment(ctx, f.op, claim.ID, attachment.ID)
	requireStatus(t, err, http.StatusForbidden)

	_, _, err = f.env.portal.OpenAttachment(ctx, secondPortal, secondClaim.ID, attachment.ID)
	requireStatus(t, err, http.StatusNotFound)

	_, _, err = f.env.claims.OpenAttachment(ctx, f.admin, secondClaim.ID, attachment.ID)
	requireStatus(t, err, http.StatusNotFound)

	_, body, err := f.env.claims.OpenAttachment(ctx, f.admin, claim.ID, attachment.ID)
	require.NoError(t, err)
	require.NoError(t, body.Close())
}

// undeletableStore stores files normally but can never remove them.
type undeletableStore struct {
	storage.FileStore
}

func (undeletableStore) Delete(context.Context, string) error {
	return errors.New("permission denied")
}

func TestFileRemovalFailureDoesNotFailDelete(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	claims := NewClaimService(ClaimDependencies{
		ClaimRepo:      f.env.store.ClaimRepo(),
		AttachmentRepo: f.env.store.AttachmentRepo(),
		ClientRepo:     f.env.store.ClientRepo(),
		UserRepo:       f.env.store.UserRepo(),
		TxManager:      f.env.store.TxManager(),
		Activity:       NewActivityRecorder(f.env.store.ActivityRepo()),
		FileStore:      undeletableStore{FileStore: f.env.files},
		MaxUploadSize:  1024,
		Dispatcher:     f.env.dispatcher,
		Logger:         zap.New(core),
		Now:            func() time.Time { return testNow },
	})
	claim := f.claim(t, "Broken modem", nil)

	first, err := claims.AddAttachment(ctx, f.admin, claim.ID, textUpload("one.txt", "1"))
	require.NoError(t, err)
	_, err = claims.AddAttachment(ctx, f.admin, claim.ID, textUpload("two.txt", "2"))
	require.NoError(t, err)

	updated, err := claims.DeleteAttachment(ctx, f.admin, claim.ID, first.ID)
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 1)
	assert.Equal(t, "two.txt", updated.Attachments[0].OriginalName)
	_, err = f.env.store.AttachmentRepo().GetByID(ctx, first.ID)
	assert.Error(t, err)

	require.NoError(t, claims.Delete(ctx, f.admin, claim.ID))
	_, err = claims.Get(ctx, f.admin, claim.ID)
	requireStatus(t, err, http.StatusNotFound)
	remaining, err := f.env.store.AttachmentRepo().ListByClaim(ctx, claim.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	warnings := logs.FilterMessage("remove attachment file")
	require.Equal(t, 2, warnings.Len())
	assert.Equal(t, first.ID, warnings.All()[0].ContextMap()["attachment_id"])
	assert.Equal(t, "permission denied", warnings.All()[0].ContextMap()["error"])
}

func TestAttachmentFileRemovedWhenInsertFails(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	claim := f.claim(t, "Broken modem", nil)

	f.env.store.FailNext("activities.Create", errors.New("disk full"))
	_, err := f.env.claims.AddAttachment(ctx, f.admin, claim.ID, textUpload("notes.txt", "log"))
	require.Error(t, err)

	loaded, err := f.env.claims.Get(ctx, f.admin, claim.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Attachments)
}

func TestClaimStats(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	first := f.claim(t, "one", nil)
	f.claim(t, "two", nil)
	third := f.claim(t, "three", nil)

	_, err := f.env.claims.UpdateStatus(ctx, f.admin, first.ID, domain.ClaimStatusResolved, "fixed")
	require.NoError(t, err)
	_, err = f.env.claims.UpdateStatus(ctx, f.admin, third.ID, domain.ClaimStatusInProgress, "")
	require.NoError(t, err)
	resolvedAt := testNow
	f.env.store.SetClaimTimes(first.ID, testNow.Add(-36*time.Hour), &resolvedAt)

	stats, err := f.env.claims.Stats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.OpenClaims)
	assert.Equal(t, 1, stats.ResolvedThisMonth)
	assert.Equal(t, 36.0, stats.AverageResolutionTime)
	assert.Equal(t, []domain.StatusCount{
		{Status: "OPEN", Count: 1},
		{Status: "IN_PROGRESS", Count: 1},
		{Status: "RESOLVED", Count: 1},
	}, stats.ByStatus)
	assert.Equal(t, []domain.PriorityCount{{Priority: "MEDIUM", Count: 3}}, stats.ByPriority)

	_, err = f.env.claims.Stats(ctx, f.portal)
	requireStatus(t, err, http.StatusForbidden)
}

func TestClaimDeleteRequiresManager(t *testing.T) {
	f := newClaimFixture(t)
	ctx := context.Background()
	claim := f.claim(t, "one", &f.op.UserID)

	err := f.env.claims.Delete(ctx, f.op, claim.ID)
	requireStatus(t, err, http.StatusForbidden)

	require.NoError(t, f.env.claims.Delete(ctx, f.admin, claim.ID))
	_, err = f.env.claims.Get(ctx, f.admin, claim.ID)
	requireStatus(t, err, http.StatusNotFound)
}
