package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/mocks"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/storage"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

const testBcryptCost = 4

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) ofType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store      *mocks.Store
	dispatcher *recordingDispatcher
	files      *storage.LocalStore

	auth      *AuthService
	users     *UserService
	leads     *LeadService
	clients   *ClientService
	products  *ProductService
	claims    *ClaimService
	dashboard *DashboardService
	portal    *PortalService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithTokens(t, nil)
}

func newTestEnvWithTokens(t *testing.T, refreshTokens repository.RefreshTokenRepository) *testEnv {
	t.Helper()
	store := mocks.NewStore()
	dispatcher := &recordingDispatcher{}
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	now := func() time.Time { return testNow }
	activity := NewActivityRecorder(store.ActivityRepo())

	env := &testEnv{store: store, dispatcher: dispatcher, files: files}
	env.auth = NewAuthService(config.AuthConfig{
		JWTSecret:             "access-secret",
		JWTRefreshSecret:      "refresh-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  1,
		BcryptCost:            testBcryptCost,
	}, AuthDependencies{
		UserRepo:         store.UserRepo(),
		ClientRepo:       store.ClientRepo(),
		RefreshTokenRepo: refreshTokens,
	})
	env.users = NewUserService(UserDependencies{UserRepo: store.UserRepo(), BcryptCost: testBcryptCost})
	env.leads = NewLeadService(LeadDependencies{
		LeadRepo:   store.LeadRepo(),
		ClientRepo: store.ClientRepo(),
		UserRepo:   store.UserRepo(),
		TxManager:  store.TxManager(),
		Activity:   activity,
		Dispatcher: dispatcher,
		BcryptCost: testBcryptCost,
		Now:        now,
	})
	env.clients = NewClientService(ClientDependencies{
		ClientRepo:       store.ClientRepo(),
		ProductRepo:      store.ProductRepo(),
		SubscriptionRepo: store.SubscriptionRepo(),
		UserRepo:         store.UserRepo(),
		TxManager:        store.TxManager(),
		Activity:         activity,
		Dispatcher:       dispatcher,
		BcryptCost:       testBcryptCost,
		Now:              now,
	})
	env.products = NewProductService(ProductDependencies{
		ProductRepo:      store.ProductRepo(),
		SubscriptionRepo: store.SubscriptionRepo(),
	})
	env.claims = NewClaimService(ClaimDependencies{
		ClaimRepo:      store.ClaimRepo(),
		AttachmentRepo: store.AttachmentRepo(),
		ClientRepo:     store.ClientRepo(),
		UserRepo:       store.UserRepo(),
		TxManager:      store.TxManager(),
		Activity:       activity,
		FileStore:      files,
		MaxUploadSize:  1024,
		Dispatcher:     dispatcher,
		Now:            now,
	})
	env.dashboard = NewDashboardService(DashboardDependencies{
		UserRepo:         store.UserRepo(),
		LeadRepo:         store.LeadRepo(),
		ClientRepo:       store.ClientRepo(),
		ClaimRepo:        store.ClaimRepo(),
		SubscriptionRepo: store.SubscriptionRepo(),
		Activity:         activity,
	})
	env.portal = NewPortalService(PortalDependencies{
		ClientRepo:       store.ClientRepo(),
		SubscriptionRepo: store.SubscriptionRepo(),
		TxManager:        store.TxManager(),
		Activity:         activity,
		Claims:           env.claims,
		Dashboard:        env.dashboard,
	})
	return env
}

// staff stores an active user with role and returns its identity.
func (e *testEnv) staff(t *testing.T, role domain.Role, email string) domain.Identity {
	t.Helper()
	hash, err := auth.HashPassword("Secret123", testBcryptCost)
	require.NoError(t, err)
	user := &domain.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     string(role),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, e.store.UserRepo().Create(context.Background(), user))
	return domain.Identity{UserID: user.ID, Email: user.Email, Role: role, FirstName: user.FirstName, LastName: user.LastName}
}

func (e *testEnv) client(t *testing.T, admin domain.Identity, email string) *domain.Client {
	t.Helper()
	client, err := e.clients.Create(context.Background(), admin, ClientCreateInput{
		FirstName: "Client",
		LastName:  email,
		Email:     email,
	})
	require.NoError(t, err)
	return client
}

// portalIdentity creates a portal login for client and returns the caller identity.
func (e *testEnv) portalIdentity(t *testing.T, admin domain.Identity, client *domain.Client) domain.Identity {
	t.Helper()
	linked, err := e.clients.CreatePortalAccount(context.Background(), admin, client.ID, "")
	require.NoError(t, err)
	require.NotNil(t, linked.UserID)
	clientID := linked.ID
	return domain.Identity{UserID: *linked.UserID, Email: linked.Email, Role: domain.RoleClient, ClientID: &clientID}
}

func (e *testEnv) product(t *testing.T, admin domain.Identity, name string, price float64, cycle domain.BillingCycle) *ProductDetail {
	t.Helper()
	product, err := e.products.Create(context.Background(), admin, ProductCreateInput{Name: name, Price: price, BillingCycle: cycle})
	require.NoError(t, err)
	return product
}

func requireStatus(t *testing.T, err error, status int) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, status, domainErr.HTTPStatus, domainErr.Message)
	return domainErr
}
