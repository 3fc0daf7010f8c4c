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
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// ClientService manages billing clients and their subscriptions.
type ClientService struct {
	clients       repository.ClientRepository
	products      repository.ProductRepository
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	tx            repository.TxManager
	activity      *ActivityRecorder
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	bcryptCost    int
	now           func() time.Time
}

// ClientDependencies bundles repositories for the client service.
type ClientDependencies struct {
	ClientRepo       repository.ClientRepository
	ProductRepo      repository.ProductRepository
	SubscriptionRepo repository.SubscriptionRepository
	UserRepo         repository.UserRepository
	TxManager        repository.TxManager
	Activity         *ActivityRecorder
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	BcryptCost       int
	Now              func() time.Time
}

// ClientCreateInput describes a new client.
type ClientCreateInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     *string
	Company   *string
	Address   *string
	City      *string
	State     *string
	ZipCode   *string
	Country   *string
	TaxID     *string
}

// ClientUpdateInput describes a partial client update.
type ClientUpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     domain.Nullable[string]
	Company   domain.Nullable[string]
	Address   domain.Nullable[string]
	City      domain.Nullable[string]
	State     domain.Nullable[string]
	ZipCode   domain.Nullable[string]
	Country   domain.Nullable[string]
	TaxID     domain.Nullable[string]
	IsActive  *bool
}

// SubscriptionInput adds a product to a client.
type SubscriptionInput struct {
	ProductID   string
	Quantity    int
	CustomPrice *float64
	StartDate   *time.Time
	EndDate     *time.Time
}

// SubscriptionUpdateInput edits an existing subscription.
type SubscriptionUpdateInput struct {
	Quantity    *int
	CustomPrice domain.Nullable[float64]
	IsActive    *bool
	EndDate     domain.Nullable[time.Time]
}

// NewClientService constructs the service.
func NewClientService(deps ClientDependencies) *ClientService {
	return &ClientService{
		clients:       deps.ClientRepo,
		products:      deps.ProductRepo,
		subscriptions: deps.SubscriptionRepo,
		users:         deps.UserRepo,
		tx:            deps.TxManager,
		activity:      deps.Activity,
		dispatcher:    deps.Dispatcher,
		logger:        nopLogger(deps.Logger),
		bcryptCost:    deps.BcryptCost,
		now:           nowFunc(deps.Now),
	}
}

func (s *ClientService) List(ctx context.Context, actor domain.Identity, filter repository.ClientFilter) ([]domain.Client, int, error) {
	if err := authz.RequireStaff(actor); err != nil {
		return nil, 0, err
	}
	return s.clients.List(ctx, filter)
}

// Get returns a client with all of its subscriptions.
func (s *ClientService) Get(ctx context.Context, actor domain.Identity, id string) (*domain.Client, error) {
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Client", id)
	}
	if err := authz.Authorize(actor, authz.ClientOwner(*client)); err != nil {
		return nil, err
	}
	subs, err := s.subscriptions.ListByClient(ctx, client.ID, false)
	if err != nil {
		return nil, err
	}
	client.Subscriptions = subs
	return client, nil
}

func (s *ClientService) Create(ctx context.Context, actor domain.Identity, input ClientCreateInput) (*domain.Client, error) {
	if err := authz.RequireManager(actor); err != nil {
		return nil, err
	}
	email := normalizeEmail(input.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	client := &domain.Client{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     email,
		Phone:     optional(input.Phone),
		Company:   optional(input.Company),
		Address:   optional(input.Address),
		City:      optional(input.City),
		State:     optional(input.State),
		ZipCode:   optional(input.ZipCode),
		Country:   optional(input.Country),
		TaxID:     optional(input.TaxID),
		IsActive:  true,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.clients.Create(ctx, client); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionCreated,
			fmt.Sprintf("Client %q created", client.FullName()), actor.UserID,
			ActivityRefs{ClientID: ref(client.ID)})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, client.ID)
}

func (s *ClientService) Update(ctx context.Context, actor domain.Identity, id string, input ClientUpdateInput) (*domain.Client, error) {
	if err := authz.RequireManager(actor); err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Client", id)
	}
	if input.Email != nil {
		email := normalizeEmail(*input.Email)
		if email != client.Email {
			if err := s.ensureEmailFree(ctx, email, client.ID); err != nil {
				return nil, err
			}
			client.Email = email
		}
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
	applyText(input.TaxID, &client.TaxID)
	if input.IsActive != nil {
		client.IsActive = *input.IsActive
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.clients.Update(ctx, client); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionUpdated,
			fmt.Sprintf("Client %q updated", client.FullName()), actor.UserID,
			ActivityRefs{ClientID: ref(client.ID)})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, client.ID)
}

// Delete deactivates a client. Clients are kept for their claims and history.
func (s *ClientService) Delete(ctx context.Context, actor domain.Identity, id string) error {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return err
	}
	client, err := s.clients.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "Client", id)
	}
	client.IsActive = false
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.clients.Update(ctx, client); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionDeleted,
			fmt.Sprintf("Client %q deactivated", client.FullName()), actor.UserID,
			ActivityRefs{ClientID: ref(client.ID)})
	})
}

// AddProduct subscribes a client to a product.
func (s *ClientService) AddProduct(ctx context.Context, actor domain.Identity, clientID string, input SubscriptionInput) (*domain.Client, error) {
	if err := authz.RequireManager(actor); err != nil {
		return nil, err
	}
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, notFound(err, "Client", clientID)
	}
	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, notFound(err, "Product", input.ProductID)
	}
	if _, err := s.subscriptions.Get(ctx, clientID, product.ID); err == nil {
		return nil, apperrors.NewBadRequest("Client already has this product")
	} else if !isNotFound(err) {
		return nil, err
	}

	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	start := s.now()
	if input.StartDate != nil {
		start = *input.StartDate
	}
	sub := &domain.ClientProduct{
		ClientID:    clientID,
		ProductID:   product.ID,
		Quantity:    quantity,
		CustomPrice: input.CustomPrice,
		StartDate:   start,
		EndDate:     input.EndDate,
		IsActive:    true,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.subscriptions.Create(ctx, sub); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionProductAdded,
			fmt.Sprintf("Product %q added to client", product.Name), actor.UserID,
			ActivityRefs{ClientID: ref(clientID), Metadata: map[string]any{"productId": product.ID, "quantity": quantity}})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, clientID)
}

// UpdateProduct edits quantity, price override, activity or end date of a subscription.
func (s *ClientService) UpdateProduct(ctx context.Context, actor domain.Identity, clientID, productID string, input SubscriptionUpdateInput) (*domain.Client, error) {
	if err := authz.RequireManager(actor); err != nil {
		return nil, err
	}
	sub, err := s.subscriptions.Get(ctx, clientID, productID)
	if err != nil {
		return nil, notFound(err, "Subscription", productID)
	}
	if input.Quantity != nil {
		sub.Quantity = *input.Quantity
	}
	input.CustomPrice.Apply(&sub.CustomPrice)
	if input.IsActive != nil {
		sub.IsActive = *input.IsActive
	}
	input.EndDate.Apply(&sub.EndDate)

	name := productName(sub)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.subscriptions.Update(ctx, sub); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionProductUpdated,
			fmt.Sprintf("Product %q subscription updated", name), actor.UserID,
			ActivityRefs{ClientID: ref(clientID), Metadata: map[string]any{"productId": productID}})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, clientID)
}

// RemoveProduct deletes a subscription row.
func (s *ClientService) RemoveProduct(ctx context.Context, actor domain.Identity, clientID, productID string) (*domain.Client, error) {
	if err := authz.RequireManager(actor); err != nil {
		return nil, err
	}
	sub, err := s.subscriptions.Get(ctx, clientID, productID)
	if err != nil {
		return nil, notFound(err, "Subscription", productID)
	}
	name := productName(sub)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.subscriptions.Delete(ctx, clientID, productID); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionProductRemoved,
			fmt.Sprintf("Product %q removed from client", name), actor.UserID,
			ActivityRefs{ClientID: ref(clientID), Metadata: map[string]any{"productId": productID}})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, clientID)
}

// Income itemizes the monthly revenue of one client.
func (s *ClientService) Income(ctx context.Context, actor domain.Identity, clientID string) (*domain.ClientIncome, error) {
	if err := authz.RequireManager(actor); err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, notFound(err, "Client", clientID)
	}
	subs, err := s.subscriptions.ListByClient(ctx, client.ID, true)
	if err != nil {
		return nil, err
	}
	income := clientIncome(*client, subs)
	return &income, nil
}

// IncomeReport aggregates revenue across every active subscription.
func (s *ClientService) IncomeReport(ctx context.Context, actor domain.Identity) (*domain.IncomeReport, error) {
	if err := authz.RequireManager(actor); err != nil {
		return nil, err
	}
	subs, err := s.subscriptions.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	report := buildIncomeReport(subs)
	return &report, nil
}

// CreatePortalAccount creates a CLIENT login and links it to the client in one
// transaction. When password is empty a temporary one is generated and handed
// to the notification channel.
func (s *ClientService) CreatePortalAccount(ctx context.Context, actor domain.Identity, clientID, password string) (*domain.Client, error) {
	if err := authz.RequireAnyRole(actor, domain.RoleAdmin); err != nil {
		return nil, err
	}
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, notFound(err, "Client", clientID)
	}
	if client.HasPortalAccess() {
		return nil, apperrors.NewBadRequest("Client already has portal access")
	}
	if _, err := s.users.GetByEmail(ctx, client.Email); err == nil {
		return nil, apperrors.NewBadRequest("A user account with this email already exists")
	} else if !isNotFound(err) {
		return nil, err
	}

	generated := password == ""
	if generated {
		if password, err = auth.GenerateTempPassword(); err != nil {
			return nil, err
		}
	} else if !auth.StrongPassword(password) {
		return nil, apperrors.NewValidationError(weakPasswordMessage, map[string]any{"field": "password"})
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        client.Email,
		PasswordHash: hash,
		FirstName:    client.FirstName,
		LastName:     client.LastName,
		Phone:        client.Phone,
		Role:         domain.RoleClient,
		IsActive:     true,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		client.UserID = ref(user.ID)
		if err := s.clients.Update(ctx, client); err != nil {
			return err
		}
		return s.activity.Record(ctx, domain.ActionPortalCreated, "Portal account created for client", actor.UserID,
			ActivityRefs{ClientID: ref(client.ID)})
	})
	if err != nil {
		return nil, err
	}

	payload := events.PortalAccountCreatedPayload{ClientID: client.ID, UserID: user.ID, Email: user.Email}
	if generated {
		payload.TempPassword = password
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventPortalAccountCreated,
		Subject: client.ID,
		Actor:   eventActor(actor),
		Payload: payload,
	})
	return s.Get(ctx, actor, client.ID)
}

func (s *ClientService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.clients.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != selfID:
		return apperrors.NewBadRequest("A client with this email already exists")
	case err != nil && !isNotFound(err):
		return err
	}
	return nil
}

func productName(sub *domain.ClientProduct) string {
	if sub.Product != nil {
		return sub.Product.Name
	}
	return sub.ProductID
}
