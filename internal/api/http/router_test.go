package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/mocks"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/service"
	"github.com/spec-kit/crm-service/internal/storage"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app   *fiber.App
	store *mocks.Store
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]int  `json:"meta"`
	Error   struct {
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestServer(t *testing.T, redisPing error) *testServer {
	t.Helper()
	logger := zap.NewNop()
	store := mocks.NewStore()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	activity := service.NewActivityRecorder(store.ActivityRepo())

	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "access-secret",
		JWTRefreshSecret:      "refresh-secret",
		AccessTokenTTLMinutes: 15,
		RefreshTokenTTLHours:  1,
		BcryptCost:            4,
	}, service.AuthDependencies{UserRepo: store.UserRepo(), ClientRepo: store.ClientRepo(), Metrics: metrics, Logger: logger})
	leadService := service.NewLeadService(service.LeadDependencies{
		LeadRepo: store.LeadRepo(), ClientRepo: store.ClientRepo(), UserRepo: store.UserRepo(),
		TxManager: store.TxManager(), Activity: activity, Dispatcher: dispatcher, Metrics: metrics, Logger: logger, BcryptCost: 4,
	})
	clientService := service.NewClientService(service.ClientDependencies{
		ClientRepo: store.ClientRepo(), ProductRepo: store.ProductRepo(), SubscriptionRepo: store.SubscriptionRepo(),
		UserRepo: store.UserRepo(), TxManager: store.TxManager(), Activity: activity, Dispatcher: dispatcher, Logger: logger, BcryptCost: 4,
	})
	claimService := service.NewClaimService(service.ClaimDependencies{
		ClaimRepo: store.ClaimRepo(), AttachmentRepo: store.AttachmentRepo(), ClientRepo: store.ClientRepo(),
		UserRepo: store.UserRepo(), TxManager: store.TxManager(), Activity: activity, FileStore: files,
		MaxUploadSize: 1 << 20, Dispatcher: dispatcher, Metrics: metrics, Logger: logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		UserRepo: store.UserRepo(), LeadRepo: store.LeadRepo(), ClientRepo: store.ClientRepo(),
		ClaimRepo: store.ClaimRepo(), SubscriptionRepo: store.SubscriptionRepo(), Activity: activity,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, false)})
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{CORSOrigin: "*"})
	userService := service.NewUserService(service.UserDependencies{UserRepo: store.UserRepo(), BcryptCost: 4})
	productService := service.NewProductService(service.ProductDependencies{ProductRepo: store.ProductRepo(), SubscriptionRepo: store.SubscriptionRepo()})
	portalService := service.NewPortalService(service.PortalDependencies{
		ClientRepo: store.ClientRepo(), SubscriptionRepo: store.SubscriptionRepo(), TxManager: store.TxManager(),
		Activity: activity, Claims: claimService, Dashboard: dashboardService,
	})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("crm-service", "test", stubPinger{}, stubPinger{err: redisPing}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService),
		Leads:          handlers.NewLeadsHandler(leadService),
		Clients:        handlers.NewClientsHandler(clientService),
		Products:       handlers.NewProductsHandler(productService),
		Claims:         handlers.NewClaimsHandler(claimService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		Portal:         handlers.NewPortalHandler(portalService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.UserRepo(), store.ClientRepo()),
		Metrics:        metrics,
	})
	return &testServer{app: app, store: store}
}

func (s *testServer) seedUser(t *testing.T, role domain.Role, email string) {
	t.Helper()
	hash, err := auth.HashPassword("Secret123", 4)
	require.NoError(t, err)
	require.NoError(t, s.store.UserRepo().Create(context.Background(), &domain.User{
		Email: email, PasswordHash: hash, FirstName: "Test", LastName: string(role), Role: role, IsActive: true,
	}))
}

func (s *testServer) do(t *testing.T, req *nethttp.Request, token string) (*nethttp.Response, apiResponse) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	var body apiResponse
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func (s *testServer) json(t *testing.T, method, path, token string, payload any) (int, apiResponse) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp, body := s.do(t, req, token)
	return resp.StatusCode, body
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.json(t, nethttp.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, nethttp.StatusOK, status, body.Message)
	var data struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &data))
	return data.AccessToken
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.json(t, nethttp.MethodGet, "/health", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.True(t, body.Success)

	status, _ = srv.json(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)

	down := newTestServer(t, errors.New("connection refused"))
	status, body = down.json(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body.Error.Code)
	assert.Equal(t, "connection refused", body.Error.Details["redis"])

	resp, err := srv.app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestErrorEnvelope(t *testing.T) {
	srv := newTestServer(t, nil)

	status, body := srv.json(t, nethttp.MethodGet, "/api/leads", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.False(t, body.Success)
	assert.Equal(t, "Access token required", body.Message)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)

	status, body = srv.json(t, nethttp.MethodPost, "/api/auth/login", "", map[string]string{"email": "bad"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body.Message)
	assert.Len(t, body.Error.Details["errors"], 2)

	req := httptest.NewRequest(nethttp.MethodPost, "/api/auth/login", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, body := srv.do(t, req, "")
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid request body", body.Message)
}

func TestLeadLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.seedUser(t, domain.RoleAdmin, "admin@example.com")
	srv.seedUser(t, domain.RoleOperator, "op@example.com")
	admin := srv.login(t, "admin@example.com", "Secret123")
	op := srv.login(t, "op@example.com", "Secret123")

	status, body := srv.json(t, nethttp.MethodPost, "/api/leads", op, map[string]any{
		"firstName": "Grace", "lastName": "Hopper", "email": "grace@example.com", "estimatedValue": 500,
	})
	require.Equal(t, nethttp.StatusCreated, status, body.Message)
	lead := decode[map[string]any](t, body.Data)
	leadID := lead["id"].(string)
	assert.Equal(t, "NEW", lead["status"])

	status, _ = srv.json(t, nethttp.MethodDelete, "/api/leads/"+leadID, op, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = srv.json(t, nethttp.MethodPut, "/api/leads/"+leadID, op, map[string]any{"status": "CONVERTED"})
	assert.Equal(t, nethttp.StatusBadRequest, status)

	status, body = srv.json(t, nethttp.MethodPost, "/api/leads/"+leadID+"/convert", admin, map[string]any{"createPortalAccount": true})
	require.Equal(t, nethttp.StatusCreated, status, body.Message)
	conversion := decode[map[string]any](t, body.Data)
	assert.NotEmpty(t, conversion["clientId"])

	status, body = srv.json(t, nethttp.MethodPatch, "/api/leads/"+leadID+"/status", op, map[string]any{"status": "LOST"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "Cannot change status of converted leads", body.Message)

	status, body = srv.json(t, nethttp.MethodGet, "/api/leads?limit=1", op, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, map[string]int{"page": 1, "limit": 1, "total": 1, "totalPages": 1}, body.Meta)

	status, body = srv.json(t, nethttp.MethodGet, "/api/users", op, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	status, _ = srv.json(t, nethttp.MethodGet, "/api/users/assignable", op, nil)
	assert.Equal(t, nethttp.StatusOK, status)
}

func TestPortalClaimWithAttachment(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.seedUser(t, domain.RoleAdmin, "admin@example.com")
	admin := srv.login(t, "admin@example.com", "Secret123")

	status, body := srv.json(t, nethttp.MethodPost, "/api/clients", admin, map[string]any{
		"firstName": "Ada", "lastName": "Client", "email": "ada@example.com",
	})
	require.Equal(t, nethttp.StatusCreated, status, body.Message)
	clientID := decode[map[string]any](t, body.Data)["id"].(string)

	status, body = srv.json(t, nethttp.MethodPost, "/api/clients/"+clientID+"/create-portal-account", admin, map[string]any{"password": "Portal123"})
	require.Equal(t, nethttp.StatusCreated, status, body.Message)
	portal := srv.login(t, "ada@example.com", "Portal123")

	status, _ = srv.json(t, nethttp.MethodGet, "/api/leads", portal, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)
	status, _ = srv.json(t, nethttp.MethodGet, "/api/portal/profile", admin, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body = srv.json(t, nethttp.MethodPost, "/api/portal/claims", portal, map[string]any{
		"title": "Invoice wrong", "description": "Charged twice", "clientId": "someone-else",
	})
	require.Equal(t, nethttp.StatusCreated, status, body.Message)
	claim := decode[map[string]any](t, body.Data)
	claimID := claim["id"].(string)
	assert.Equal(t, clientID, claim["clientId"])

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="invoice.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(nethttp.MethodPost, "/api/portal/claims/"+claimID+"/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := srv.do(t, req, portal)
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode, body.Message)
	attachment := decode[map[string]any](t, body.Data)
	assert.NotContains(t, attachment, "path")

	req = httptest.NewRequest(nethttp.MethodGet, "/api/portal/claims/"+claimID+"/attachments/"+attachment["id"].(string), nil)
	resp, _ = srv.do(t, req, portal)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "invoice.pdf")
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 fake", string(content))

	req = httptest.NewRequest(nethttp.MethodPost, "/api/portal/claims/"+claimID+"/attachments", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	resp, body = srv.do(t, req, portal)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No file uploaded", body.Message)

	status, body = srv.json(t, nethttp.MethodGet, "/api/dashboard", portal, nil)
	require.Equal(t, nethttp.StatusOK, status)
	dashboard := decode[domain.ClientDashboard](t, body.Data)
	assert.Equal(t, 1, dashboard.Claims.Total)
}
