package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/events"
)

// NotificationService turns domain events into outbound email and webhook
// notifications. Delivery is stubbed through the logger.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     nopLogger(logger),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventLeadConverted, n.handleLeadConverted)
	n.dispatcher.Subscribe(events.EventClaimCreated, n.handleClaimCreated)
	n.dispatcher.Subscribe(events.EventClaimStatusChanged, n.handleClaimStatusChanged)
	n.dispatcher.Subscribe(events.EventClaimAssigned, n.handleClaimAssigned)
	n.dispatcher.Subscribe(events.EventPortalAccountCreated, n.handlePortalAccountCreated)
}

func (n *NotificationService) handleLeadConverted(ctx context.Context, event events.Event) error {
	n.logger.Info("LeadConverted", zap.String("lead_id", event.Subject), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClaimCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimCreated", zap.String("claim_id", event.Subject), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event, "")
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClaimStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimStatusChanged", zap.String("claim_id", event.Subject), zap.Any("payload", event.Payload))
	if payload, ok := event.Payload.(events.ClaimStatusChangedPayload); ok && payload.NewStatus.Finished() {
		n.sendEmailNotificationStub(ctx, event, "")
	}
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleClaimAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ClaimAssigned", zap.String("claim_id", event.Subject), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// handlePortalAccountCreated delivers the welcome email. The temporary
// password is never written to the log.
func (n *NotificationService) handlePortalAccountCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PortalAccountCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("PortalAccountCreated",
		zap.String("client_id", payload.ClientID),
		zap.String("user_id", payload.UserID),
		zap.Bool("temporary_password", payload.TempPassword != ""))
	n.sendEmailNotificationStub(ctx, event, payload.Email)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, to string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("subject", event.Subject),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("subject", event.Subject),
		zap.String("event_type", string(event.Type)))
}
