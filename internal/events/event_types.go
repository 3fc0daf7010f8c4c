package events

import (
	"time"

	"github.com/spec-kit/crm-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventLeadConverted        EventType = "lead.converted"
	EventClaimCreated         EventType = "claim.created"
	EventClaimStatusChanged   EventType = "claim.status_changed"
	EventClaimAssigned        EventType = "claim.assigned"
	EventPortalAccountCreated EventType = "portal.account_created"
)

// Actor identifies the user that triggered an event.
type Actor struct {
	UserID string      `json:"userId"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Subject   string    `json:"subject"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// LeadConvertedPayload payload.
type LeadConvertedPayload struct {
	LeadID       string  `json:"leadId"`
	ClientID     string  `json:"clientId"`
	ClientName   string  `json:"clientName"`
	PortalUserID *string `json:"portalUserId,omitempty"`
}

// ClaimCreatedPayload payload.
type ClaimCreatedPayload struct {
	ClientID     string               `json:"clientId"`
	Title        string               `json:"title"`
	Priority     domain.ClaimPriority `json:"priority"`
	AssignedToID *string              `json:"assignedToId,omitempty"`
	ViaPortal    bool                 `json:"viaPortal"`
}

// ClaimStatusChangedPayload payload.
type ClaimStatusChangedPayload struct {
	ClientID  string             `json:"clientId"`
	OldStatus domain.ClaimStatus `json:"oldStatus"`
	NewStatus domain.ClaimStatus `json:"newStatus"`
}

// ClaimAssignedPayload payload.
type ClaimAssignedPayload struct {
	AssignedToID *string `json:"assignedToId,omitempty"`
}

// PortalAccountCreatedPayload carries the one-time credential for the new
// portal login. It is only ever handed to the notification channel.
type PortalAccountCreatedPayload struct {
	ClientID     string `json:"clientId"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	TempPassword string `json:"-"`
}
