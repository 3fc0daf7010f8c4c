package domain

import "time"

// ActivityAction tags an audit log entry.
type ActivityAction string

const (
	ActionCreated           ActivityAction = "CREATED"
	ActionUpdated           ActivityAction = "UPDATED"
	ActionDeleted           ActivityAction = "DELETED"
	ActionStatusChanged     ActivityAction = "STATUS_CHANGED"
	ActionAssigned          ActivityAction = "ASSIGNED"
	ActionConverted         ActivityAction = "CONVERTED"
	ActionProductAdded      ActivityAction = "PRODUCT_ADDED"
	ActionProductUpdated    ActivityAction = "PRODUCT_UPDATED"
	ActionProductRemoved    ActivityAction = "PRODUCT_REMOVED"
	ActionAttachmentAdded   ActivityAction = "ATTACHMENT_ADDED"
	ActionAttachmentDeleted ActivityAction = "ATTACHMENT_DELETED"
	ActionPortalCreated     ActivityAction = "PORTAL_CREATED"
)

// Activity is an append-only audit entry.
type Activity struct {
	ID          string
	Action      ActivityAction
	Description string
	Metadata    map[string]any
	UserID      string
	LeadID      *string
	ClientID    *string
	ClaimID     *string
	CreatedAt   time.Time

	User *UserRef
}
