package domain

import "time"

// ClaimStatus enumerates support claim lifecycle states.
type ClaimStatus string

const (
	ClaimStatusOpen       ClaimStatus = "OPEN"
	ClaimStatusInProgress ClaimStatus = "IN_PROGRESS"
	ClaimStatusResolved   ClaimStatus = "RESOLVED"
	ClaimStatusClosed     ClaimStatus = "CLOSED"
)

var ClaimStatuses = []ClaimStatus{
	ClaimStatusOpen, ClaimStatusInProgress, ClaimStatusResolved, ClaimStatusClosed,
}

func (s ClaimStatus) Valid() bool {
	for _, candidate := range ClaimStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Finished reports whether the status counts as resolution.
func (s ClaimStatus) Finished() bool {
	return s == ClaimStatusResolved || s == ClaimStatusClosed
}

// ClaimPriority enumerates urgency.
type ClaimPriority string

const (
	ClaimPriorityLow    ClaimPriority = "LOW"
	ClaimPriorityMedium ClaimPriority = "MEDIUM"
	ClaimPriorityHigh   ClaimPriority = "HIGH"
	ClaimPriorityUrgent ClaimPriority = "URGENT"
)

var ClaimPriorities = []ClaimPriority{
	ClaimPriorityLow, ClaimPriorityMedium, ClaimPriorityHigh, ClaimPriorityUrgent,
}

func (p ClaimPriority) Valid() bool {
	for _, candidate := range ClaimPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// Claim is a support ticket raised by or for a client.
type Claim struct {
	ID           string
	Title        string
	Description  string
	Status       ClaimStatus
	Priority     ClaimPriority
	Resolution   *string
	ClientID     string
	CreatedByID  string
	AssignedToID *string
	ResolvedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Client      *ClientRef
	CreatedBy   *UserRef
	AssignedTo  *UserRef
	Attachments []ClaimAttachment
}

// TransitionTo moves the claim to status. ResolvedAt is stamped on the first
// entry into RESOLVED or CLOSED and never cleared. An empty resolution keeps
// the previous text.
func (c *Claim) TransitionTo(status ClaimStatus, resolution string, now time.Time) {
	c.Status = status
	if resolution != "" {
		r := resolution
		c.Resolution = &r
	}
	if status.Finished() && c.ResolvedAt == nil {
		t := now
		c.ResolvedAt = &t
	}
}

// ClaimAttachment is a file uploaded against a claim.
type ClaimAttachment struct {
	ID           string
	ClaimID      string
	Filename     string
	OriginalName string
	MimeType     string
	Size         int64
	Path         string
	CreatedAt    time.Time
}
