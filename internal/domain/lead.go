package domain

import "time"

// LeadStatus enumerates the sales pipeline stages.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "NEW"
	LeadStatusContacted LeadStatus = "CONTACTED"
	LeadStatusQualified LeadStatus = "QUALIFIED"
	LeadStatusConverted LeadStatus = "CONVERTED"
	LeadStatusLost      LeadStatus = "LOST"
)

// LeadStatuses lists every lead status in pipeline order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusConverted, LeadStatusLost,
}

func (s LeadStatus) Valid() bool {
	for _, candidate := range LeadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Locked reports whether no further status change is allowed. LOST can still be reopened.
func (s LeadStatus) Locked() bool {
	return s == LeadStatusConverted
}

// Lead is a prospective customer.
type Lead struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	Phone          *string
	Company        *string
	Source         *string
	Status         LeadStatus
	Notes          *string
	EstimatedValue *float64
	CreatedByID    string
	AssignedToID   *string
	ConvertedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	CreatedBy  *UserRef
	AssignedTo *UserRef
}

func (l Lead) FullName() string {
	return l.FirstName + " " + l.LastName
}
