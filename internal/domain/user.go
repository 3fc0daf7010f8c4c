package domain

import "time"

// User is a staff member or a portal login.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Ref returns the compact reference embedded in other resources.
func (u User) Ref() *UserRef {
	return &UserRef{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

// UserRef is the summary of a user embedded in leads, claims and activities.
type UserRef struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// UserCounts are the workload counters shown on a user's detail page.
type UserCounts struct {
	CreatedLeads   int
	AssignedLeads  int
	AssignedClaims int
}
