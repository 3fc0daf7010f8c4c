package repository

import (
	"strconv"
	"strings"

	"github.com/spec-kit/crm-service/internal/domain"
)

// nullableUserRef receives the columns of a LEFT JOINed user.
type nullableUserRef struct {
	FirstName *string
	LastName  *string
	Email     *string
}

func (n nullableUserRef) ref(id *string) *domain.UserRef {
	if id == nil || n.FirstName == nil {
		return nil
	}
	ref := &domain.UserRef{ID: *id, FirstName: *n.FirstName}
	if n.LastName != nil {
		ref.LastName = *n.LastName
	}
	if n.Email != nil {
		ref.Email = *n.Email
	}
	return ref
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
