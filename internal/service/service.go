package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/authz"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

// notFound converts a missing row into a typed NotFound for resource.
func notFound(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

// isNotFound reports whether err is a missing row.
func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// requireManager rejects anyone below SUPERVISOR with message.
func requireManager(actor domain.Identity, message string) error {
	if authz.CanManage(actor) {
		return nil
	}
	return apperrors.NewForbidden(message)
}

func eventActor(actor domain.Identity) events.Actor {
	return events.Actor{UserID: actor.UserID, Role: actor.Role}
}

// publish hands event to the dispatcher. Delivery never fails the caller.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil && logger != nil {
		logger.Warn("publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func repoClaimScope(scope authz.ClaimScope) repository.ClaimScope {
	return repository.ClaimScope{AssignedToID: scope.AssignedToID, ClientID: scope.ClientID}
}

// round1 rounds to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// percentage returns part/total as a percentage rounded to one decimal.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

// optional trims s and returns nil when nothing is left.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// applyText applies a nullable text patch, treating blank strings as null.
func applyText(patch domain.Nullable[string], dst **string) {
	if !patch.Set {
		return
	}
	*dst = optional(patch.Value)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nowFunc(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func nopLogger(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// lookupAssignee validates an optional assignee id.
func lookupAssignee(ctx context.Context, users repository.UserRepository, id *string) (*domain.User, error) {
	if id == nil || *id == "" {
		return nil, nil
	}
	user, err := users.GetByID(ctx, *id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewBadRequest("Assignee user not found")
		}
		return nil, err
	}
	return user, nil
}
