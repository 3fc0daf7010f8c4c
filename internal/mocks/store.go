// Package mocks provides in-memory repositories for service and handler tests.
// They honour the same uniqueness constraints as the Postgres schema.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/repository"
)

// Store is a shared in-memory database backing every mock repository.
type Store struct {
	mu sync.Mutex

	users       map[string]domain.User
	leads       map[string]domain.Lead
	clients     map[string]domain.Client
	products    map[string]domain.Product
	subs        map[string]domain.ClientProduct
	claims      map[string]domain.Claim
	attachments map[string]domain.ClaimAttachment
	activities  []domain.Activity

	clock    time.Time
	failures map[string]error
}

// NewStore returns an empty store whose clock starts at a fixed instant and
// advances one second per write.
func NewStore() *Store {
	return &Store{
		users:       map[string]domain.User{},
		leads:       map[string]domain.Lead{},
		clients:     map[string]domain.Client{},
		products:    map[string]domain.Product{},
		subs:        map[string]domain.ClientProduct{},
		claims:      map[string]domain.Claim{},
		attachments: map[string]domain.ClaimAttachment{},
		clock:       time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		failures:    map[string]error{},
	}
}

// FailNext makes the next call of op (for example "leads.Update") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Activities returns a copy of the audit log in insertion order.
func (s *Store) Activities() []domain.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Activity, len(s.activities))
	copy(out, s.activities)
	return out
}

// ClientCount returns the number of stored clients.
func (s *Store) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// UserCount returns the number of stored users.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) UserRepo() repository.UserRepository                 { return &userRepo{s} }
func (s *Store) LeadRepo() repository.LeadRepository                 { return &leadRepo{s} }
func (s *Store) ClientRepo() repository.ClientRepository             { return &clientRepo{s} }
func (s *Store) ProductRepo() repository.ProductRepository           { return &productRepo{s} }
func (s *Store) SubscriptionRepo() repository.SubscriptionRepository { return &subscriptionRepo{s} }
func (s *Store) ClaimRepo() repository.ClaimRepository               { return &claimRepo{s} }
func (s *Store) AttachmentRepo() repository.AttachmentRepository     { return &attachmentRepo{s} }
func (s *Store) ActivityRepo() repository.ActivityRepository         { return &activityRepo{s} }
func (s *Store) TxManager() repository.TxManager                     { return &txManager{s} }

// fail consumes a scheduled failure for op. Caller holds mu.
func (s *Store) fail(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// tick advances the fake clock. Caller holds mu.
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func newID() string {
	return uuid.NewString()
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: fmt.Sprintf("duplicate key value violates unique constraint %q", constraint)}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "violates foreign key constraint"}
}

func contains(value, term string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(strings.TrimSpace(term)))
}

func containsPtr(value *string, term string) bool {
	return value != nil && contains(*value, term)
}

func paginate[T any](items []T, page repository.Page) []T {
	p := page.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func eqPtr(a *string, b string) bool {
	return a != nil && *a == b
}

// snapshot is a deep enough copy of the store to restore on rollback.
type snapshot struct {
	users       map[string]domain.User
	leads       map[string]domain.Lead
	clients     map[string]domain.Client
	products    map[string]domain.Product
	subs        map[string]domain.ClientProduct
	claims      map[string]domain.Claim
	attachments map[string]domain.ClaimAttachment
	activities  []domain.Activity
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	acts := make([]domain.Activity, len(s.activities))
	copy(acts, s.activities)
	return snapshot{
		users:       copyMap(s.users),
		leads:       copyMap(s.leads),
		clients:     copyMap(s.clients),
		products:    copyMap(s.products),
		subs:        copyMap(s.subs),
		claims:      copyMap(s.claims),
		attachments: copyMap(s.attachments),
		activities:  acts,
	}
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.leads = snap.leads
	s.clients = snap.clients
	s.products = snap.products
	s.subs = snap.subs
	s.claims = snap.claims
	s.attachments = snap.attachments
	s.activities = snap.activities
}

type txKey struct{}

// txManager emulates a transaction by snapshotting the store and restoring it on error.
type txManager struct{ s *Store }

func (m *txManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	snap := m.s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			m.s.restore(snap)
			panic(p)
		}
		if err != nil {
			m.s.restore(snap)
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, true))
}
