//go:build integration

package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/repository"
	apperrors "github.com/spec-kit/crm-service/pkg/util"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("crm_test"),
		postgres.WithUsername("crm"),
		postgres.WithPassword("crm_test"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := zap.NewNop()
	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", logger))
	// applying twice must be a no-op
	require.NoError(t, persistence.RunMigrations(ctx, pool, "../../migrations", logger))
	return pool
}

func TestPostgresRepositories(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	users := repository.NewUserRepository(pool)
	leads := repository.NewLeadRepository(pool)
	tx := repository.NewTxManager(pool)

	owner := &domain.User{Email: "Owner@Example.com", PasswordHash: "x", FirstName: "Olga", LastName: "Owner", Role: domain.RoleOperator, IsActive: true}
	require.NoError(t, users.Create(ctx, owner))

	found, err := users.GetByEmail(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, found.ID)

	t.Run("unique email maps to a bad request", func(t *testing.T) {
		err := users.Create(ctx, &domain.User{Email: "OWNER@example.com", PasswordHash: "x", FirstName: "A", LastName: "B", Role: domain.RoleOperator, IsActive: true})
		require.Error(t, err)
		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, 400, domainErr.HTTPStatus)
		assert.Equal(t, "A record with this email already exists", domainErr.Message)
	})

	t.Run("rolled back writes are not visible", func(t *testing.T) {
		boom := errors.New("boom")
		err := tx.RunInTx(ctx, func(ctx context.Context) error {
			if err := leads.Create(ctx, &domain.Lead{FirstName: "Ghost", LastName: "Lead", Email: "ghost@example.com", Status: domain.LeadStatusNew, CreatedByID: owner.ID}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, total, err := leads.List(ctx, repository.LeadFilter{})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("lead round trip", func(t *testing.T) {
		value := 1250.5
		lead := &domain.Lead{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Status: domain.LeadStatusNew, EstimatedValue: &value, CreatedByID: owner.ID}
		require.NoError(t, leads.Create(ctx, lead))

		loaded, err := leads.GetByID(ctx, lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "Grace", loaded.FirstName)
		require.NotNil(t, loaded.EstimatedValue)
		assert.InDelta(t, 1250.5, *loaded.EstimatedValue, 0.001)

		visible, total, err := leads.List(ctx, repository.LeadFilter{VisibleTo: &owner.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, visible, 1)

		require.NoError(t, leads.Delete(ctx, lead.ID))
		_, err = leads.GetByID(ctx, lead.ID)
		assert.ErrorIs(t, err, pgx.ErrNoRows)
	})
}
