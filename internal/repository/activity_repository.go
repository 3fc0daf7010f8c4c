package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ActivityFilter selects audit entries. Zero values do not filter.
type ActivityFilter struct {
	UserID   *string
	LeadID   *string
	ClientID *string
	ClaimID  *string
	Limit    int
}

// ActivityRepository appends and reads the audit log. Entries are never updated.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListRecent(ctx context.Context, filter ActivityFilter) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (action, description, metadata, user_id, lead_id, client_id, claim_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	var metadata any
	if len(activity.Metadata) > 0 {
		metadata = activity.Metadata
	}
	return querier(ctx, r.pool).QueryRow(ctx, query,
		activity.Action,
		activity.Description,
		metadata,
		activity.UserID,
		activity.LeadID,
		activity.ClientID,
		activity.ClaimID,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) ListRecent(ctx context.Context, filter ActivityFilter) ([]domain.Activity, error) {
	where := newWhere()
	if filter.UserID != nil {
		where.add("a.user_id=%s", *filter.UserID)
	}
	if filter.LeadID != nil {
		where.add("a.lead_id=%s", *filter.LeadID)
	}
	if filter.ClientID != nil {
		where.add("a.client_id=%s", *filter.ClientID)
	}
	if filter.ClaimID != nil {
		where.add("a.claim_id=%s", *filter.ClaimID)
	}
	limit := filter.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}

	query := `
        SELECT a.id, a.action, a.description, a.metadata, a.user_id, a.lead_id, a.client_id, a.claim_id, a.created_at,
               u.first_name, u.last_name, u.email
        FROM activities a
        JOIN users u ON u.id = a.user_id` + where.String() + ` ORDER BY a.created_at DESC LIMIT ` + itoa(limit)

	rows, err := querier(ctx, r.pool).Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		var (
			activity domain.Activity
			user     domain.UserRef
		)
		if err := rows.Scan(
			&activity.ID,
			&activity.Action,
			&activity.Description,
			&activity.Metadata,
			&activity.UserID,
			&activity.LeadID,
			&activity.ClientID,
			&activity.ClaimID,
			&activity.CreatedAt,
			&user.FirstName,
			&user.LastName,
			&user.Email,
		); err != nil {
			return nil, err
		}
		user.ID = activity.UserID
		activity.User = &user
		activities = append(activities, activity)
	}
	return activities, rows.Err()
}
