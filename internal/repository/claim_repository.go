package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ClaimScope restricts claim queries to an assignee or a client. Nil fields do not filter.
type ClaimScope struct {
	AssignedToID *string
	ClientID     *string
}

// ClaimFilter narrows claim listings.
type ClaimFilter struct {
	Scope    ClaimScope
	Status   *domain.ClaimStatus
	Priority *domain.ClaimPriority
	Search   string
	Page     Page
}

// ClaimRepository persists support claims.
type ClaimRepository interface {
	Create(ctx context.Context, claim *domain.Claim) error
	Update(ctx context.Context, claim *domain.Claim) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
	List(ctx context.Context, filter ClaimFilter) ([]domain.Claim, int, error)
	CountByStatus(ctx context.Context, scope ClaimScope) (map[domain.ClaimStatus]int, error)
	CountByPriority(ctx context.Context, scope ClaimScope) (map[domain.ClaimPriority]int, error)
	CountResolvedSince(ctx context.Context, scope ClaimScope, since time.Time) (int, error)
	// ResolutionDurations returns created-to-resolved durations of the most recently resolved claims.
	ResolutionDurations(ctx context.Context, scope ClaimScope, limit int) ([]time.Duration, error)
}

type claimRepository struct {
	pool *pgxpool.Pool
}

func NewClaimRepository(pool *pgxpool.Pool) ClaimRepository {
	return &claimRepository{pool: pool}
}

const claimSelect = `
        SELECT cl.id, cl.title, cl.description, cl.status, cl.priority, cl.resolution, cl.client_id, cl.created_by_id,
               cl.assigned_to_id, cl.resolved_at, cl.created_at, cl.updated_at,
               c.first_name, c.last_name, c.email, c.company, c.is_active,
               cb.first_name, cb.last_name, cb.email,
               ab.first_name, ab.last_name, ab.email
        FROM claims cl
        JOIN clients c ON c.id = cl.client_id
        JOIN users cb ON cb.id = cl.created_by_id
        LEFT JOIN users ab ON ab.id = cl.assigned_to_id`

var claimSortColumns = map[string]string{
	"createdAt": "cl.created_at",
	"updatedAt": "cl.updated_at",
	"title":     "cl.title",
	"status":    "cl.status",
	"priority":  "cl.priority",
}

func (r *claimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	const query = `
        INSERT INTO claims (title, description, status, priority, resolution, client_id, created_by_id, assigned_to_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		claim.Title,
		claim.Description,
		claim.Status,
		claim.Priority,
		claim.Resolution,
		claim.ClientID,
		claim.CreatedByID,
		claim.AssignedToID,
	).Scan(&claim.ID, &claim.CreatedAt, &claim.UpdatedAt)
}

// Update never clears resolved_at once stored.
func (r *claimRepository) Update(ctx context.Context, claim *domain.Claim) error {
	const query = `
        UPDATE claims SET title=$1, description=$2, status=$3, priority=$4, resolution=$5, assigned_to_id=$6,
            resolved_at=COALESCE(resolved_at, $7), updated_at=NOW()
        WHERE id=$8
        RETURNING resolved_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		claim.Title,
		claim.Description,
		claim.Status,
		claim.Priority,
		claim.Resolution,
		claim.AssignedToID,
		claim.ResolvedAt,
		claim.ID,
	).Scan(&claim.ResolvedAt, &claim.UpdatedAt)
}

func (r *claimRepository) Delete(ctx context.Context, id string) error {
	cmd, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM claims WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *claimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	return scanClaim(querier(ctx, r.pool).QueryRow(ctx, claimSelect+` WHERE cl.id=$1`, id))
}

func (r *claimRepository) List(ctx context.Context, filter ClaimFilter) ([]domain.Claim, int, error) {
	page := filter.Page.Normalize()
	where := claimWhere(filter.Scope)
	if filter.Status != nil {
		where.add("cl.status=%s", *filter.Status)
	}
	if filter.Priority != nil {
		where.add("cl.priority=%s", *filter.Priority)
	}
	where.search(filter.Search, "cl.title", "cl.description")

	db := querier(ctx, r.pool)
	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM claims cl`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(ctx, claimSelect+where.String()+page.orderBy(claimSortColumns, "createdAt")+page.limitOffset(), where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		claims = append(claims, *claim)
	}
	return claims, total, rows.Err()
}

func (r *claimRepository) CountByStatus(ctx context.Context, scope ClaimScope) (map[domain.ClaimStatus]int, error) {
	counts := make(map[domain.ClaimStatus]int)
	err := r.groupCount(ctx, "cl.status", scope, func(key string, n int) { counts[domain.ClaimStatus(key)] = n })
	return counts, err
}

func (r *claimRepository) CountByPriority(ctx context.Context, scope ClaimScope) (map[domain.ClaimPriority]int, error) {
	counts := make(map[domain.ClaimPriority]int)
	err := r.groupCount(ctx, "cl.priority", scope, func(key string, n int) { counts[domain.ClaimPriority(key)] = n })
	return counts, err
}

func (r *claimRepository) CountResolvedSince(ctx context.Context, scope ClaimScope, since time.Time) (int, error) {
	where := claimWhere(scope)
	where.add("cl.resolved_at >= %s", since)
	var count int
	err := querier(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM claims cl`+where.String(), where.args...).Scan(&count)
	return count, err
}

func (r *claimRepository) ResolutionDurations(ctx context.Context, scope ClaimScope, limit int) ([]time.Duration, error) {
	where := claimWhere(scope)
	where.add("cl.resolved_at IS NOT NULL")
	query := `SELECT cl.created_at, cl.resolved_at FROM claims cl` + where.String() + ` ORDER BY cl.resolved_at DESC`
	if limit > 0 {
		query += ` LIMIT ` + itoa(limit)
	}
	rows, err := querier(ctx, r.pool).Query(ctx, query, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var durations []time.Duration
	for rows.Next() {
		var created, resolved time.Time
		if err := rows.Scan(&created, &resolved); err != nil {
			return nil, err
		}
		durations = append(durations, resolved.Sub(created))
	}
	return durations, rows.Err()
}

func (r *claimRepository) groupCount(ctx context.Context, column string, scope ClaimScope, set func(string, int)) error {
	where := claimWhere(scope)
	rows, err := querier(ctx, r.pool).Query(ctx, `SELECT `+column+`, COUNT(*) FROM claims cl`+where.String()+` GROUP BY `+column, where.args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		set(key, n)
	}
	return rows.Err()
}

func claimWhere(scope ClaimScope) *whereBuilder {
	where := newWhere()
	if scope.AssignedToID != nil {
		where.add("cl.assigned_to_id=%s", *scope.AssignedToID)
	}
	if scope.ClientID != nil {
		where.add("cl.client_id=%s", *scope.ClientID)
	}
	return where
}

func scanClaim(row pgx.Row) (*domain.Claim, error) {
	var (
		claim     domain.Claim
		client    domain.ClientRef
		createdBy domain.UserRef
		assignee  nullableUserRef
	)
	if err := row.Scan(
		&claim.ID,
		&claim.Title,
		&claim.Description,
		&claim.Status,
		&claim.Priority,
		&claim.Resolution,
		&claim.ClientID,
		&claim.CreatedByID,
		&claim.AssignedToID,
		&claim.ResolvedAt,
		&claim.CreatedAt,
		&claim.UpdatedAt,
		&client.FirstName,
		&client.LastName,
		&client.Email,
		&client.Company,
		&client.IsActive,
		&createdBy.FirstName,
		&createdBy.LastName,
		&createdBy.Email,
		&assignee.FirstName,
		&assignee.LastName,
		&assignee.Email,
	); err != nil {
		return nil, err
	}
	client.ID = claim.ClientID
	createdBy.ID = claim.CreatedByID
	claim.Client = &client
	claim.CreatedBy = &createdBy
	claim.AssignedTo = assignee.ref(claim.AssignedToID)
	return &claim, nil
}
