package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// LeadFilter narrows lead listings. VisibleTo restricts rows to those the
// user created or is assigned to.
type LeadFilter struct {
	VisibleTo    *string
	Status       *domain.LeadStatus
	Source       string
	AssignedToID *string
	Search       string
	Page         Page
}

// LeadRepository persists leads.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	Update(ctx context.Context, lead *domain.Lead) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	List(ctx context.Context, filter LeadFilter) ([]domain.Lead, int, error)
	CountByStatus(ctx context.Context, visibleTo *string) (map[domain.LeadStatus]int, error)
	SumEstimatedValue(ctx context.Context, visibleTo *string) (float64, error)
	Sources(ctx context.Context) ([]string, error)
}

type leadRepository struct {
	pool *pgxpool.Pool
}

func NewLeadRepository(pool *pgxpool.Pool) LeadRepository {
	return &leadRepository{pool: pool}
}

const leadSelect = `
        SELECT l.id, l.first_name, l.last_name, l.email, l.phone, l.company, l.source, l.status, l.notes,
               l.estimated_value::float8, l.created_by_id, l.assigned_to_id, l.converted_at, l.created_at, l.updated_at,
               cb.first_name, cb.last_name, cb.email,
               ab.first_name, ab.last_name, ab.email
        FROM leads l
        JOIN users cb ON cb.id = l.created_by_id
        LEFT JOIN users ab ON ab.id = l.assigned_to_id`

var leadSortColumns = map[string]string{
	"createdAt":      "l.created_at",
	"firstName":      "l.first_name",
	"lastName":       "l.last_name",
	"status":         "l.status",
	"estimatedValue": "l.estimated_value",
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	const query = `
        INSERT INTO leads (first_name, last_name, email, phone, company, source, status, notes, estimated_value, created_by_id, assigned_to_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.Source,
		lead.Status,
		lead.Notes,
		lead.EstimatedValue,
		lead.CreatedByID,
		lead.AssignedToID,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
}

func (r *leadRepository) Update(ctx context.Context, lead *domain.Lead) error {
	const query = `
        UPDATE leads SET first_name=$1, last_name=$2, email=$3, phone=$4, company=$5, source=$6, status=$7,
            notes=$8, estimated_value=$9, assigned_to_id=$10, converted_at=$11, updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.Source,
		lead.Status,
		lead.Notes,
		lead.EstimatedValue,
		lead.AssignedToID,
		lead.ConvertedAt,
		lead.ID,
	).Scan(&lead.UpdatedAt)
}

func (r *leadRepository) Delete(ctx context.Context, id string) error {
	cmd, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM leads WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	return scanLead(querier(ctx, r.pool).QueryRow(ctx, leadSelect+` WHERE l.id=$1`, id))
}

func (r *leadRepository) List(ctx context.Context, filter LeadFilter) ([]domain.Lead, int, error) {
	page := filter.Page.Normalize()
	where := leadScope(filter.VisibleTo)
	if filter.Status != nil {
		where.add("l.status=%s", *filter.Status)
	}
	if filter.Source != "" {
		where.add(`LOWER(l.source) LIKE %s ESCAPE '\'`, containsPattern(filter.Source))
	}
	if filter.AssignedToID != nil {
		where.add("l.assigned_to_id=%s", *filter.AssignedToID)
	}
	where.search(filter.Search, "l.first_name", "l.last_name", "l.email", "l.company")

	db := querier(ctx, r.pool)
	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM leads l`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(ctx, leadSelect+where.String()+page.orderBy(leadSortColumns, "createdAt")+page.limitOffset(), where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, *lead)
	}
	return leads, total, rows.Err()
}

func (r *leadRepository) CountByStatus(ctx context.Context, visibleTo *string) (map[domain.LeadStatus]int, error) {
	where := leadScope(visibleTo)
	rows, err := querier(ctx, r.pool).Query(ctx, `SELECT l.status, COUNT(*) FROM leads l`+where.String()+` GROUP BY l.status`, where.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.LeadStatus]int)
	for rows.Next() {
		var status domain.LeadStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *leadRepository) SumEstimatedValue(ctx context.Context, visibleTo *string) (float64, error) {
	where := leadScope(visibleTo)
	var sum float64
	err := querier(ctx, r.pool).QueryRow(ctx, `SELECT COALESCE(SUM(l.estimated_value), 0)::float8 FROM leads l`+where.String(), where.args...).Scan(&sum)
	return sum, err
}

func (r *leadRepository) Sources(ctx context.Context) ([]string, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `SELECT DISTINCT source FROM leads WHERE source IS NOT NULL AND source <> '' ORDER BY source`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func leadScope(visibleTo *string) *whereBuilder {
	where := newWhere()
	if visibleTo != nil {
		where.add("(l.created_by_id=%s OR l.assigned_to_id=%s)", *visibleTo, *visibleTo)
	}
	return where
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var (
		lead      domain.Lead
		createdBy domain.UserRef
		assignee  nullableUserRef
	)
	if err := row.Scan(
		&lead.ID,
		&lead.FirstName,
		&lead.LastName,
		&lead.Email,
		&lead.Phone,
		&lead.Company,
		&lead.Source,
		&lead.Status,
		&lead.Notes,
		&lead.EstimatedValue,
		&lead.CreatedByID,
		&lead.AssignedToID,
		&lead.ConvertedAt,
		&lead.CreatedAt,
		&lead.UpdatedAt,
		&createdBy.FirstName,
		&createdBy.LastName,
		&createdBy.Email,
		&assignee.FirstName,
		&assignee.LastName,
		&assignee.Email,
	); err != nil {
		return nil, err
	}
	createdBy.ID = lead.CreatedByID
	lead.CreatedBy = &createdBy
	lead.AssignedTo = assignee.ref(lead.AssignedToID)
	return &lead, nil
}
