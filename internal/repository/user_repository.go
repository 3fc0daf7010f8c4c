package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// UserFilter captures admin search parameters.
type UserFilter struct {
	Role     *domain.Role
	IsActive *bool
	Search   string
	Page     Page
}

// UserRepository persists staff and portal users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	ListAssignable(ctx context.Context) ([]domain.User, error)
	Counts(ctx context.Context, id string) (domain.UserCounts, error)
	Summary(ctx context.Context) (domain.UserSummary, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, is_active, created_at, updated_at`

var userSortColumns = map[string]string{
	"createdAt": "created_at",
	"firstName": "first_name",
	"lastName":  "last_name",
	"email":     "email",
	"role":      "role",
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, password_hash, first_name, last_name, phone, role, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, password_hash=$2, first_name=$3, last_name=$4, phone=$5,
            role=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		strings.ToLower(user.Email),
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Phone,
		user.Role,
		user.IsActive,
		user.ID,
	).Scan(&user.UpdatedAt)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	return scanUser(querier(ctx, r.pool).QueryRow(ctx, query, strings.TrimSpace(email)))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int, error) {
	page := filter.Page.Normalize()
	where := newWhere()
	if filter.Role != nil {
		where.add("role=%s", *filter.Role)
	}
	if filter.IsActive != nil {
		where.add("is_active=%s", *filter.IsActive)
	}
	where.search(filter.Search, "first_name", "last_name", "email")

	db := querier(ctx, r.pool)
	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + userColumns + ` FROM users` + where.String() + page.orderBy(userSortColumns, "createdAt") + page.limitOffset()
	rows, err := db.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}
	users, err := collectUsers(rows)
	return users, total, err
}

func (r *userRepository) ListAssignable(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
        WHERE is_active = TRUE AND role IN ('OPERATOR', 'SUPERVISOR', 'ADMIN')
        ORDER BY first_name ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *userRepository) Counts(ctx context.Context, id string) (domain.UserCounts, error) {
	const query = `
        SELECT
            (SELECT COUNT(*) FROM leads WHERE created_by_id=$1),
            (SELECT COUNT(*) FROM leads WHERE assigned_to_id=$1),
            (SELECT COUNT(*) FROM claims WHERE assigned_to_id=$1)`
	var counts domain.UserCounts
	err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(&counts.CreatedLeads, &counts.AssignedLeads, &counts.AssignedClaims)
	return counts, err
}

func (r *userRepository) Summary(ctx context.Context) (domain.UserSummary, error) {
	db := querier(ctx, r.pool)
	var summary domain.UserSummary
	if err := db.QueryRow(ctx, `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM users`).Scan(&summary.Total, &summary.Active); err != nil {
		return summary, err
	}

	rows, err := db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role ORDER BY role`)
	if err != nil {
		return summary, err
	}
	defer rows.Close()
	for rows.Next() {
		var rc domain.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return summary, err
		}
		summary.ByRole = append(summary.ByRole, rc)
	}
	return summary, rows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}
