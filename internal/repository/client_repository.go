package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ClientFilter narrows client listings.
type ClientFilter struct {
	IsActive        *bool
	HasPortalAccess *bool
	Search          string
	Page            Page
}

// ClientRepository persists client records.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	Update(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	GetByEmail(ctx context.Context, email string) (*domain.Client, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Client, error)
	List(ctx context.Context, filter ClientFilter) ([]domain.Client, int, error)
	Summary(ctx context.Context) (domain.ClientSummary, error)
}

type clientRepository struct {
	pool *pgxpool.Pool
}

func NewClientRepository(pool *pgxpool.Pool) ClientRepository {
	return &clientRepository{pool: pool}
}

const clientColumns = `id, first_name, last_name, email, phone, company, address, city, state, zip_code, country, tax_id,
        is_active, user_id, converted_from_id, created_at, updated_at`

var clientSortColumns = map[string]string{
	"createdAt": "created_at",
	"firstName": "first_name",
	"lastName":  "last_name",
	"email":     "email",
	"company":   "company",
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	const query = `
        INSERT INTO clients (first_name, last_name, email, phone, company, address, city, state, zip_code, country, tax_id,
            is_active, user_id, converted_from_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		client.FirstName,
		client.LastName,
		strings.ToLower(client.Email),
		client.Phone,
		client.Company,
		client.Address,
		client.City,
		client.State,
		client.ZipCode,
		client.Country,
		client.TaxID,
		client.IsActive,
		client.UserID,
		client.ConvertedFromID,
	).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
}

func (r *clientRepository) Update(ctx context.Context, client *domain.Client) error {
	const query = `
        UPDATE clients SET first_name=$1, last_name=$2, email=$3, phone=$4, company=$5, address=$6, city=$7,
            state=$8, zip_code=$9, country=$10, tax_id=$11, is_active=$12, user_id=$13, updated_at=NOW()
        WHERE id=$14
        RETURNING updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		client.FirstName,
		client.LastName,
		strings.ToLower(client.Email),
		client.Phone,
		client.Company,
		client.Address,
		client.City,
		client.State,
		client.ZipCode,
		client.Country,
		client.TaxID,
		client.IsActive,
		client.UserID,
		client.ID,
	).Scan(&client.UpdatedAt)
}

func (r *clientRepository) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	return scanClient(querier(ctx, r.pool).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1`, id))
}

func (r *clientRepository) GetByEmail(ctx context.Context, email string) (*domain.Client, error) {
	return scanClient(querier(ctx, r.pool).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE LOWER(email)=$1`, lower(email)))
}

func (r *clientRepository) GetByUserID(ctx context.Context, userID string) (*domain.Client, error) {
	return scanClient(querier(ctx, r.pool).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE user_id=$1`, userID))
}

func (r *clientRepository) List(ctx context.Context, filter ClientFilter) ([]domain.Client, int, error) {
	page := filter.Page.Normalize()
	where := newWhere()
	if filter.IsActive != nil {
		where.add("is_active=%s", *filter.IsActive)
	}
	if filter.HasPortalAccess != nil {
		if *filter.HasPortalAccess {
			where.add("user_id IS NOT NULL")
		} else {
			where.add("user_id IS NULL")
		}
	}
	where.search(filter.Search, "first_name", "last_name", "email", "company")

	db := querier(ctx, r.pool)
	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(ctx, `SELECT `+clientColumns+` FROM clients`+where.String()+page.orderBy(clientSortColumns, "createdAt")+page.limitOffset(), where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, *client)
	}
	return clients, total, rows.Err()
}

func (r *clientRepository) Summary(ctx context.Context) (domain.ClientSummary, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE c.is_active),
               COUNT(*) FILTER (WHERE EXISTS (SELECT 1 FROM client_products cp WHERE cp.client_id = c.id AND cp.is_active)),
               COUNT(*) FILTER (WHERE c.user_id IS NOT NULL)
        FROM clients c`
	var summary domain.ClientSummary
	err := querier(ctx, r.pool).QueryRow(ctx, query).Scan(&summary.Total, &summary.Active, &summary.WithSubscriptions, &summary.WithPortal)
	return summary, err
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var client domain.Client
	if err := row.Scan(
		&client.ID,
		&client.FirstName,
		&client.LastName,
		&client.Email,
		&client.Phone,
		&client.Company,
		&client.Address,
		&client.City,
		&client.State,
		&client.ZipCode,
		&client.Country,
		&client.TaxID,
		&client.IsActive,
		&client.UserID,
		&client.ConvertedFromID,
		&client.CreatedAt,
		&client.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &client, nil
}
