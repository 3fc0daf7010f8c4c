package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// SubscriptionRepository persists client product subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.ClientProduct) error
	Update(ctx context.Context, sub *domain.ClientProduct) error
	Delete(ctx context.Context, clientID, productID string) error
	Get(ctx context.Context, clientID, productID string) (*domain.ClientProduct, error)
	ListByClient(ctx context.Context, clientID string, activeOnly bool) ([]domain.ClientProduct, error)
	ListByProduct(ctx context.Context, productID string) ([]domain.ClientProduct, error)
	// ListActive returns every active subscription with product and client attached.
	ListActive(ctx context.Context) ([]domain.ClientProduct, error)
	CountActiveByProduct(ctx context.Context, productID string) (int, error)
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

const subscriptionSelect = `
        SELECT cp.id, cp.client_id, cp.product_id, cp.quantity, cp.custom_price::float8, cp.start_date, cp.end_date,
               cp.is_active, cp.created_at, cp.updated_at,
               p.name, p.description, p.price::float8, p.billing_cycle, p.is_active, p.created_at, p.updated_at,
               c.first_name, c.last_name, c.email, c.company, c.is_active
        FROM client_products cp
        JOIN products p ON p.id = cp.product_id
        JOIN clients c ON c.id = cp.client_id`

func (r *subscriptionRepository) Create(ctx context.Context, sub *domain.ClientProduct) error {
	const query = `
        INSERT INTO client_products (client_id, product_id, quantity, custom_price, start_date, end_date, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		sub.ClientID,
		sub.ProductID,
		sub.Quantity,
		sub.CustomPrice,
		sub.StartDate,
		sub.EndDate,
		sub.IsActive,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt)
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *domain.ClientProduct) error {
	const query = `
        UPDATE client_products SET quantity=$1, custom_price=$2, end_date=$3, is_active=$4, updated_at=NOW()
        WHERE client_id=$5 AND product_id=$6
        RETURNING updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		sub.Quantity,
		sub.CustomPrice,
		sub.EndDate,
		sub.IsActive,
		sub.ClientID,
		sub.ProductID,
	).Scan(&sub.UpdatedAt)
}

func (r *subscriptionRepository) Delete(ctx context.Context, clientID, productID string) error {
	cmd, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM client_products WHERE client_id=$1 AND product_id=$2`, clientID, productID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, clientID, productID string) (*domain.ClientProduct, error) {
	return scanSubscription(querier(ctx, r.pool).QueryRow(ctx, subscriptionSelect+` WHERE cp.client_id=$1 AND cp.product_id=$2`, clientID, productID))
}

func (r *subscriptionRepository) ListByClient(ctx context.Context, clientID string, activeOnly bool) ([]domain.ClientProduct, error) {
	query := subscriptionSelect + ` WHERE cp.client_id=$1`
	if activeOnly {
		query += ` AND cp.is_active = TRUE`
	}
	return r.list(ctx, query+` ORDER BY cp.created_at DESC`, clientID)
}

func (r *subscriptionRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ClientProduct, error) {
	return r.list(ctx, subscriptionSelect+` WHERE cp.product_id=$1 ORDER BY cp.created_at DESC`, productID)
}

func (r *subscriptionRepository) ListActive(ctx context.Context) ([]domain.ClientProduct, error) {
	return r.list(ctx, subscriptionSelect+` WHERE cp.is_active = TRUE ORDER BY cp.client_id, cp.product_id`)
}

func (r *subscriptionRepository) CountActiveByProduct(ctx context.Context, productID string) (int, error) {
	var count int
	err := querier(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM client_products WHERE product_id=$1 AND is_active = TRUE`, productID).Scan(&count)
	return count, err
}

func (r *subscriptionRepository) list(ctx context.Context, query string, args ...any) ([]domain.ClientProduct, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.ClientProduct
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func scanSubscription(row pgx.Row) (*domain.ClientProduct, error) {
	var (
		sub     domain.ClientProduct
		product domain.Product
		client  domain.ClientRef
	)
	if err := row.Scan(
		&sub.ID,
		&sub.ClientID,
		&sub.ProductID,
		&sub.Quantity,
		&sub.CustomPrice,
		&sub.StartDate,
		&sub.EndDate,
		&sub.IsActive,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.BillingCycle,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
		&client.FirstName,
		&client.LastName,
		&client.Email,
		&client.Company,
		&client.IsActive,
	); err != nil {
		return nil, err
	}
	product.ID = sub.ProductID
	client.ID = sub.ClientID
	sub.Product = &product
	sub.Client = &client
	return &sub, nil
}
