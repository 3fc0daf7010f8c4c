package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/crm-service/internal/domain"
)

// ProductFilter narrows catalogue listings.
type ProductFilter struct {
	IsActive     *bool
	BillingCycle *domain.BillingCycle
	Search       string
	Page         Page
}

// ProductRepository persists the product catalogue.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByName(ctx context.Context, name string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	ListActive(ctx context.Context) ([]domain.Product, error)
}

type productRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

const productColumns = `id, name, description, price::float8, billing_cycle, is_active, created_at, updated_at`

var productSortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"price":     "price",
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
        INSERT INTO products (name, description, price, billing_cycle, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.BillingCycle,
		product.IsActive,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	const query = `
        UPDATE products SET name=$1, description=$2, price=$3, billing_cycle=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.BillingCycle,
		product.IsActive,
		product.ID,
	).Scan(&product.UpdatedAt)
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(querier(ctx, r.pool).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *productRepository) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	return scanProduct(querier(ctx, r.pool).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE LOWER(name)=$1`, lower(name)))
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error) {
	page := filter.Page.Normalize()
	if filter.Page.SortBy == "" {
		page.SortBy = "name"
		if filter.Page.SortOrder == "" {
			page.SortOrder = "asc"
		}
	}
	where := newWhere()
	if filter.IsActive != nil {
		where.add("is_active=%s", *filter.IsActive)
	}
	if filter.BillingCycle != nil {
		where.add("billing_cycle=%s", *filter.BillingCycle)
	}
	where.search(filter.Search, "name", "description")

	db := querier(ctx, r.pool)
	var total int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.Query(ctx, `SELECT `+productColumns+` FROM products`+where.String()+page.orderBy(productSortColumns, "name")+page.limitOffset(), where.args...)
	if err != nil {
		return nil, 0, err
	}
	products, err := collectProducts(rows)
	return products, total, err
}

func (r *productRepository) ListActive(ctx context.Context) ([]domain.Product, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, `SELECT `+productColumns+` FROM products WHERE is_active = TRUE ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var product domain.Product
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.BillingCycle,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}
