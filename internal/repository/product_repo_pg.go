package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type PGProductRepository struct {
	db DB
}

func NewProductRepository(db DB) ProductRepository {
	return &PGProductRepository{db: db}
}

const productColumns = `id, name, description, category, price, stock, image, status, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock, &p.Image, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *PGProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r *PGProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	return r.db.QueryRow(ctx, `INSERT INTO products (id, name, description, category, price, stock, image, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		product.ID, product.Name, product.Description, product.Category, product.Price, product.Stock, product.Image, string(product.Status)).
		Scan(&product.CreatedAt, &product.UpdatedAt)
}

func (r *PGProductRepository) Update(ctx context.Context, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `UPDATE products SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			category = COALESCE($4, category),
			price = COALESCE($5, price),
			stock = COALESCE($6, stock),
			image = COALESCE($7, image),
			status = COALESCE($8, status),
			updated_at = now()
		WHERE id=$1
		RETURNING `+productColumns,
		id, patch.Name, patch.Description, patch.Category, patch.Price, patch.Stock, patch.Image, (*string)(patch.Status)))
}

func (r *PGProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

var _ ProductRepository = (*PGProductRepository)(nil)
