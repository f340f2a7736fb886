package catalog

import (
	"context"
	"strings"

	"github.com/Domenick1991/outdoorcamp/internal/domain"
	"github.com/Domenick1991/outdoorcamp/internal/logger"
	"github.com/Domenick1991/outdoorcamp/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CatalogUseCase interface {
	List(ctx context.Context) ([]domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Create(ctx context.Context, actor domain.Principal, input CreateProductInput) (*domain.Product, error)
	Update(ctx context.Context, actor domain.Principal, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error
}

// ProductCache holds the full product list under a version that
// InvalidateProducts bumps. A list read from the database before an
// invalidation is written under the old version and never served. A nil list
// from GetProducts is a miss.
type ProductCache interface {
	ProductsVersion(ctx context.Context) (int64, error)
	GetProducts(ctx context.Context, version int64) ([]domain.Product, error)
	SetProducts(ctx context.Context, version int64, products []domain.Product) error
	InvalidateProducts(ctx context.Context) error
}

type CreateProductInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
	Image       *string
	Status      domain.ProductStatus
}

type CatalogService struct {
	repo  repository.ProductRepository
	cache ProductCache
}

func NewCatalogService(repo repository.ProductRepository, cache ProductCache) *CatalogService {
	return &CatalogService{repo: repo, cache: cache}
}

func (s *CatalogService) List(ctx context.Context) ([]domain.Product, error) {
	if s.cache == nil {
		return s.repo.List(ctx)
	}

	version, err := s.cache.ProductsVersion(ctx)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to read products cache version")
		return s.repo.List(ctx)
	}
	if cached, err := s.cache.GetProducts(ctx, version); err == nil && cached != nil {
		return cached, nil
	}

	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetProducts(ctx, version, products); err != nil {
		logger.Log.WithError(err).Warn("failed to cache products")
	}
	return products, nil
}

func (s *CatalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, actor domain.Principal, input CreateProductInput) (*domain.Product, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, domain.Invalid("name is required")
	}
	if input.Price.IsNegative() {
		return nil, domain.Invalid("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, domain.Invalid("stock must not be negative")
	}
	if input.Status == "" {
		input.Status = domain.ProductStatusAvailable
	}
	if !input.Status.Valid() {
		return nil, domain.Invalid("unknown product status")
	}

	product := &domain.Product{
		ID:          uuid.New(),
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Stock:       input.Stock,
		Image:       input.Image,
		Status:      input.Status,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return product, nil
}

// Update applies patch. Setting stock here is an administrative correction and
// does not look at existing bookings.
func (s *CatalogService) Update(ctx context.Context, actor domain.Principal, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, domain.Invalid("name must not be empty")
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, domain.Invalid("price must not be negative")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, domain.Invalid("stock must not be negative")
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.Invalid("unknown product status")
	}

	product, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return product, nil
}

func (s *CatalogService) Delete(ctx context.Context, actor domain.Principal, id uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProducts(ctx); err != nil {
		logger.Log.WithError(err).Warn("failed to invalidate products cache")
	}
}

var _ CatalogUseCase = (*CatalogService)(nil)
