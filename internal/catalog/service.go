package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/warehouse/pkg/db"
	"github.com/angelmondragon/warehouse/pkg/db/models"
	pkgerrors "github.com/angelmondragon/warehouse/pkg/errors"
	"github.com/angelmondragon/warehouse/pkg/logger"
	"github.com/angelmondragon/warehouse/pkg/validators"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// priceScale and maxPrice follow the NUMERIC(12,2) price column.
const priceScale = 2

var maxPrice = decimal.New(1, 10)

const (
	MsgNegativePrice   = "negative price"
	MsgPriceScale      = "price has more than 2 decimal places"
	MsgPriceTooLarge   = "price exceeds 9999999999.99"
	MsgProductNotFound = "product not found"
	MsgDuplicateName   = "product name already exists"
)

// Service exposes catalog product operations.
type Service interface {
	CreateProduct(ctx context.Context, name string, price decimal.Decimal) (*models.Product, error)
	FindProductByID(ctx context.Context, id int64) (*models.Product, error)
	FindProductByName(ctx context.Context, name string) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, name string, price decimal.Decimal) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context) ([]models.Product, error)
	// Invalidate drops cached copies of the given products. Call it once the
	// transaction that changed them has committed.
	Invalidate(ctx context.Context, ids ...int64)
	// WithTx binds the same operations to an open transaction. Reads inside a
	// transaction bypass the cache and writes leave it alone; the caller
	// invalidates after commit.
	WithTx(tx *gorm.DB) Service
}

// ServiceParams wires the catalog service. Cache and Logger are optional.
type ServiceParams struct {
	Repo     *Repository
	Cache    Cache
	CacheTTL time.Duration
	Logger   *logger.Logger
}

type productInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

type service struct {
	repo  *Repository
	cache *productCache
	logg  *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{
		repo:  params.Repo,
		cache: newProductCache(params.Cache, params.CacheTTL, params.Logger),
		logg:  params.Logger,
	}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{
		repo:  s.repo.WithTx(tx),
		cache: s.cache,
		logg:  s.logg,
	}
}

// CreateProduct inserts one product row and touches nothing else.
func (s *service) CreateProduct(ctx context.Context, name string, price decimal.Decimal) (*models.Product, error) {
	if err := ValidatePrice(price); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validators.Struct(productInput{Name: name}); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &models.Product{Name: name, Price: price})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, MsgDuplicateName).
				WithDetails(map[string]any{"name": name})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}

	s.info(ctx, created.ID, "catalog.product.created")
	return created, nil
}

func (s *service) FindProductByID(ctx context.Context, id int64) (*models.Product, error) {
	if !s.repo.InTx() {
		if cached, ok := s.cache.get(ctx, id); ok {
			return cached, nil
		}
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "load product")
	}

	if !s.repo.InTx() {
		s.cache.put(ctx, product)
	}
	return product, nil
}

// FindProductByName relies on the unique name index for a single match.
func (s *service) FindProductByName(ctx context.Context, name string) (*models.Product, error) {
	product, err := s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, mapLookupError(err, "load product by name")
	}
	return product, nil
}

// UpdateProduct resolves the id before validating the new price.
func (s *service) UpdateProduct(ctx context.Context, id int64, name string, price decimal.Decimal) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "load product")
	}
	if err := ValidatePrice(price); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validators.Struct(productInput{Name: name}); err != nil {
		return nil, err
	}

	product.Name = name
	product.Price = price
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, MsgDuplicateName).
				WithDetails(map[string]any{"name": name})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}

	s.evictCommitted(ctx, id)
	s.info(ctx, id, "catalog.product.updated")
	return updated, nil
}

func (s *service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return mapLookupError(err, "load product")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}

	s.evictCommitted(ctx, id)
	s.info(ctx, id, "catalog.product.deleted")
	return nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return rows, nil
}

func (s *service) Invalidate(ctx context.Context, ids ...int64) {
	for _, id := range ids {
		s.cache.evict(ctx, id)
	}
}

// evictCommitted evicts only when the write has already committed. Evicting
// inside an open transaction lets a concurrent reader cache the old row again.
func (s *service) evictCommitted(ctx context.Context, id int64) {
	if s.repo.InTx() {
		return
	}
	s.cache.evict(ctx, id)
}

func (s *service) info(ctx context.Context, id int64, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithProductID(ctx, id), msg)
}

// ValidatePrice rejects prices the price column cannot store exactly, so the
// database never rounds what the caller sent.
func ValidatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.Validation(MsgNegativePrice)
	}
	if !price.Equal(price.Truncate(priceScale)) {
		return pkgerrors.Validation(MsgPriceScale).
			WithDetails(map[string]any{"price": price.String()})
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return pkgerrors.Validation(MsgPriceTooLarge).
			WithDetails(map[string]any{"price": price.String()})
	}
	return nil
}

func mapLookupError(err error, step string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound(MsgProductNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+step)
}
