package catalog

import (
	"context"

	"github.com/angelmondragon/warehouse/internal/repo"
	"github.com/angelmondragon/warehouse/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists catalog products.
type Repository struct {
	repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// Create inserts a new product row and fills the generated id.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.DB(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID returns gorm.ErrRecordNotFound when no row matches.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByName returns gorm.ErrRecordNotFound when no row matches.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update overwrites name and price on an existing row.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	err := r.DB(ctx).
		Model(product).
		Select("name", "price", "updated_at").
		Updates(map[string]any{
			"name":  product.Name,
			"price": product.Price,
		}).
		Error
	if err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product by id. Inventory rows cascade at the FK.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// List returns every product ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.DB(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}
