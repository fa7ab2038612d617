package inventory

import (
	"context"

	"github.com/angelmondragon/warehouse/internal/repo"
	"github.com/angelmondragon/warehouse/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists inventory ledger rows.
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

func (r *Repository) Create(ctx context.Context, record *models.InventoryRecord) (*models.InventoryRecord, error) {
	if err := r.DB(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

// FindByName returns gorm.ErrRecordNotFound when no row matches.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.DB(ctx).First(&record, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByProductID returns gorm.ErrRecordNotFound when no row matches.
func (r *Repository) FindByProductID(ctx context.Context, productID int64) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.DB(ctx).First(&record, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateQuantity writes quantity and stock together so the ratio can never be
// observed out of step with the count.
func (r *Repository) UpdateQuantity(ctx context.Context, record *models.InventoryRecord) error {
	return r.DB(ctx).
		Model(record).
		Select("quantity", "stock", "updated_at").
		Updates(map[string]any{
			"quantity": record.Quantity,
			"stock":    record.Stock,
		}).
		Error
}

func (r *Repository) UpdateName(ctx context.Context, record *models.InventoryRecord) error {
	return r.DB(ctx).
		Model(record).
		Select("name", "updated_at").
		Updates(map[string]any{"name": record.Name}).
		Error
}

// DeleteByProductID reports how many rows were removed.
func (r *Repository) DeleteByProductID(ctx context.Context, productID int64) (int64, error) {
	res := r.DB(ctx).Where("product_id = ?", productID).Delete(&models.InventoryRecord{})
	return res.RowsAffected, res.Error
}

// ListAtOrBelow returns rows whose stock ratio is at or below threshold in
// backend order.
func (r *Repository) ListAtOrBelow(ctx context.Context, threshold float64) ([]models.InventoryRecord, error) {
	var rows []models.InventoryRecord
	err := r.DB(ctx).Where("stock <= ?", threshold).Find(&rows).Error
	return rows, err
}

// List returns every row ordered by id.
func (r *Repository) List(ctx context.Context) ([]models.InventoryRecord, error) {
	var rows []models.InventoryRecord
	err := r.DB(ctx).Order("id ASC").Find(&rows).Error
	return rows, err
}

// EachBatch walks every row in id order, batchSize rows at a time. Returning
// an error from fn stops the walk.
func (r *Repository) EachBatch(ctx context.Context, batchSize int, fn func(batch []models.InventoryRecord) error) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	var rows []models.InventoryRecord
	return r.DB(ctx).
		FindInBatches(&rows, batchSize, func(_ *gorm.DB, _ int) error {
			return fn(rows)
		}).
		Error
}
