package inventory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/angelmondragon/warehouse/internal/catalog"
	"github.com/angelmondragon/warehouse/pkg/db"
	"github.com/angelmondragon/warehouse/pkg/db/models"
	pkgerrors "github.com/angelmondragon/warehouse/pkg/errors"
	"github.com/angelmondragon/warehouse/pkg/logger"
	"github.com/angelmondragon/warehouse/pkg/metrics"
	"github.com/angelmondragon/warehouse/pkg/validators"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultBatchSize = 200

// maxCount is the largest quantity or capacity the INTEGER columns hold.
const maxCount = math.MaxInt32

const (
	MsgZeroCapacity       = "zero capacity"
	MsgNegativeCapacity   = "negative capacity"
	MsgNegativeQuantity   = "negative quantity"
	MsgQuantityOverCap    = "quantity exceeds capacity"
	MsgCapacityTooLarge   = "capacity exceeds the largest storable count"
	MsgThresholdTooHigh   = "threshold exceeds 1.0"
	MsgNegativeThreshold  = "negative threshold"
	MsgRecordNotFound     = "inventory record not found"
	MsgDuplicateInventory = "inventory name already exists"
)

// Service is the inventory ledger: it keeps each product paired with exactly
// one inventory record and answers stock aggregates.
type Service interface {
	CreateProductWithInventory(ctx context.Context, name string, price decimal.Decimal, capacity int) (*models.Product, *models.InventoryRecord, error)
	SetQuantity(ctx context.Context, name string, quantity int) (*models.InventoryRecord, error)
	RenameOnProductUpdate(ctx context.Context, productID int64, newName string) (*models.InventoryRecord, error)
	DeleteCascade(ctx context.Context, productID int64) error
	LowStock(ctx context.Context, threshold float64) ([]models.InventoryRecord, error)
	TotalInventoryValue(ctx context.Context) (float64, error)

	UpdateProduct(ctx context.Context, productID int64, name string, price decimal.Decimal) (*models.Product, *models.InventoryRecord, error)
	DeleteProduct(ctx context.Context, productID int64) error
	FindInventoryByName(ctx context.Context, name string) (*models.InventoryRecord, error)
	FindInventoryByProductID(ctx context.Context, productID int64) (*models.InventoryRecord, error)
	ListInventory(ctx context.Context) ([]models.InventoryRecord, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the ledger. Metrics and Logger are optional.
type ServiceParams struct {
	Repo      *Repository
	Catalog   catalog.Service
	TxRunner  txRunner
	Metrics   *metrics.LedgerMetrics
	Logger    *logger.Logger
	BatchSize int
}

type renameInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

type service struct {
	repo      *Repository
	catalog   catalog.Service
	tx        txRunner
	metrics   *metrics.LedgerMetrics
	logg      *logger.Logger
	batchSize int
}

// NewService constructs the inventory ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &service{
		repo:      params.Repo,
		catalog:   params.Catalog,
		tx:        params.TxRunner,
		metrics:   params.Metrics,
		logg:      params.Logger,
		batchSize: batchSize,
	}, nil
}

// CreateProductWithInventory validates capacity before price and persists the
// product and its fully stocked record in one transaction.
func (s *service) CreateProductWithInventory(ctx context.Context, name string, price decimal.Decimal, capacity int) (product *models.Product, record *models.InventoryRecord, err error) {
	defer s.observe(ctx, "create", time.Now(), &err)

	if capacity == 0 {
		return nil, nil, pkgerrors.Validation(MsgZeroCapacity)
	}
	if capacity < 0 {
		return nil, nil, pkgerrors.Validation(MsgNegativeCapacity)
	}
	if capacity > maxCount {
		return nil, nil, pkgerrors.Validation(MsgCapacityTooLarge).
			WithDetails(map[string]any{"capacity": capacity, "max": maxCount})
	}
	if err := catalog.ValidatePrice(price); err != nil {
		return nil, nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.catalog.WithTx(tx).CreateProduct(ctx, name, price)
		if err != nil {
			return err
		}
		rec, err := s.repo.WithTx(tx).Create(ctx, &models.InventoryRecord{
			Name:      created.Name,
			Quantity:  capacity,
			Capacity:  capacity,
			Stock:     1.0,
			ProductID: created.ID,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, MsgDuplicateInventory).
					WithDetails(map[string]any{"name": created.Name})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert inventory")
		}
		product, record = created, rec
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return product, record, nil
}

// SetQuantity resolves the record first, so an unknown name wins over an
// invalid quantity.
func (s *service) SetQuantity(ctx context.Context, name string, quantity int) (record *models.InventoryRecord, err error) {
	defer s.observe(ctx, "set_quantity", time.Now(), &err)

	record, err = s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, mapLookupError(err, "load inventory by name")
	}
	if quantity < 0 {
		return nil, pkgerrors.Validation(MsgNegativeQuantity)
	}
	if quantity > record.Capacity {
		return nil, pkgerrors.Validation(MsgQuantityOverCap).
			WithDetails(map[string]any{"capacity": record.Capacity, "quantity": quantity})
	}

	next := *record
	next.Quantity = quantity
	next.Stock = stockRatio(quantity, record.Capacity)
	if err := s.repo.UpdateQuantity(ctx, &next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update inventory quantity")
	}
	return &next, nil
}

func (s *service) RenameOnProductUpdate(ctx context.Context, productID int64, newName string) (record *models.InventoryRecord, err error) {
	defer s.observe(ctx, "rename", time.Now(), &err)
	return s.rename(ctx, s.repo, productID, newName)
}

func (s *service) rename(ctx context.Context, repo *Repository, productID int64, newName string) (*models.InventoryRecord, error) {
	record, err := repo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err, "load inventory by product")
	}
	newName = strings.TrimSpace(newName)
	if err := validators.Struct(renameInput{Name: newName}); err != nil {
		return nil, err
	}

	record.Name = newName
	if err := repo.UpdateName(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, MsgDuplicateInventory).
				WithDetails(map[string]any{"name": newName})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: rename inventory")
	}
	return record, nil
}

// DeleteCascade removes the record paired with productID. A missing record is
// not an error: the foreign key cascade may already have removed it.
func (s *service) DeleteCascade(ctx context.Context, productID int64) (err error) {
	defer s.observe(ctx, "delete_cascade", time.Now(), &err)
	return s.deleteCascade(ctx, s.repo, productID)
}

func (s *service) deleteCascade(ctx context.Context, repo *Repository, productID int64) error {
	removed, err := repo.DeleteByProductID(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete inventory")
	}
	if removed == 0 {
		s.debug(ctx, productID, "inventory.delete_cascade.already_absent")
	}
	return nil
}

// LowStock returns a snapshot of every record with stock at or below
// threshold, in backend order.
func (s *service) LowStock(ctx context.Context, threshold float64) (rows []models.InventoryRecord, err error) {
	defer s.observe(ctx, "low_stock", time.Now(), &err)

	if threshold > 1.0 {
		return nil, pkgerrors.Validation(MsgThresholdTooHigh)
	}
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, pkgerrors.Validation(MsgNegativeThreshold)
	}

	rows, err = s.repo.ListAtOrBelow(ctx, threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list low stock")
	}
	return rows, nil
}

// TotalInventoryValue sums quantity times price over every record in id
// order. A price lookup failure aborts the walk and is returned as is.
func (s *service) TotalInventoryValue(ctx context.Context) (total float64, err error) {
	defer s.observe(ctx, "total_value", time.Now(), &err)

	var lookupErr error
	walkErr := s.repo.EachBatch(ctx, s.batchSize, func(batch []models.InventoryRecord) error {
		for _, record := range batch {
			product, err := s.catalog.FindProductByID(ctx, record.ProductID)
			if err != nil {
				lookupErr = err
				return err
			}
			total += float64(record.Quantity) * product.Price.InexactFloat64()
		}
		return nil
	})
	if lookupErr != nil {
		return 0, lookupErr
	}
	if walkErr != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, walkErr, "db: enumerate inventory")
	}
	return total, nil
}

// UpdateProduct overwrites the product and renames its record in one
// transaction.
func (s *service) UpdateProduct(ctx context.Context, productID int64, name string, price decimal.Decimal) (product *models.Product, record *models.InventoryRecord, err error) {
	defer s.observe(ctx, "update_product", time.Now(), &err)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.catalog.WithTx(tx).UpdateProduct(ctx, productID, name, price)
		if err != nil {
			return err
		}
		renamed, err := s.rename(ctx, s.repo.WithTx(tx), productID, updated.Name)
		if err != nil {
			return err
		}
		product, record = updated, renamed
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.catalog.Invalidate(ctx, productID)
	return product, record, nil
}

func (s *service) DeleteProduct(ctx context.Context, productID int64) (err error) {
	defer s.observe(ctx, "delete_product", time.Now(), &err)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.deleteCascade(ctx, s.repo.WithTx(tx), productID); err != nil {
			return err
		}
		return s.catalog.WithTx(tx).DeleteProduct(ctx, productID)
	})
	if err != nil {
		return err
	}
	s.catalog.Invalidate(ctx, productID)
	return nil
}

func (s *service) FindInventoryByName(ctx context.Context, name string) (*models.InventoryRecord, error) {
	record, err := s.repo.FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, mapLookupError(err, "load inventory by name")
	}
	return record, nil
}

func (s *service) FindInventoryByProductID(ctx context.Context, productID int64) (*models.InventoryRecord, error) {
	record, err := s.repo.FindByProductID(ctx, productID)
	if err != nil {
		return nil, mapLookupError(err, "load inventory by product")
	}
	return record, nil
}

func (s *service) ListInventory(ctx context.Context) ([]models.InventoryRecord, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list inventory")
	}
	return rows, nil
}

func (s *service) observe(ctx context.Context, op string, started time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	s.metrics.Observe(op, started, err)
	if s.logg == nil {
		return
	}
	opCtx := s.logg.WithOperation(ctx, "inventory."+op)
	if err == nil {
		s.logg.Debug(opCtx, "inventory operation completed")
		return
	}
	if pkgerrors.Rejected(err) {
		s.logg.Info(s.logg.WithField(opCtx, "reason", err.Error()), "inventory operation rejected")
		return
	}
	s.logg.Error(opCtx, "inventory operation failed", err)
}

func (s *service) debug(ctx context.Context, productID int64, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Debug(s.logg.WithProductID(ctx, productID), msg)
}

func stockRatio(quantity, capacity int) float64 {
	return float64(quantity) / float64(capacity)
}

func mapLookupError(err error, step string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound(MsgRecordNotFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: "+step)
}
