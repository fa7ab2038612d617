package cron

import (
	"context"
	"fmt"
	"math"

	"github.com/angelmondragon/warehouse/pkg/db/models"
	"github.com/angelmondragon/warehouse/pkg/logger"
	"go.uber.org/multierr"
)

const stockTolerance = 1e-9

type productLister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type inventoryLister interface {
	ListInventory(ctx context.Context) ([]models.InventoryRecord, error)
}

type ConsistencyAuditJobParams struct {
	Logger    *logger.Logger
	Catalog   productLister
	Inventory inventoryLister
}

// NewConsistencyAuditJob checks the product and inventory tables against the
// pairing rules and reports every violation it finds.
func NewConsistencyAuditJob(params ConsistencyAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &consistencyAuditJob{
		logg:      params.Logger,
		catalog:   params.Catalog,
		inventory: params.Inventory,
	}, nil
}

type consistencyAuditJob struct {
	logg      *logger.Logger
	catalog   productLister
	inventory inventoryLister
}

func (j *consistencyAuditJob) Name() string { return "consistency-audit" }

func (j *consistencyAuditJob) Run(ctx context.Context) error {
	products, err := j.catalog.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	records, err := j.inventory.ListInventory(ctx)
	if err != nil {
		return fmt.Errorf("list inventory: %w", err)
	}

	violations := Audit(products, records)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"products":   len(products),
		"records":    len(records),
		"violations": len(multierr.Errors(violations)),
	})
	if violations != nil {
		j.logg.Warn(logCtx, "inventory consistency violations found")
		return violations
	}
	j.logg.Info(logCtx, "inventory consistent")
	return nil
}

// Audit returns one combined error holding every pairing violation, or nil.
func Audit(products []models.Product, records []models.InventoryRecord) error {
	byProduct := make(map[int64][]models.InventoryRecord, len(records))
	for _, record := range records {
		byProduct[record.ProductID] = append(byProduct[record.ProductID], record)
	}

	var errs error
	known := make(map[int64]struct{}, len(products))
	for _, product := range products {
		known[product.ID] = struct{}{}
		paired := byProduct[product.ID]
		switch len(paired) {
		case 0:
			errs = multierr.Append(errs, fmt.Errorf("product %d (%s): no inventory record", product.ID, product.Name))
			continue
		case 1:
		default:
			errs = multierr.Append(errs, fmt.Errorf("product %d (%s): %d inventory records", product.ID, product.Name, len(paired)))
		}
		for _, record := range paired {
			if record.Name != product.Name {
				errs = multierr.Append(errs, fmt.Errorf("product %d: inventory name %q does not match %q", product.ID, record.Name, product.Name))
			}
		}
	}

	for _, record := range records {
		if _, ok := known[record.ProductID]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("inventory %d: product %d does not exist", record.ID, record.ProductID))
		}
		errs = multierr.Append(errs, checkRecord(record))
	}
	return errs
}

func checkRecord(record models.InventoryRecord) error {
	if record.Capacity <= 0 {
		return fmt.Errorf("inventory %d: capacity %d is not positive", record.ID, record.Capacity)
	}
	if record.Quantity < 0 || record.Quantity > record.Capacity {
		return fmt.Errorf("inventory %d: quantity %d outside [0, %d]", record.ID, record.Quantity, record.Capacity)
	}
	want := float64(record.Quantity) / float64(record.Capacity)
	if math.Abs(record.Stock-want) > stockTolerance {
		return fmt.Errorf("inventory %d: stock %v, want %v", record.ID, record.Stock, want)
	}
	return nil
}
