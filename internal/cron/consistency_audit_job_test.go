package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/warehouse/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type fakeListers struct {
	products   []models.Product
	records    []models.InventoryRecord
	productErr error
}

func (f *fakeListers) ListProducts(context.Context) ([]models.Product, error) {
	return f.products, f.productErr
}

func (f *fakeListers) ListInventory(context.Context) ([]models.InventoryRecord, error) {
	return f.records, nil
}

func TestAuditConsistentData(t *testing.T) {
	products := []models.Product{{ID: 1, Name: "Widget"}, {ID: 2, Name: "Gadget"}}
	records := []models.InventoryRecord{
		{ID: 10, Name: "Widget", Quantity: 151, Capacity: 300, Stock: 151.0 / 300.0, ProductID: 1},
		{ID: 11, Name: "Gadget", Quantity: 1, Capacity: 20, Stock: 0.05, ProductID: 2},
	}
	assert.NoError(t, Audit(products, records))
}

func TestAuditReportsEveryViolation(t *testing.T) {
	products := []models.Product{
		{ID: 1, Name: "Widget"},
		{ID: 2, Name: "Gadget"},
		{ID: 3, Name: "Lonely"},
	}
	records := []models.InventoryRecord{
		{ID: 10, Name: "Widget-old", Quantity: 5, Capacity: 10, Stock: 0.5, ProductID: 1},
		{ID: 11, Name: "Gadget", Quantity: 5, Capacity: 10, Stock: 0.9, ProductID: 2},
		{ID: 12, Name: "Orphan", Quantity: 11, Capacity: 10, Stock: 1.1, ProductID: 99},
	}

	err := Audit(products, records)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 5)
	msg := err.Error()
	assert.Contains(t, msg, "product 3 (Lonely): no inventory record")
	assert.Contains(t, msg, `inventory name "Widget-old" does not match "Widget"`)
	assert.Contains(t, msg, "inventory 11: stock 0.9, want 0.5")
	assert.Contains(t, msg, "inventory 12: product 99 does not exist")
	assert.Contains(t, msg, "inventory 12: quantity 11 outside [0, 10]")
}

func TestAuditDuplicateRecords(t *testing.T) {
	products := []models.Product{{ID: 1, Name: "Widget"}}
	records := []models.InventoryRecord{
		{ID: 10, Name: "Widget", Quantity: 1, Capacity: 1, Stock: 1, ProductID: 1},
		{ID: 11, Name: "Widget", Quantity: 1, Capacity: 1, Stock: 1, ProductID: 1},
	}
	err := Audit(products, records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 inventory records")
}

func TestConsistencyAuditJobRun(t *testing.T) {
	listers := &fakeListers{
		products: []models.Product{{ID: 1, Name: "Widget"}},
		records:  []models.InventoryRecord{{ID: 1, Name: "Widget", Quantity: 0, Capacity: 3, Stock: 0, ProductID: 1}},
	}
	job, err := NewConsistencyAuditJob(ConsistencyAuditJobParams{
		Logger:    testLogger(),
		Catalog:   listers,
		Inventory: listers,
	})
	require.NoError(t, err)
	assert.Equal(t, "consistency-audit", job.Name())
	require.NoError(t, job.Run(context.Background()))

	listers.records[0].Capacity = 0
	require.Error(t, job.Run(context.Background()))

	listers.productErr = errors.New("db down")
	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list products")
}
