package main

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/warehouse/api/responses"
	"github.com/angelmondragon/warehouse/pkg/db/models"
	pkgerrors "github.com/angelmondragon/warehouse/pkg/errors"
)

type productView struct {
	Product   *models.Product         `json:"product"`
	Inventory *models.InventoryRecord `json:"inventory"`
}

func (a *app) dispatch(ctx context.Context, opts options, out io.Writer) error {
	var (
		result any
		err    error
	)
	switch opts.cmd {
	case "demo":
		result, err = a.demo(ctx)
	case "create":
		result, err = a.create(ctx, opts)
	case "set-qty":
		result, err = a.ledger.SetQuantity(ctx, opts.name, opts.quantity)
	case "rename":
		result, err = a.rename(ctx, opts)
	case "delete":
		err = a.ledger.DeleteProduct(ctx, opts.productID)
		result = map[string]any{"deleted": opts.productID}
	case "show":
		result, err = a.show(ctx, opts.name)
	case "list":
		result, err = a.ledger.ListInventory(ctx)
	case "low-stock":
		result, err = a.lowStock(ctx, opts)
	case "value":
		var total float64
		total, err = a.ledger.TotalInventoryValue(ctx)
		result = map[string]float64{"total_value": total}
	case "audit":
		result, err = a.audit(ctx)
	case "serve":
		return a.serve(ctx)
	default:
		return pkgerrors.Validation(fmt.Sprintf("unknown -cmd value %q", opts.cmd))
	}
	if err != nil {
		return err
	}
	return responses.Encode(out, responses.Success{Data: result})
}

// audit reports "skipped" when another holder has the audit lock, since no
// job ran.
func (a *app) audit(ctx context.Context) (map[string]string, error) {
	scheduler, err := a.scheduler()
	if err != nil {
		return nil, err
	}
	ran, err := scheduler.RunCycle(ctx)
	if err != nil {
		return nil, err
	}
	if !ran {
		return map[string]string{"status": "skipped"}, nil
	}
	return map[string]string{"status": "consistent"}, nil
}

func (a *app) create(ctx context.Context, opts options) (*productView, error) {
	price, err := opts.decimalPrice()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	product, record, err := a.ledger.CreateProductWithInventory(ctx, opts.name, price, opts.capacity)
	if err != nil {
		return nil, err
	}
	return &productView{Product: product, Inventory: record}, nil
}

func (a *app) rename(ctx context.Context, opts options) (*productView, error) {
	price, err := opts.decimalPrice()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	product, record, err := a.ledger.UpdateProduct(ctx, opts.productID, opts.name, price)
	if err != nil {
		return nil, err
	}
	return &productView{Product: product, Inventory: record}, nil
}

func (a *app) show(ctx context.Context, name string) (*productView, error) {
	record, err := a.ledger.FindInventoryByName(ctx, name)
	if err != nil {
		return nil, err
	}
	product, err := a.catalog.FindProductByID(ctx, record.ProductID)
	if err != nil {
		return nil, err
	}
	return &productView{Product: product, Inventory: record}, nil
}

func (a *app) lowStock(ctx context.Context, opts options) ([]models.InventoryRecord, error) {
	threshold, err := opts.thresholdOr(a.cfg.Inventory.LowStockThreshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid threshold")
	}
	return a.ledger.LowStock(ctx, threshold)
}

type demoStep struct {
	Step   string `json:"step"`
	Result any    `json:"result"`
}

// demo walks a product pair through creation, restocking, low stock
// detection, valuation and deletion, then removes what it created.
func (a *app) demo(ctx context.Context) ([]demoStep, error) {
	var steps []demoStep
	record := func(step string, result any) {
		steps = append(steps, demoStep{Step: step, Result: result})
		a.logg.Info(a.logg.WithField(ctx, "step", step), "demo step complete")
	}
	price := decimal.NewFromFloat(55.0)

	widget, widgetInv, err := a.ledger.CreateProductWithInventory(ctx, "Widget", price, 300)
	if err != nil {
		return nil, err
	}
	record("create Widget", productView{Product: widget, Inventory: widgetInv})

	if widgetInv, err = a.ledger.SetQuantity(ctx, "Widget", 151); err != nil {
		return nil, err
	}
	record("set Widget quantity to 151", widgetInv)

	low, err := a.ledger.LowStock(ctx, a.cfg.Inventory.LowStockThreshold)
	if err != nil {
		return nil, err
	}
	record("low stock after Widget restock", low)

	gadget, gadgetInv, err := a.ledger.CreateProductWithInventory(ctx, "Gadget", price, 20)
	if err != nil {
		return nil, err
	}
	record("create Gadget", productView{Product: gadget, Inventory: gadgetInv})

	if gadgetInv, err = a.ledger.SetQuantity(ctx, "Gadget", 1); err != nil {
		return nil, err
	}
	record("set Gadget quantity to 1", gadgetInv)

	if low, err = a.ledger.LowStock(ctx, a.cfg.Inventory.LowStockThreshold); err != nil {
		return nil, err
	}
	record("low stock after Gadget sale", low)

	total, err := a.ledger.TotalInventoryValue(ctx)
	if err != nil {
		return nil, err
	}
	record("total inventory value", total)

	if err := a.ledger.DeleteProduct(ctx, widget.ID); err != nil {
		return nil, err
	}
	_, lookupErr := a.ledger.FindInventoryByName(ctx, "Widget")
	record("delete Widget", map[string]any{
		"inventory_lookup_not_found": pkgerrors.IsCode(lookupErr, pkgerrors.CodeNotFound),
	})

	if err := a.ledger.DeleteProduct(ctx, gadget.ID); err != nil {
		return nil, err
	}
	record("cleanup Gadget", map[string]int64{"deleted": gadget.ID})
	return steps, nil
}
