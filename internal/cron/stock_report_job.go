package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/warehouse/pkg/db/models"
	"github.com/angelmondragon/warehouse/pkg/logger"
	"github.com/angelmondragon/warehouse/pkg/metrics"
)

const defaultLowStockThreshold = 0.3

type stockReader interface {
	LowStock(ctx context.Context, threshold float64) ([]models.InventoryRecord, error)
	TotalInventoryValue(ctx context.Context) (float64, error)
}

type StockReportJobParams struct {
	Logger    *logger.Logger
	Ledger    stockReader
	Metrics   *metrics.LedgerMetrics
	Threshold float64
}

// NewStockReportJob publishes the low stock count and total inventory value.
func NewStockReportJob(params StockReportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	threshold := params.Threshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	return &stockReportJob{
		logg:      params.Logger,
		ledger:    params.Ledger,
		metrics:   params.Metrics,
		threshold: threshold,
	}, nil
}

type stockReportJob struct {
	logg      *logger.Logger
	ledger    stockReader
	metrics   *metrics.LedgerMetrics
	threshold float64
}

func (j *stockReportJob) Name() string { return "stock-report" }

func (j *stockReportJob) Run(ctx context.Context) error {
	low, err := j.ledger.LowStock(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("low stock: %w", err)
	}
	total, err := j.ledger.TotalInventoryValue(ctx)
	if err != nil {
		return fmt.Errorf("total value: %w", err)
	}

	j.metrics.SetLowStockItems(len(low))
	j.metrics.SetTotalValue(total)

	names := make([]string, 0, len(low))
	for _, record := range low {
		names = append(names, record.Name)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"threshold":       j.threshold,
		"low_stock_count": len(low),
		"low_stock_names": names,
		"total_value":     total,
	})
	if len(low) > 0 {
		j.logg.Warn(logCtx, "inventory below low stock threshold")
		return nil
	}
	j.logg.Info(logCtx, "stock report complete")
	return nil
}
