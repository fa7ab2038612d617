package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/warehouse/pkg/db/models"
	"github.com/angelmondragon/warehouse/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStockReader struct {
	low       []models.InventoryRecord
	total     float64
	threshold float64
	lowErr    error
	totalErr  error
}

func (f *fakeStockReader) LowStock(_ context.Context, threshold float64) ([]models.InventoryRecord, error) {
	f.threshold = threshold
	return f.low, f.lowErr
}

func (f *fakeStockReader) TotalInventoryValue(context.Context) (float64, error) {
	return f.total, f.totalErr
}

func TestStockReportJobPublishesGauges(t *testing.T) {
	reader := &fakeStockReader{
		low:   []models.InventoryRecord{{Name: "Gadget"}, {Name: "Bolt"}},
		total: 8360,
	}
	reg := prometheus.NewRegistry()
	job, err := NewStockReportJob(StockReportJobParams{
		Logger:    testLogger(),
		Ledger:    reader,
		Metrics:   metrics.NewLedgerMetrics(reg),
		Threshold: 0.25,
	})
	require.NoError(t, err)
	assert.Equal(t, "stock-report", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0.25, reader.threshold)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	gauges := map[string]float64{}
	for _, mf := range mfs {
		if len(mf.GetMetric()) == 1 && mf.GetMetric()[0].GetGauge() != nil {
			gauges[mf.GetName()] = mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, 2.0, gauges["inventory_low_stock_items"])
	assert.Equal(t, 8360.0, gauges["inventory_total_value"])
}

func TestStockReportJobDefaultsThreshold(t *testing.T) {
	reader := &fakeStockReader{}
	job, err := NewStockReportJob(StockReportJobParams{Logger: testLogger(), Ledger: reader})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, defaultLowStockThreshold, reader.threshold)
}

func TestStockReportJobPropagatesErrors(t *testing.T) {
	job, err := NewStockReportJob(StockReportJobParams{
		Logger: testLogger(),
		Ledger: &fakeStockReader{lowErr: errors.New("db down")},
	})
	require.NoError(t, err)
	require.Error(t, job.Run(context.Background()))

	job, err = NewStockReportJob(StockReportJobParams{
		Logger: testLogger(),
		Ledger: &fakeStockReader{totalErr: errors.New("product not found")},
	})
	require.NoError(t, err)
	require.Error(t, job.Run(context.Background()))
}

func TestNewStockReportJobRequiresDependencies(t *testing.T) {
	_, err := NewStockReportJob(StockReportJobParams{Ledger: &fakeStockReader{}})
	require.Error(t, err)
	_, err = NewStockReportJob(StockReportJobParams{Logger: testLogger()})
	require.Error(t, err)
}
