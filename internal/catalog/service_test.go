package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/angelmondragon/warehouse/pkg/db/dbtest"
	"github.com/angelmondragon/warehouse/pkg/db/models"
	pkgerrors "github.com/angelmondragon/warehouse/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCache struct {
	data   map[string]string
	gets   int
	hits   int
	dels   int
	getErr error
	// onDel runs after each delete, like a reader refilling the key.
	onDel func(key string)
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}}
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.gets++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	f.hits++
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	f.dels++
	for _, key := range keys {
		delete(f.data, key)
		if f.onDel != nil {
			f.onDel(key)
		}
	}
	return nil
}

func (f *fakeCache) ProductKey(id int64) string { return fmt.Sprintf("wh:product:%d", id) }

func newTestService(t *testing.T, cache Cache) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{Repo: NewRepository(conn), Cache: cache})
	require.NoError(t, err)
	return svc, conn
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "  Widget ", decimal.NewFromFloat(55.0))
	require.NoError(t, err)
	assert.NotZero(t, product.ID)
	assert.Equal(t, "Widget", product.Name)
	assert.True(t, product.Price.Equal(decimal.NewFromInt(55)))

	byName, err := svc.FindProductByName(ctx, "Widget")
	require.NoError(t, err)
	assert.Equal(t, product.ID, byName.ID)
}

func TestCreateProductValidation(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromFloat(-0.01))
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, MsgNegativePrice, pkgerrors.As(err).Message())

	_, err = svc.CreateProduct(ctx, "   ", decimal.NewFromInt(1))
	requireCode(t, err, pkgerrors.CodeValidation)

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateProductRejectsPricesTheColumnWouldRound(t *testing.T) {
	svc, conn := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, "Widget", decimal.RequireFromString("19.999"))
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, MsgPriceScale, pkgerrors.As(err).Message())

	_, err = svc.CreateProduct(ctx, "Widget", decimal.RequireFromString("10000000000"))
	requireCode(t, err, pkgerrors.CodeValidation)
	assert.Equal(t, MsgPriceTooLarge, pkgerrors.As(err).Message())

	var count int64
	require.NoError(t, conn.Model(&models.Product{}).Count(&count).Error)
	assert.Zero(t, count)

	product, err := svc.CreateProduct(ctx, "Widget", decimal.RequireFromString("9999999999.990"))
	require.NoError(t, err)
	assert.Equal(t, "9999999999.99", product.Price.StringFixed(2))
}

func TestUpdateProductRejectsPricesTheColumnWouldRound(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(5))
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, product.ID, "Widget", decimal.RequireFromString("0.001"))
	requireCode(t, err, pkgerrors.CodeValidation)
	_, err = svc.UpdateProduct(ctx, product.ID, "Widget", decimal.New(1, 12))
	requireCode(t, err, pkgerrors.CodeValidation)

	reloaded, err := svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Price.Equal(decimal.NewFromInt(5)))
}

func TestCreateProductZeroPriceAllowed(t *testing.T) {
	svc, _ := newTestService(t, nil)
	product, err := svc.CreateProduct(context.Background(), "Freebie", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, product.Price.IsZero())
}

func TestCreateProductDuplicateName(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(2))
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestFindProductNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.FindProductByID(ctx, 999)
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.FindProductByName(ctx, "missing")
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateProduct(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "Sample Product 2", decimal.NewFromInt(20))
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(ctx, product.ID, "Updated Product Name", decimal.NewFromInt(30))
	require.NoError(t, err)
	assert.Equal(t, "Updated Product Name", updated.Name)

	reloaded, err := svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated Product Name", reloaded.Name)
	assert.True(t, reloaded.Price.Equal(decimal.NewFromInt(30)))
}

func TestUpdateProductChecksExistenceBeforePrice(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.UpdateProduct(ctx, 404, "Ghost", decimal.NewFromInt(-1))
	requireCode(t, err, pkgerrors.CodeNotFound)

	product, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(5))
	require.NoError(t, err)
	_, err = svc.UpdateProduct(ctx, product.ID, "Widget", decimal.NewFromInt(-1))
	requireCode(t, err, pkgerrors.CodeValidation)

	reloaded, err := svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Price.Equal(decimal.NewFromInt(5)))
}

func TestDeleteProduct(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(5))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	_, err = svc.FindProductByID(ctx, product.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)

	err = svc.DeleteProduct(ctx, product.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestFindProductByIDReadsThroughCache(t *testing.T) {
	cache := newFakeCache()
	svc, _ := newTestService(t, cache)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(55))
	require.NoError(t, err)

	_, err = svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.hits)
	assert.Contains(t, cache.data, cache.ProductKey(product.ID))

	cached, err := svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, product.ID, cached.ID)
	assert.True(t, cached.Price.Equal(decimal.NewFromInt(55)))
}

func TestUpdateAndDeleteEvictCache(t *testing.T) {
	cache := newFakeCache()
	svc, _ := newTestService(t, cache)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(55))
	require.NoError(t, err)
	_, err = svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, product.ID, "Widget v2", decimal.NewFromInt(60))
	require.NoError(t, err)
	assert.NotContains(t, cache.data, cache.ProductKey(product.ID))

	fresh, err := svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", fresh.Name)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))
	assert.NotContains(t, cache.data, cache.ProductKey(product.ID))
}

func TestTxWritesLeaveCacheUntilInvalidate(t *testing.T) {
	cache := newFakeCache()
	svc, conn := newTestService(t, cache)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	key := cache.ProductKey(product.ID)
	stale := cache.data[key]
	require.NotEmpty(t, stale)

	// a reader racing an open transaction still sees the committed row
	committed := false
	cache.onDel = func(k string) {
		if !committed {
			cache.data[k] = stale
		}
	}

	tx := conn.Begin()
	require.NoError(t, tx.Error)
	_, err = svc.WithTx(tx).UpdateProduct(ctx, product.ID, "Widget", decimal.NewFromInt(99))
	require.NoError(t, err)
	assert.Zero(t, cache.dels, "no eviction before commit")
	require.NoError(t, tx.Commit().Error)
	committed = true

	svc.Invalidate(ctx, product.ID)
	fresh, err := svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Price.Equal(decimal.NewFromInt(99)), "got price %s", fresh.Price)

	tx = conn.Begin()
	require.NoError(t, tx.Error)
	require.NoError(t, svc.WithTx(tx).DeleteProduct(ctx, product.ID))
	assert.Equal(t, 1, cache.dels)
	require.NoError(t, tx.Commit().Error)
	svc.Invalidate(ctx, product.ID)
	assert.NotContains(t, cache.data, key)
}

func TestCacheFailureFallsBackToDatabase(t *testing.T) {
	cache := newFakeCache()
	cache.getErr = errors.New("connection refused")
	svc, _ := newTestService(t, cache)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(55))
	require.NoError(t, err)

	found, err := svc.FindProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)
}

func TestWithTxBypassesCacheReads(t *testing.T) {
	cache := newFakeCache()
	svc, conn := newTestService(t, cache)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, "Widget", decimal.NewFromInt(55))
	require.NoError(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.WithTx(tx).FindProductByID(ctx, product.ID)
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, cache.gets)
	assert.Empty(t, cache.data)
}

func TestListProducts(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C"} {
		_, err := svc.CreateProduct(ctx, name, decimal.NewFromInt(1))
		require.NoError(t, err)
	}
	rows, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "A", rows[0].Name)
}
