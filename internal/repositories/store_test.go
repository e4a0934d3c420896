package repositories_test

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/pkg/database"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, database.MemorySQLiteDSN(uuid.NewString()), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))
	return db
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, store repositories.Store)) {
	t.Run("gorm", func(t *testing.T) {
		fn(t, repositories.NewGORMStore(openSQLite(t)))
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, repositories.NewMemoryStore())
	})
}

func seedUserAndProduct(t *testing.T, store repositories.Store) (*models.User, *models.Product) {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Username: "lan", Email: "lan@example.com", Password: "x", Role: models.RoleCustomer}
	require.NoError(t, store.Users().Create(ctx, user))
	product := &models.Product{Name: "Bottle", Slug: "bottle", Price: decimal.NewFromInt(299000), Stock: 10}
	require.NoError(t, store.Products().Create(ctx, product))
	return user, product
}

func TestStore_CartItems(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		user, product := seedUserAndProduct(t, store)

		item := &models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}
		require.NoError(t, store.Carts().Create(ctx, item))
		assert.NotEmpty(t, item.ID)

		// (user, product) is unique
		err := store.Carts().Create(ctx, &models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1})
		assert.Error(t, err)

		items, err := store.Carts().ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.NotNil(t, items[0].Product)
		assert.Equal(t, "Bottle", items[0].Product.Name)
		assert.True(t, decimal.NewFromInt(598000).Equal(items[0].Subtotal()))

		require.NoError(t, store.Carts().UpdateQuantity(ctx, item.ID, 5))
		found, err := store.Carts().GetByUserAndProduct(ctx, user.ID, product.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, found.Quantity)

		deleted, err := store.Carts().DeleteItems(ctx, "someone-else", []string{item.ID})
		require.NoError(t, err)
		assert.Zero(t, deleted)

		deleted, err = store.Carts().DeleteItems(ctx, user.ID, []string{item.ID})
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)

		_, err = store.Carts().GetByID(ctx, item.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.ErrorIs(t, store.Carts().Delete(ctx, item.ID), repositories.ErrNotFound)
	})
}

func TestStore_OrdersNewestFirstWithItems(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		user, product := seedUserAndProduct(t, store)

		var ids []string
		for i := 0; i < 2; i++ {
			order := &models.Order{
				UserID:          user.ID,
				TotalAmount:     decimal.NewFromInt(598000),
				Status:          models.OrderStatusPending,
				ShippingAddress: "123 St",
				ShippingPhone:   "0900000000",
			}
			require.NoError(t, store.Orders().Create(ctx, order))
			items := []models.OrderItem{
				{OrderID: order.ID, Position: 1, ProductID: product.ID, ProductName: "Second", ProductPrice: decimal.NewFromInt(1000), Quantity: 1, Subtotal: decimal.NewFromInt(1000)},
				{OrderID: order.ID, Position: 0, ProductID: product.ID, ProductName: "First", ProductPrice: decimal.NewFromInt(2000), Quantity: 1, Subtotal: decimal.NewFromInt(2000)},
			}
			require.NoError(t, store.Orders().CreateItems(ctx, items))
			ids = append(ids, order.ID)
		}

		orders, err := store.Orders().ListByUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, ids[1], orders[0].ID)
		assert.Equal(t, ids[0], orders[1].ID)
		require.Len(t, orders[0].Items, 2)
		assert.Equal(t, "First", orders[0].Items[0].ProductName)

		order, err := store.Orders().GetByID(ctx, ids[0])
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(3000).Equal(order.ItemsTotal()))
		require.NotNil(t, order.User)
		assert.Equal(t, "lan", order.User.Username)
		assert.Empty(t, order.User.Password)

		all, err := store.Orders().ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		_, err = store.Orders().GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestStore_OrderStatusCompareAndSet(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		user, _ := seedUserAndProduct(t, store)
		order := &models.Order{UserID: user.ID, TotalAmount: decimal.Zero, Status: models.OrderStatusPending, ShippingAddress: "a", ShippingPhone: "p"}
		require.NoError(t, store.Orders().Create(ctx, order))

		require.NoError(t, store.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusProcessing))

		err := store.Orders().UpdateStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusShipped)
		assert.ErrorIs(t, err, repositories.ErrConflict)

		err = store.Orders().UpdateStatus(ctx, "missing", models.OrderStatusPending, models.OrderStatusShipped)
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		got, err := store.Orders().GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusProcessing, got.Status)
	})
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		user, product := seedUserAndProduct(t, store)
		item := &models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}
		require.NoError(t, store.Carts().Create(ctx, item))

		var orderID string
		boom := errors.New("boom")
		err := store.WithinTx(ctx, func(tx repositories.Store) error {
			order := &models.Order{UserID: user.ID, TotalAmount: decimal.Zero, Status: models.OrderStatusPending, ShippingAddress: "a", ShippingPhone: "p"}
			if err := tx.Orders().Create(ctx, order); err != nil {
				return err
			}
			orderID = order.ID
			if _, err := tx.Carts().DeleteItems(ctx, user.ID, []string{item.ID}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.Orders().GetByID(ctx, orderID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		items, err := store.Carts().ListByUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})
}

func TestStore_Products(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		user, product := seedUserAndProduct(t, store)

		category := &models.Category{Name: "Feeding", Slug: "feeding"}
		require.NoError(t, store.Categories().Create(ctx, category))
		gotCategory, err := store.Categories().GetBySlug(ctx, "feeding")
		require.NoError(t, err)
		assert.Equal(t, category.ID, gotCategory.ID)

		product.CategoryID = &category.ID
		product.Stock = 3
		require.NoError(t, store.Products().Update(ctx, product))

		inCategory, err := store.Products().GetAll(ctx, repositories.ProductFilter{CategoryID: category.ID})
		require.NoError(t, err)
		require.Len(t, inCategory, 1)
		assert.Equal(t, 3, inCategory[0].Stock)

		bySlug, err := store.Products().GetBySlug(ctx, "bottle")
		require.NoError(t, err)
		assert.Equal(t, product.ID, bySlug.ID)

		err = store.Products().Update(ctx, &models.Product{ID: "missing", Name: "Nothing", Price: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, repositories.ErrNotFound)

		require.NoError(t, store.Carts().Create(ctx, &models.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}))
		require.NoError(t, store.Products().Delete(ctx, product.ID))
		items, err := store.Carts().ListByUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.ErrorIs(t, store.Products().Delete(ctx, product.ID), repositories.ErrNotFound)
	})
}

func TestGORMStore_FailedItemInsertRollsBackOrder(t *testing.T) {
	db := openSQLite(t)
	boom := errors.New("order_items unavailable")
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:fail_order_items", func(tx *gorm.DB) {
		if tx.Statement.Table == "order_items" {
			_ = tx.AddError(boom)
		}
	}))
	store := repositories.NewGORMStore(db)
	ctx := context.Background()
	user, product := seedUserAndProduct(t, store)

	var orderID string
	err := store.WithinTx(ctx, func(tx repositories.Store) error {
		order := &models.Order{UserID: user.ID, TotalAmount: decimal.NewFromInt(299000), Status: models.OrderStatusPending, ShippingAddress: "a", ShippingPhone: "p"}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		orderID = order.ID
		return tx.Orders().CreateItems(ctx, []models.OrderItem{
			{OrderID: order.ID, ProductID: product.ID, ProductName: product.Name, ProductPrice: product.Price, Quantity: 1, Subtotal: product.Price},
		})
	})
	assert.ErrorIs(t, err, boom)
	require.NotEmpty(t, orderID)

	_, err = store.Orders().GetByID(ctx, orderID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
