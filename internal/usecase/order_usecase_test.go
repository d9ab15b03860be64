package usecase

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"store/internal/domain/model"
	repo "store/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orderTestDeps struct {
	orders     *MockOrderRepository
	orderItems *MockOrderItemRepository
	invoices   *MockInvoiceRepository
	addresses  *MockAddressRepository
	coupons    *MockCouponRepository
	carts      *MockCartRepository
	variants   *MockVariantRepository
	products   *MockProductRepository
	users      *MockUserRepository
	inventory  *MockInventoryRepository
	events     *MockPublisher
}

func newOrderUsecaseForTest() (*OrderUsecase, *orderTestDeps) {
	d := &orderTestDeps{
		orders:     new(MockOrderRepository),
		orderItems: new(MockOrderItemRepository),
		invoices:   new(MockInvoiceRepository),
		addresses:  new(MockAddressRepository),
		coupons:    new(MockCouponRepository),
		carts:      new(MockCartRepository),
		variants:   new(MockVariantRepository),
		products:   new(MockProductRepository),
		users:      new(MockUserRepository),
		inventory:  new(MockInventoryRepository),
		events:     new(MockPublisher),
	}

	tx := &fakeTxManager{repos: &fakeTxRepos{
		orders:     d.orders,
		orderItems: d.orderItems,
		invoices:   d.invoices,
		carts:      d.carts,
		cartItems:  new(MockCartItemRepository),
		inventory:  d.inventory,
		variants:   d.variants,
	}}

	uc := NewOrderUsecase(
		tx,
		d.orders,
		d.orderItems,
		d.invoices,
		d.addresses,
		d.coupons,
		d.carts,
		d.variants,
		d.products,
		d.users,
		d.events,
		slog.Default(),
	)
	return uc, d
}

// 注文確定後の共通スタブ（カートクリア・イベント・表示組み立て）
func stubPostCommit(d *orderTestDeps, userID int64) {
	d.carts.On("FindByUserID", mock.Anything, userID).Return(model.Cart{ID: 10, UserID: userID}, nil)
	d.carts.On("Clear", mock.Anything, int64(10)).Return(nil)
	d.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	d.addresses.On("FindByID", mock.Anything, mock.Anything).Return(model.Address{ID: 1, Street: "1 Test St"}, nil)
	d.products.On("FindByID", mock.Anything, mock.Anything).Return(model.Product{ID: 1, Name: "Tee"}, nil)
}

func TestPlaceOrder_FlatShippingUnderThreshold(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 20.0, Stock: 5}, nil)
	d.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)

	//小計40 → 割引0 → 送料5.99 → 合計45.99
	d.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Total == 45.99 && o.Status == model.OrderStatusPending && o.CouponCode == nil
	})).Return(int64(55), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(55), mock.Anything).Return(nil)
	d.invoices.On("Create", mock.Anything, mock.MatchedBy(func(inv model.Invoice) bool {
		//請求先未指定なら配送先と同じ、金額は注文合計
		return inv.OrderID == 55 && inv.Amount == 45.99 && inv.BillingAddressID == 1 && inv.Number != ""
	})).Return(model.Invoice{ID: 9}, nil)

	stubPostCommit(d, userID)

	out, err := uc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 2}},
		ShippingAddressID: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, 45.99, out.Order.Total)
	assert.Equal(t, "pending", out.Order.Status)
	assert.True(t, out.CartCleared)
	d.orders.AssertExpectations(t)
	d.invoices.AssertExpectations(t)
}

func TestPlaceOrder_FreeShippingAtThreshold(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 30.0, Stock: 5}, nil)
	d.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)

	//小計60 ≥ 50 → 送料無料
	d.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Total == 60.0
	})).Return(int64(56), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(56), mock.Anything).Return(nil)
	d.invoices.On("Create", mock.Anything, mock.Anything).Return(model.Invoice{ID: 9}, nil)

	stubPostCommit(d, userID)

	out, err := uc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 2}},
		ShippingAddressID: 1,
	})

	require.NoError(t, err)
	assert.Equal(t, 60.0, out.Order.Total)
	d.orders.AssertExpectations(t)
}

func TestPlaceOrder_CouponDiscountBeforeShipping(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	d.coupons.On("FindByCode", mock.Anything, "SAVE10").Return(model.Coupon{
		ID: 3, Code: "SAVE10", DiscountPercentage: 10, ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 50.0, Stock: 5}, nil)
	d.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(2)).Return(true, nil)

	//小計100 → 10%引きで90 → 90 ≥ 50なので送料無料 → 合計90
	d.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Total == 90.0 && o.DiscountAmount == 10.0 &&
			o.CouponCode != nil && *o.CouponCode == "SAVE10"
	})).Return(int64(57), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(57), mock.Anything).Return(nil)
	d.invoices.On("Create", mock.Anything, mock.Anything).Return(model.Invoice{ID: 9}, nil)

	stubPostCommit(d, userID)

	out, err := uc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 2}},
		ShippingAddressID: 1,
		CouponCode:        "SAVE10",
	})

	require.NoError(t, err)
	assert.Equal(t, 90.0, out.Order.Total)
	assert.Equal(t, 10.0, out.Order.DiscountAmount)
	d.orders.AssertExpectations(t)
}

func TestPlaceOrder_ExpiredCouponSilentlyIgnored(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	d.coupons.On("FindByCode", mock.Anything, "OLD").Return(model.Coupon{
		ID: 4, Code: "OLD", DiscountPercentage: 50, ExpiresAt: time.Now().Add(-1 * time.Hour),
	}, nil)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 30.0, Stock: 5}, nil)
	d.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(true, nil)

	//期限切れクーポンは割引なし扱い。注文自体は成立する。
	d.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Total == 35.99 && o.DiscountAmount == 0 && o.CouponCode == nil
	})).Return(int64(58), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(58), mock.Anything).Return(nil)
	d.invoices.On("Create", mock.Anything, mock.Anything).Return(model.Invoice{ID: 9}, nil)

	stubPostCommit(d, userID)

	out, err := uc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 1}},
		ShippingAddressID: 1,
		CouponCode:        "OLD",
	})

	require.NoError(t, err)
	assert.Equal(t, 35.99, out.Order.Total)
	assert.Nil(t, out.Order.CouponCode)
}

func TestPlaceOrder_InsufficientStockAbortsOrder(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 30.0, Stock: 1}, nil)
	d.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(3)).Return(false, nil)

	_, err := uc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 3}},
		ShippingAddressID: 1,
	})

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "insufficient stock", he.Message)

	//注文・明細・請求書は一切書かれない
	d.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	d.orderItems.AssertNotCalled(t, "CreateBulk", mock.Anything, mock.Anything, mock.Anything)
	d.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPlaceOrder_PriceSnapshotFromVariant(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 19.99, Stock: 5}, nil)
	d.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(true, nil)

	d.orders.On("Create", mock.Anything, mock.Anything).Return(int64(59), nil)
	//明細の単価はSKUの現在価格が固定される
	d.orderItems.On("CreateBulk", mock.Anything, int64(59), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 && items[0].Price == 19.99 && items[0].Quantity == 1
	})).Return(nil)
	d.invoices.On("Create", mock.Anything, mock.Anything).Return(model.Invoice{ID: 9}, nil)

	stubPostCommit(d, userID)

	_, err := uc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 1}},
		ShippingAddressID: 1,
	})

	require.NoError(t, err)
	d.orderItems.AssertExpectations(t)
}

func TestPlaceOrder_RejectsForeignShippingAddress(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(9), int64(7)).Return(false, nil)

	_, err := uc.PlaceOrder(ctx, 7, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 1}},
		ShippingAddressID: 9,
	})

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "invalid shipping address", he.Message)
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	uc, _ := newOrderUsecaseForTest()

	_, err := uc.PlaceOrder(context.Background(), 7, PlaceOrderInput{ShippingAddressID: 1})

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "no items in order", he.Message)
}

func TestPlaceOrder_CartClearFailureDoesNotFailOrder(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 30.0, Stock: 5}, nil)
	d.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(true, nil)
	d.orders.On("Create", mock.Anything, mock.Anything).Return(int64(60), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(60), mock.Anything).Return(nil)
	d.invoices.On("Create", mock.Anything, mock.Anything).Return(model.Invoice{ID: 9}, nil)

	//カートクリアが失敗しても注文は成立、cart_clearedだけfalseになる
	d.carts.On("FindByUserID", mock.Anything, userID).Return(model.Cart{ID: 10, UserID: userID}, nil)
	d.carts.On("Clear", mock.Anything, int64(10)).Return(assert.AnError)
	d.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	d.addresses.On("FindByID", mock.Anything, mock.Anything).Return(model.Address{ID: 1}, nil)
	d.products.On("FindByID", mock.Anything, mock.Anything).Return(model.Product{ID: 1, Name: "Tee"}, nil)

	out, err := uc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 1}},
		ShippingAddressID: 1,
	})

	require.NoError(t, err)
	assert.False(t, out.CartCleared)
	assert.Equal(t, int64(60), out.Order.ID)
}

func TestCancelOrder_PendingRestoresStock(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.orders.On("FindByID", mock.Anything, int64(55)).Return(model.Order{
		ID: 55, UserID: userID, Status: model.OrderStatusPending, Total: 45.99, ShippingAddressID: 1,
	}, nil)
	d.orders.On("UpdateStatus", mock.Anything, int64(55), model.OrderStatusCancelled).Return(nil)
	d.orderItems.On("ListByOrderID", mock.Anything, int64(55)).Return([]model.OrderItem{
		{ID: 1, OrderID: 55, ProductVariantID: 100, Quantity: 2, Price: 20.0},
	}, nil)
	d.inventory.On("IncreaseStock", mock.Anything, int64(100), int64(2)).Return(nil)

	d.events.On("Publish", mock.Anything, mock.Anything).Return(nil)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 20.0}, nil)
	d.products.On("FindByID", mock.Anything, mock.Anything).Return(model.Product{ID: 1, Name: "Tee"}, nil)
	d.addresses.On("FindByID", mock.Anything, mock.Anything).Return(model.Address{ID: 1}, nil)

	out, err := uc.CancelOrder(ctx, userID, 55)

	require.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)
	d.inventory.AssertExpectations(t)
}

func TestCancelOrder_ProcessingRejected(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()

	d.orders.On("FindByID", mock.Anything, int64(55)).Return(model.Order{
		ID: 55, UserID: 7, Status: model.OrderStatusProcessing,
	}, nil)

	_, err := uc.CancelOrder(ctx, 7, 55)

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Equal(t, "only pending orders can be cancelled", he.Message)

	//在庫は戻らない
	d.inventory.AssertNotCalled(t, "IncreaseStock", mock.Anything, mock.Anything, mock.Anything)
	d.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelOrder_ForeignOrderHidden(t *testing.T) {
	uc, d := newOrderUsecaseForTest()

	d.orders.On("FindByID", mock.Anything, int64(55)).Return(model.Order{
		ID: 55, UserID: 99, Status: model.OrderStatusPending,
	}, nil)

	_, err := uc.CancelOrder(context.Background(), 7, 55)

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 404, he.Status)
	assert.Equal(t, "order not found", he.Message)
}

func TestGetMyOrderDetail_ForeignOrderHidden(t *testing.T) {
	uc, d := newOrderUsecaseForTest()

	d.orders.On("FindByID", mock.Anything, int64(55)).Return(model.Order{
		ID: 55, UserID: 99, Status: model.OrderStatusPending,
	}, nil)

	_, err := uc.GetMyOrderDetail(context.Background(), 7, 55)

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 404, he.Status)
}

func TestGetOrderInvoice_AdminCanReadAny(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()

	d.orders.On("FindByID", mock.Anything, int64(55)).Return(model.Order{
		ID: 55, UserID: 99, Status: model.OrderStatusPending, Total: 45.99, ShippingAddressID: 1,
	}, nil)
	d.invoices.On("FindByOrderID", mock.Anything, int64(55)).Return(model.Invoice{
		ID: 9, OrderID: 55, Number: "inv-1", Amount: 45.99, BillingAddressID: 1,
	}, nil)
	d.orderItems.On("ListByOrderID", mock.Anything, int64(55)).Return([]model.OrderItem{}, nil)
	d.addresses.On("FindByID", mock.Anything, mock.Anything).Return(model.Address{ID: 1}, nil)
	d.users.On("FindByID", mock.Anything, int64(99)).Return(&model.User{ID: 99, Email: "x@example.com"}, nil)

	out, err := uc.GetOrderInvoice(ctx, 1, model.RoleAdmin, 55)

	require.NoError(t, err)
	assert.Equal(t, "inv-1", out.Number)
	assert.Equal(t, 45.99, out.Amount)
}

func TestGetOrderInvoice_CustomerCannotReadForeign(t *testing.T) {
	uc, d := newOrderUsecaseForTest()

	d.orders.On("FindByID", mock.Anything, int64(55)).Return(model.Order{
		ID: 55, UserID: 99,
	}, nil)

	_, err := uc.GetOrderInvoice(context.Background(), 7, model.RoleUser, 55)

	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 404, he.Status)
	assert.Equal(t, "invoice not found", he.Message)
	d.invoices.AssertNotCalled(t, "FindByOrderID", mock.Anything, mock.Anything)
}

func TestCouponNotFoundAtCheckoutIsIgnored(t *testing.T) {
	uc, d := newOrderUsecaseForTest()
	ctx := context.Background()
	userID := int64(7)

	d.addresses.On("IsOwnedByUser", mock.Anything, int64(1), userID).Return(true, nil)
	d.coupons.On("FindByCode", mock.Anything, "NOPE").Return(model.Coupon{}, repo.ErrNotFound)
	d.variants.On("FindByID", mock.Anything, int64(100)).Return(model.ProductVariant{ID: 100, ProductID: 1, Price: 30.0, Stock: 5}, nil)
	d.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(100), int64(1)).Return(true, nil)
	d.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.DiscountAmount == 0 && o.CouponCode == nil
	})).Return(int64(61), nil)
	d.orderItems.On("CreateBulk", mock.Anything, int64(61), mock.Anything).Return(nil)
	d.invoices.On("Create", mock.Anything, mock.Anything).Return(model.Invoice{ID: 9}, nil)

	stubPostCommit(d, userID)

	out, err := uc.PlaceOrder(ctx, userID, PlaceOrderInput{
		Items:             []PlaceOrderItemInput{{ProductVariantID: 100, Quantity: 1}},
		ShippingAddressID: 1,
		CouponCode:        "NOPE",
	})

	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Order.DiscountAmount)
}
