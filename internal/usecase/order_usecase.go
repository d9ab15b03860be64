package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"store/internal/domain/model"
	"store/internal/event"
	repo "store/internal/repository"

	"github.com/google/uuid"
)

type OrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	invoices   repo.InvoiceRepository
	addresses  repo.AddressRepository
	coupons    repo.CouponRepository
	carts      repo.CartRepository
	variants   repo.VariantRepository
	products   repo.ProductRepository
	users      repo.UserRepository
	events     event.Publisher
	logger     *slog.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	invoices repo.InvoiceRepository,
	addresses repo.AddressRepository,
	coupons repo.CouponRepository,
	carts repo.CartRepository,
	variants repo.VariantRepository,
	products repo.ProductRepository,
	users repo.UserRepository,
	events event.Publisher,
	logger *slog.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:         tx,
		orders:     orders,
		orderItems: orderItems,
		invoices:   invoices,
		addresses:  addresses,
		coupons:    coupons,
		carts:      carts,
		variants:   variants,
		products:   products,
		users:      users,
		events:     events,
		logger:     logger,
	}
}

type PlaceOrderItemInput struct {
	ProductVariantID int64
	Quantity         int64
}

type PlaceOrderInput struct {
	Items             []PlaceOrderItemInput
	ShippingAddressID int64
	BillingAddressID  *int64
	PaymentMethod     string
	CouponCode        string
}

type ProductSummaryOutput struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Images string `json:"images"`
}

type VariantOutput struct {
	ID      int64                 `json:"id"`
	Price   float64               `json:"price"`
	Color   string                `json:"color"`
	Size    string                `json:"size"`
	Product *ProductSummaryOutput `json:"product,omitempty"`
}

type OrderItemOutput struct {
	ID int64 `json:"id"`

	//商品名・画像は現在の商品レコード（価格と数量だけ購入時点で固定）
	ProductVariant *VariantOutput `json:"product_variant,omitempty"`

	Quantity int64   `json:"quantity"`
	Price    float64 `json:"price"`
}

type AddressOutput struct {
	ID         int64  `json:"id"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type OrderOutput struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"user_id"`
	Status          string            `json:"status"`
	Total           float64           `json:"total"`
	CouponCode      *string           `json:"coupon_code,omitempty"`
	DiscountAmount  float64           `json:"discount_amount"`
	ShippingAddress *AddressOutput    `json:"shipping_address,omitempty"`
	Items           []OrderItemOutput `json:"items"`
	CreatedAt       time.Time         `json:"created_at"`
}

// 注文確定の結果。二次処理（カートクリア）の成否は注文の成否と分けて返す。
type PlaceOrderResult struct {
	Order       OrderOutput `json:"order"`
	CartCleared bool        `json:"cart_cleared"`
}

// PlaceOrder はカートのスナップショットから注文を作る。
// 注文・明細・在庫減算・請求書まで1トランザクション。
// 在庫不足は全体を中止する（部分的な書き込みは残らない）。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (PlaceOrderResult, error) {
	if userID <= 0 {
		return PlaceOrderResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(in.Items) == 0 {
		return PlaceOrderResult{}, NewHTTPError(http.StatusBadRequest, "no items in order")
	}
	if in.ShippingAddressID <= 0 {
		return PlaceOrderResult{}, NewHTTPError(http.StatusBadRequest, "invalid shipping address")
	}
	for _, it := range in.Items {
		if it.ProductVariantID <= 0 {
			return PlaceOrderResult{}, NewHTTPError(http.StatusBadRequest, "invalid product_variant_id")
		}
		if it.Quantity < 1 {
			return PlaceOrderResult{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
		}
	}

	//配送先の存在確認＋所有チェック
	owned, err := u.addresses.IsOwnedByUser(ctx, in.ShippingAddressID, userID)
	if err != nil {
		return PlaceOrderResult{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return PlaceOrderResult{}, NewHTTPError(http.StatusBadRequest, "invalid shipping address")
	}

	//請求先（未指定なら配送先と同じ）
	billingAddressID := in.ShippingAddressID
	if in.BillingAddressID != nil {
		owned, err := u.addresses.IsOwnedByUser(ctx, *in.BillingAddressID, userID)
		if err != nil {
			return PlaceOrderResult{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !owned {
			return PlaceOrderResult{}, NewHTTPError(http.StatusBadRequest, "invalid billing address")
		}
		billingAddressID = *in.BillingAddressID
	}

	//クーポンは事前に引いておく（無効・期限切れは黙って無視。
	//エラー表示は検証エンドポイントの仕事）
	var coupon *model.Coupon
	if in.CouponCode != "" {
		c, err := u.coupons.FindByCode(ctx, in.CouponCode)
		if err == nil {
			coupon = &c
		} else if err != repo.ErrNotFound {
			return PlaceOrderResult{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	var created model.Order
	var createdItems []model.OrderItem

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//単価はSKUから取る（クライアントの申告価格は受け取らない）
		orderItems := make([]model.OrderItem, 0, len(in.Items))
		var subtotal float64 = 0

		for _, it := range in.Items {
			v, err := r.Variants().FindByID(ctx, it.ProductVariantID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusBadRequest, "product variant not found")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//在庫減算（足りなければ注文全体を中止）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, v.ID, it.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "insufficient stock")
			}

			orderItems = append(orderItems, model.OrderItem{
				ProductVariantID: v.ID,
				Quantity:         it.Quantity,
				Price:            v.Price,
			})
			subtotal += v.Price * float64(it.Quantity)
		}

		subtotal = round2(subtotal)

		//クーポン適用（期限切れは割引0で黙って無視）
		var discount float64 = 0
		var couponCode *string
		now := time.Now()
		if coupon != nil {
			if coupon.ValidAt(now) {
				discount = DiscountAmount(subtotal, coupon.DiscountPercentage)
				code := coupon.Code
				couponCode = &code
			} else {
				u.logger.Info("expired coupon ignored at checkout",
					slog.String("code", coupon.Code), slog.Int64("user_id", userID))
			}
		}

		afterDiscount := subtotal - discount
		total := round2(afterDiscount + ShippingCost(afterDiscount))

		//注文作成
		orderID, err := r.Orders().Create(ctx, model.Order{
			UserID:            userID,
			Status:            model.OrderStatusPending,
			Total:             total,
			ShippingAddressID: in.ShippingAddressID,
			CouponCode:        couponCode,
			DiscountAmount:    discount,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文明細（価格スナップショット）
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//請求書は注文ごとに1件
		if _, err := r.Invoices().Create(ctx, model.Invoice{
			OrderID:          orderID,
			Number:           uuid.NewString(),
			Amount:           total,
			BillingAddressID: billingAddressID,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		created = model.Order{
			ID:                orderID,
			UserID:            userID,
			Status:            model.OrderStatusPending,
			Total:             total,
			ShippingAddressID: in.ShippingAddressID,
			CouponCode:        couponCode,
			DiscountAmount:    discount,
			CreatedAt:         now,
		}
		createdItems = orderItems
		return nil
	})
	if err != nil {
		return PlaceOrderResult{}, err
	}

	//カートクリアはベストエフォート。失敗しても注文は成立のまま。
	cartCleared := u.clearCart(ctx, userID)

	u.publish(ctx, event.OrderEvent{
		Event:      event.OrderPlaced,
		OrderID:    created.ID,
		UserID:     userID,
		Total:      created.Total,
		OccurredAt: time.Now(),
	})

	out, err := u.buildOrderOutput(ctx, created, createdItems)
	if err != nil {
		//表示用の組み立てに失敗しても注文自体は確定している
		u.logger.Warn("failed to assemble order output",
			slog.Int64("order_id", created.ID), slog.Any("error", err))
		out = toBareOrderOutput(created, createdItems)
	}

	return PlaceOrderResult{Order: out, CartCleared: cartCleared}, nil
}

func (u *OrderUsecase) clearCart(ctx context.Context, userID int64) bool {
	cart, err := u.carts.FindByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		//カートが無いならクリア不要
		return true
	}
	if err != nil {
		u.logger.Warn("cart lookup failed after order placement",
			slog.Int64("user_id", userID), slog.Any("error", err))
		return false
	}

	if err := u.carts.Clear(ctx, cart.ID); err != nil {
		u.logger.Warn("cart clear failed after order placement",
			slog.Int64("user_id", userID), slog.Int64("cart_id", cart.ID), slog.Any("error", err))
		return false
	}
	return true
}

func (u *OrderUsecase) publish(ctx context.Context, evt event.OrderEvent) {
	if err := u.events.Publish(ctx, evt); err != nil {
		u.logger.Warn("order event publish failed",
			slog.String("event", evt.Event), slog.Int64("order_id", evt.OrderID), slog.Any("error", err))
	}
}

// 自分の注文一覧（新しい順、明細・配送先つき）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := u.orderItems.ListByOrderID(ctx, o.ID)
		if err != nil {
			return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out, err := u.buildOrderOutput(ctx, o, items)
		if err != nil {
			return []OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if o.UserID != userID {
		//他人の注文は「存在しない扱い」にする
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out, err := u.buildOrderOutput(ctx, o, items)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

// CancelOrder は pending の注文だけキャンセルできる。
// ステータス変更と在庫戻しは1トランザクション。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var cancelled model.Order
	var items []model.OrderItem

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}

		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusBadRequest, "only pending orders can be cancelled")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//明細ごとに在庫を戻す
		items, err = r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductVariantID, it.Quantity); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		o.Status = model.OrderStatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.publish(ctx, event.OrderEvent{
		Event:      event.OrderCancelled,
		OrderID:    cancelled.ID,
		UserID:     userID,
		Total:      cancelled.Total,
		OccurredAt: time.Now(),
	})

	out, err := u.buildOrderOutput(ctx, cancelled, items)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return out, nil
}

type CustomerOutput struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type InvoiceOutput struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	Amount          float64         `json:"amount"`
	CreatedAt       time.Time       `json:"created_at"`
	BillingAddress  *AddressOutput  `json:"billing_address,omitempty"`
	ShippingAddress *AddressOutput  `json:"shipping_address,omitempty"`
	Customer        *CustomerOutput `json:"customer,omitempty"`
	Order           OrderOutput     `json:"order"`
}

// 請求書の取得。管理者は全件、顧客は自分の注文のみ。
func (u *OrderUsecase) GetOrderInvoice(ctx context.Context, userID int64, role model.Role, orderID int64) (InvoiceOutput, error) {
	if userID <= 0 {
		return InvoiceOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return InvoiceOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return InvoiceOutput{}, NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	if err != nil {
		return InvoiceOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if role != model.RoleAdmin && o.UserID != userID {
		return InvoiceOutput{}, NewHTTPError(http.StatusNotFound, "invoice not found")
	}

	inv, err := u.invoices.FindByOrderID(ctx, orderID)
	if err == repo.ErrNotFound {
		return InvoiceOutput{}, NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	if err != nil {
		return InvoiceOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return InvoiceOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	orderOut, err := u.buildOrderOutput(ctx, o, items)
	if err != nil {
		return InvoiceOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := InvoiceOutput{
		ID:              inv.ID,
		Number:          inv.Number,
		Amount:          inv.Amount,
		CreatedAt:       inv.CreatedAt,
		ShippingAddress: orderOut.ShippingAddress,
		Order:           orderOut,
	}

	if a, err := u.addresses.FindByID(ctx, inv.BillingAddressID); err == nil {
		out.BillingAddress = toAddressOutput(a)
	}
	if user, err := u.users.FindByID(ctx, o.UserID); err == nil {
		out.Customer = &CustomerOutput{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		}
	}

	return out, nil
}

// 表示用に明細へSKU・商品・配送先を結合する。
// 商品名・画像は現在のレコードを映す（意図的に非スナップショット）。
func (u *OrderUsecase) buildOrderOutput(ctx context.Context, o model.Order, items []model.OrderItem) (OrderOutput, error) {
	out := toBareOrderOutput(o, items)

	for i, it := range items {
		v, err := u.variants.FindByID(ctx, it.ProductVariantID)
		if err == repo.ErrNotFound {
			//SKUが消えていても明細は返す
			continue
		}
		if err != nil {
			return OrderOutput{}, err
		}

		vo := &VariantOutput{
			ID:    v.ID,
			Price: v.Price,
			Color: v.Color,
			Size:  v.Size,
		}
		if p, err := u.products.FindByID(ctx, v.ProductID); err == nil {
			vo.Product = &ProductSummaryOutput{
				ID:     p.ID,
				Name:   p.Name,
				Images: p.Images,
			}
		}
		out.Items[i].ProductVariant = vo
	}

	if a, err := u.addresses.FindByID(ctx, o.ShippingAddressID); err == nil {
		out.ShippingAddress = toAddressOutput(a)
	}

	return out, nil
}

func toBareOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:       it.ID,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}

	return OrderOutput{
		ID:             o.ID,
		UserID:         o.UserID,
		Status:         string(o.Status),
		Total:          o.Total,
		CouponCode:     o.CouponCode,
		DiscountAmount: o.DiscountAmount,
		Items:          outItems,
		CreatedAt:      o.CreatedAt,
	}
}

func toAddressOutput(a model.Address) *AddressOutput {
	return &AddressOutput{
		ID:         a.ID,
		Street:     a.Street,
		City:       a.City,
		State:      a.State,
		Country:    a.Country,
		PostalCode: a.PostalCode,
	}
}
