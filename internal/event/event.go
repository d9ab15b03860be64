package event

import (
	"context"
	"time"
)

const (
	OrderPlaced    = "order_placed"
	OrderCancelled = "order_cancelled"
)

// 注文イベント。確定・キャンセル後にキューへ流す。
type OrderEvent struct {
	Event      string    `json:"event"`
	OrderID    int64     `json:"order_id"`
	UserID     int64     `json:"user_id"`
	Total      float64   `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

// 配送はベストエフォート。失敗しても注文処理は成功のまま。
type Publisher interface {
	Publish(ctx context.Context, evt OrderEvent) error
}

// ブローカー未設定のとき用
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	return nil
}
