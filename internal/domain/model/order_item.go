package model

import "time"

// 注文明細。priceは購入時点のスナップショットで、以後の価格変更の影響を受けない。
type OrderItem struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID          int64     `gorm:"not null;index" json:"order_id"`
	ProductVariantID int64     `gorm:"not null;index" json:"product_variant_id"`
	Quantity         int64     `gorm:"not null" json:"quantity"`
	Price            float64   `gorm:"not null" json:"price"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
