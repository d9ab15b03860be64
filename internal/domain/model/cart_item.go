package model

import "time"

// カートの明細。注文確定時に全行削除される。
type CartItem struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID           int64     `gorm:"not null;index" json:"cart_id"`
	ProductVariantID int64     `gorm:"not null;index" json:"product_variant_id"`
	Quantity         int64     `gorm:"not null;default:1" json:"quantity"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
