package model

import "time"

// 購入単位のSKU（色・サイズの組み合わせごとに価格と在庫を持つ）
// stockは負にならない。減るのは注文確定、増えるのはキャンセルの在庫戻しだけ。
type ProductVariant struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64   `gorm:"not null;index" json:"product_id"`
	Price     float64 `gorm:"not null" json:"price"`
	Stock     int64   `gorm:"not null;default:0" json:"stock"`
	Color     string  `gorm:"type:varchar(50)" json:"color"`
	Size      string  `gorm:"type:varchar(50)" json:"size"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
