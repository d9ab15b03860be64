package model

import "time"

// 1ユーザーにつきウィッシュリストは1つ。カート同様に初回アクセス時に作る。
type Wishlist struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex" json:"user_id"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type WishlistItem struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	WishlistID       int64     `gorm:"not null;index" json:"wishlist_id"`
	ProductVariantID int64     `gorm:"not null;index" json:"product_variant_id"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
