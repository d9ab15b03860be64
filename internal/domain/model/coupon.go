package model

import "time"

// 期限付きの割引コード。利用回数の上限はなく、期限まで何度でも使える。
type Coupon struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`

	//割引率（1〜100）
	DiscountPercentage int `gorm:"not null" json:"discount_percentage"`

	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// nowの時点で有効か
func (c Coupon) ValidAt(now time.Time) bool {
	return !now.After(c.ExpiresAt)
}
