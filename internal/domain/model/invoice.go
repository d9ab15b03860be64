package model

import "time"

// 請求レコード。注文ごとに1件、作成後は変更しない。
type Invoice struct {
	ID      int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID int64 `gorm:"not null;uniqueIndex" json:"order_id"`

	//帳票用の請求書番号（UUID）
	Number string `gorm:"type:varchar(36);not null;uniqueIndex" json:"number"`

	//注文のtotalと同額
	Amount           float64   `gorm:"not null" json:"amount"`
	BillingAddressID int64     `gorm:"not null" json:"billing_address_id"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
