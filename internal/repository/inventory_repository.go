package repository

import "context"

// SKU在庫の台帳操作。
type InventoryRepository interface {
	// 在庫の現在値を設定（管理者用）
	SetStock(ctx context.Context, variantID int64, newStock int64) error

	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, variantID int64, qty int64) error
}
