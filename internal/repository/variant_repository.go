package repository

import (
	"context"

	"store/internal/domain/model"
)

// SKU（ProductVariant）の永続化の約束。
type VariantRepository interface {
	FindByID(ctx context.Context, variantID int64) (model.ProductVariant, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.ProductVariant, error)

	Create(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error)
	Update(ctx context.Context, v model.ProductVariant) error
	Delete(ctx context.Context, variantID int64) error

	//そのSKUを参照する注文明細の件数。
	//1件でもあればcolor/sizeは変更不可（過去の注文の意味が変わるため）。
	OrderCount(ctx context.Context, variantID int64) (int64, error)
}
