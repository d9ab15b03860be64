package repository

import (
	"context"

	"store/internal/domain/model"
)

type CouponRepository interface {
	//codeは大文字小文字を区別した完全一致
	FindByCode(ctx context.Context, code string) (model.Coupon, error)
	FindByID(ctx context.Context, couponID int64) (model.Coupon, error)
	List(ctx context.Context) ([]model.Coupon, error)

	Create(ctx context.Context, c model.Coupon) (model.Coupon, error)
	Update(ctx context.Context, c model.Coupon) error
	Delete(ctx context.Context, couponID int64) error
}
