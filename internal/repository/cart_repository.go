package repository

import (
	"context"

	"store/internal/domain/model"
)

type CartRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)

	//明細を全削除する（注文確定後）
	Clear(ctx context.Context, cartID int64) error
}
