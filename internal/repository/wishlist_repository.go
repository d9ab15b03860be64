package repository

import (
	"context"

	"store/internal/domain/model"
)

type WishlistRepository interface {
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Wishlist, error)
	ListItems(ctx context.Context, wishlistID int64) ([]model.WishlistItem, error)

	//すでに入っているSKUは追加しない
	AddItem(ctx context.Context, wishlistID int64, variantID int64) (model.WishlistItem, error)
	DeleteItem(ctx context.Context, itemID int64) error
	IsItemOwnedByUser(ctx context.Context, itemID int64, userID int64) (bool, error)
}
