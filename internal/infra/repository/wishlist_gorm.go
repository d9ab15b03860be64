package repository

import (
	"context"
	"errors"

	"store/internal/domain/model"
	repo "store/internal/repository"

	"gorm.io/gorm"
)

type WishlistGormRepository struct {
	db *gorm.DB
}

func NewWishlistGormRepository(db *gorm.DB) *WishlistGormRepository {
	return &WishlistGormRepository{db: db}
}

func (r *WishlistGormRepository) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Wishlist, error) {
	var wl model.Wishlist
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wl).Error
	if err == nil {
		return wl, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Wishlist{}, err
	}

	wl = model.Wishlist{UserID: userID}
	if err := r.db.WithContext(ctx).Create(&wl).Error; err != nil {
		return model.Wishlist{}, err
	}
	return wl, nil
}

func (r *WishlistGormRepository) ListItems(ctx context.Context, wishlistID int64) ([]model.WishlistItem, error) {
	var items []model.WishlistItem
	err := r.db.WithContext(ctx).
		Where("wishlist_id = ?", wishlistID).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.WishlistItem{}, err
	}
	return items, nil
}

// 既に入っているSKUなら既存行を返すだけ
func (r *WishlistGormRepository) AddItem(ctx context.Context, wishlistID int64, variantID int64) (model.WishlistItem, error) {
	var item model.WishlistItem
	err := r.db.WithContext(ctx).
		Where("wishlist_id = ? AND product_variant_id = ?", wishlistID, variantID).
		First(&item).Error
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.WishlistItem{}, err
	}

	item = model.WishlistItem{WishlistID: wishlistID, ProductVariantID: variantID}
	if err := r.db.WithContext(ctx).Create(&item).Error; err != nil {
		return model.WishlistItem{}, err
	}
	return item, nil
}

func (r *WishlistGormRepository) DeleteItem(ctx context.Context, itemID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&model.WishlistItem{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *WishlistGormRepository) IsItemOwnedByUser(ctx context.Context, itemID int64, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.WishlistItem{}).
		Joins("JOIN wishlists ON wishlists.id = wishlist_items.wishlist_id").
		Where("wishlist_items.id = ? AND wishlists.user_id = ?", itemID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
