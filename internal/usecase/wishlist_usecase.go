package usecase

import (
	"context"
	"net/http"

	repo "store/internal/repository"
)

// WishlistUsecase は /wishlist の業務ロジック。
type WishlistUsecase struct {
	wishlistRepo repo.WishlistRepository
	variantRepo  repo.VariantRepository
	productRepo  repo.ProductRepository
}

func NewWishlistUsecase(
	wishlistRepo repo.WishlistRepository,
	variantRepo repo.VariantRepository,
	productRepo repo.ProductRepository,
) *WishlistUsecase {
	return &WishlistUsecase{wishlistRepo: wishlistRepo, variantRepo: variantRepo, productRepo: productRepo}
}

type WishlistItemResponse struct {
	ID               int64   `json:"id"`
	ProductVariantID int64   `json:"product_variant_id"`
	ProductID        int64   `json:"product_id"`
	Name             string  `json:"name"`
	Color            string  `json:"color"`
	Size             string  `json:"size"`
	Price            float64 `json:"price"`
	InStock          bool    `json:"in_stock"`
}

type WishlistResponse struct {
	Items []WishlistItemResponse `json:"items"`
}

type AddWishlistInput struct {
	ProductVariantID int64
}

func (u *WishlistUsecase) GetWishlist(ctx context.Context, userID int64) (WishlistResponse, error) {
	if userID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	wl, err := u.wishlistRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildWishlistResponse(ctx, wl.ID)
}

func (u *WishlistUsecase) AddItem(ctx context.Context, userID int64, in AddWishlistInput) (WishlistResponse, error) {
	if userID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductVariantID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_variant_id")
	}

	if _, err := u.variantRepo.FindByID(ctx, in.ProductVariantID); err != nil {
		if err == repo.ErrNotFound {
			return WishlistResponse{}, NewHTTPError(http.StatusNotFound, "product variant not found")
		}
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	wl, err := u.wishlistRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//二重追加はリポジトリ側が既存行を返すので気にしない
	if _, err := u.wishlistRepo.AddItem(ctx, wl.ID, in.ProductVariantID); err != nil {
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildWishlistResponse(ctx, wl.ID)
}

func (u *WishlistUsecase) RemoveItem(ctx context.Context, userID int64, itemID int64) (WishlistResponse, error) {
	if userID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if itemID <= 0 {
		return WishlistResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	owned, err := u.wishlistRepo.IsItemOwnedByUser(ctx, itemID, userID)
	if err != nil {
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !owned {
		return WishlistResponse{}, NewHTTPError(http.StatusNotFound, "wishlist item not found")
	}

	if err := u.wishlistRepo.DeleteItem(ctx, itemID); err != nil {
		if err == repo.ErrNotFound {
			return WishlistResponse{}, NewHTTPError(http.StatusNotFound, "wishlist item not found")
		}
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	wl, err := u.wishlistRepo.GetOrCreateByUserID(ctx, userID)
	if err != nil {
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return u.buildWishlistResponse(ctx, wl.ID)
}

func (u *WishlistUsecase) buildWishlistResponse(ctx context.Context, wishlistID int64) (WishlistResponse, error) {
	items, err := u.wishlistRepo.ListItems(ctx, wishlistID)
	if err != nil {
		return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	res := WishlistResponse{Items: make([]WishlistItemResponse, 0, len(items))}
	for _, it := range items {
		v, err := u.variantRepo.FindByID(ctx, it.ProductVariantID)
		if err == repo.ErrNotFound {
			//SKUが消えた行はスキップ
			continue
		}
		if err != nil {
			return WishlistResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		name := ""
		if p, err := u.productRepo.FindByID(ctx, v.ProductID); err == nil {
			name = p.Name
		}

		res.Items = append(res.Items, WishlistItemResponse{
			ID:               it.ID,
			ProductVariantID: v.ID,
			ProductID:        v.ProductID,
			Name:             name,
			Color:            v.Color,
			Size:             v.Size,
			Price:            v.Price,
			InStock:          v.Stock > 0,
		})
	}
	return res, nil
}
