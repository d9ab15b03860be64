package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"store/internal/domain/model"
	repo "store/internal/repository"
)

// ProductUsecase は商品カタログの業務ロジック（公開側と管理者側の両方）。
type ProductUsecase struct {
	productRepo   repo.ProductRepository
	variantRepo   repo.VariantRepository
	inventoryRepo repo.InventoryRepository
	auditRepo     repo.AuditLogRepository
	logger        *slog.Logger
}

func NewProductUsecase(
	productRepo repo.ProductRepository,
	variantRepo repo.VariantRepository,
	inventoryRepo repo.InventoryRepository,
	auditRepo repo.AuditLogRepository,
	logger *slog.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		variantRepo:   variantRepo,
		inventoryRepo: inventoryRepo,
		auditRepo:     auditRepo,
		logger:        logger,
	}
}

type ProductListInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
}

type ProductVariantOutput struct {
	ID    int64   `json:"id"`
	Price float64 `json:"price"`
	Stock int64   `json:"stock"`
	Color string  `json:"color"`
	Size  string  `json:"size"`
}

type ProductOutput struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Images      []string               `json:"images"`
	Variants    []ProductVariantOutput `json:"variants"`
}

type ProductListOutput struct {
	Products []ProductOutput `json:"products"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

type VariantInput struct {
	ID    int64 //0なら新規
	Price float64
	Stock int64
	Color string
	Size  string
}

type SaveProductInput struct {
	Name        string
	Description string
	Category    string
	Images      []string
	Variants    []VariantInput
}

// ListPublic は公開カタログの一覧（ページング・検索・カテゴリ絞り込み）。
func (u *ProductUsecase) ListPublic(ctx context.Context, in ProductListInput) (ProductListOutput, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	limit := in.Limit
	if limit < 1 || limit > 100 {
		limit = 20
	}

	products, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:     page,
		Limit:    limit,
		Q:        strings.TrimSpace(in.Q),
		Category: strings.TrimSpace(in.Category),
	})
	if err != nil {
		return ProductListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := ProductListOutput{
		Products: make([]ProductOutput, 0, len(products)),
		Total:    total,
		Page:     page,
		Limit:    limit,
	}
	for i := range products {
		out.Products = append(out.Products, toProductOutput(products[i]))
	}
	return out, nil
}

func (u *ProductUsecase) GetDetail(ctx context.Context, productID int64) (ProductOutput, error) {
	if productID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		if err == repo.ErrNotFound {
			return ProductOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
		}
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toProductOutput(p), nil
}

// AdminCreate は商品登録。SKUが1つもない商品は作れない。
func (u *ProductUsecase) AdminCreate(ctx context.Context, in SaveProductInput) (ProductOutput, error) {
	if strings.TrimSpace(in.Name) == "" {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if len(in.Variants) == 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "at least one product variant is required")
	}
	for _, v := range in.Variants {
		if v.Price < 0 {
			return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "price must not be negative")
		}
		if v.Stock < 0 {
			return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "stock must not be negative")
		}
	}

	p := model.Product{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Images:      encodeImages(in.Images),
	}
	for _, v := range in.Variants {
		p.Variants = append(p.Variants, model.ProductVariant{
			Price: v.Price,
			Stock: v.Stock,
			Color: v.Color,
			Size:  v.Size,
		})
	}

	created, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toProductOutput(created), nil
}

// AdminUpdate は商品とSKUの更新。
// 注文実績のあるSKUはcolor/sizeを変えられない（価格と在庫だけ変更可）。
// 在庫を変えた場合は監査ログを残す。
func (u *ProductUsecase) AdminUpdate(ctx context.Context, actorUserID int64, productID int64, in SaveProductInput) (ProductOutput, error) {
	if productID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if strings.TrimSpace(in.Name) == "" {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if len(in.Variants) == 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "at least one product variant is required")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		if err == repo.ErrNotFound {
			return ProductOutput{}, NewHTTPError(http.StatusNotFound, "product not found")
		}
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	p.Name = in.Name
	p.Description = in.Description
	p.Category = in.Category
	p.Images = encodeImages(in.Images)
	if err := u.productRepo.Update(ctx, p); err != nil {
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	current, err := u.variantRepo.ListByProductID(ctx, productID)
	if err != nil {
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	currentByID := make(map[int64]model.ProductVariant, len(current))
	for _, v := range current {
		currentByID[v.ID] = v
	}

	keep := make(map[int64]bool, len(in.Variants))
	for _, vin := range in.Variants {
		if vin.Price < 0 {
			return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "price must not be negative")
		}
		if vin.Stock < 0 {
			return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "stock must not be negative")
		}

		if vin.ID == 0 {
			//新規SKU
			if _, err := u.variantRepo.Create(ctx, model.ProductVariant{
				ProductID: productID,
				Price:     vin.Price,
				Stock:     vin.Stock,
				Color:     vin.Color,
				Size:      vin.Size,
			}); err != nil {
				return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
			}
			continue
		}

		cur, ok := currentByID[vin.ID]
		if !ok || cur.ProductID != productID {
			return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "product variant not found")
		}
		keep[vin.ID] = true

		ordered, err := u.variantRepo.OrderCount(ctx, vin.ID)
		if err != nil {
			return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if ordered > 0 && (cur.Color != vin.Color || cur.Size != vin.Size) {
			return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "variant with orders can only change price and stock")
		}

		oldStock := cur.Stock
		cur.Price = vin.Price
		cur.Stock = vin.Stock
		cur.Color = vin.Color
		cur.Size = vin.Size
		if err := u.variantRepo.Update(ctx, cur); err != nil {
			return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if oldStock != vin.Stock {
			u.auditStockChange(ctx, actorUserID, vin.ID, oldStock, vin.Stock)
		}
	}

	//入力に含まれない既存SKUは削除（注文実績があれば残す）
	for _, cur := range current {
		if keep[cur.ID] {
			continue
		}
		ordered, err := u.variantRepo.OrderCount(ctx, cur.ID)
		if err != nil {
			return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if ordered > 0 {
			continue
		}
		if err := u.variantRepo.Delete(ctx, cur.ID); err != nil {
			return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	updated, err := u.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toProductOutput(updated), nil
}

// AdminSetStock は在庫だけを直接設定する管理操作。監査ログを必ず残す。
func (u *ProductUsecase) AdminSetStock(ctx context.Context, actorUserID int64, variantID int64, newStock int64) error {
	if variantID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if newStock < 0 {
		return NewHTTPError(http.StatusBadRequest, "stock must not be negative")
	}

	v, err := u.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "product variant not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.inventoryRepo.SetStock(ctx, variantID, newStock); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "product variant not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.auditStockChange(ctx, actorUserID, variantID, v.Stock, newStock)
	return nil
}

func (u *ProductUsecase) AdminDelete(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := u.productRepo.SoftDelete(ctx, productID); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 監査ログの失敗は本処理を止めない
func (u *ProductUsecase) auditStockChange(ctx context.Context, actorUserID int64, variantID int64, before int64, after int64) {
	beforeJSON, _ := json.Marshal(map[string]int64{"stock": before})
	afterJSON, _ := json.Marshal(map[string]int64{"stock": after})
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorUserID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   variantID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
	}); err != nil {
		u.logger.Warn("failed to write audit log", "variant_id", variantID, "error", err)
	}
}

func toProductOutput(p model.Product) ProductOutput {
	out := ProductOutput{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Images:      decodeImages(p.Images),
		Variants:    make([]ProductVariantOutput, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, ProductVariantOutput{
			ID:    v.ID,
			Price: v.Price,
			Stock: v.Stock,
			Color: v.Color,
			Size:  v.Size,
		})
	}
	return out
}

func encodeImages(urls []string) string {
	if len(urls) == 0 {
		return "[]"
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeImages(s string) []string {
	if s == "" {
		return []string{}
	}
	var urls []string
	if err := json.Unmarshal([]byte(s), &urls); err != nil {
		return []string{}
	}
	return urls
}
