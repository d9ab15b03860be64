package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"store/internal/domain/model"
	repo "store/internal/repository"
)

type CouponUsecase struct {
	coupons   repo.CouponRepository
	auditRepo repo.AuditLogRepository
}

func NewCouponUsecase(coupons repo.CouponRepository, auditRepo repo.AuditLogRepository) *CouponUsecase {
	return &CouponUsecase{coupons: coupons, auditRepo: auditRepo}
}

type CouponDTO struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discount_percentage"`
	ExpiresAt          time.Time `json:"expires_at"`
}

// 検証結果。無効でも（期限切れ表示用に）クーポンを含めることがある。
type CouponValidationOutput struct {
	Valid   bool       `json:"valid"`
	Coupon  *CouponDTO `json:"coupon,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Validate は読み取りのみ。利用回数の消し込みはしない。
func (u *CouponUsecase) Validate(ctx context.Context, code string) (CouponValidationOutput, error) {
	if strings.TrimSpace(code) == "" {
		return CouponValidationOutput{}, NewHTTPError(http.StatusBadRequest, "invalid code")
	}

	c, err := u.coupons.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return CouponValidationOutput{Valid: false, Message: "Coupon not found"}, nil
	}
	if err != nil {
		return CouponValidationOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	dto := toCouponDTO(c)
	if !c.ValidAt(time.Now()) {
		//期限切れは表示のためクーポンも返す
		return CouponValidationOutput{Valid: false, Coupon: &dto, Message: "Coupon has expired"}, nil
	}

	return CouponValidationOutput{Valid: true, Coupon: &dto}, nil
}

type CouponCreateInput struct {
	Code               string
	DiscountPercentage int
	ExpiresAt          time.Time
}

type CouponUpdateInput struct {
	Code               string
	DiscountPercentage int
	ExpiresAt          time.Time
}

func (u *CouponUsecase) List(ctx context.Context) ([]CouponDTO, error) {
	items, err := u.coupons.List(ctx)
	if err != nil {
		return []CouponDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	outs := make([]CouponDTO, 0, len(items))
	for _, c := range items {
		outs = append(outs, toCouponDTO(c))
	}
	return outs, nil
}

func (u *CouponUsecase) Get(ctx context.Context, couponID int64) (CouponDTO, error) {
	if couponID <= 0 {
		return CouponDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	c, err := u.coupons.FindByID(ctx, couponID)
	if err == repo.ErrNotFound {
		return CouponDTO{}, NewHTTPError(http.StatusNotFound, "coupon not found")
	}
	if err != nil {
		return CouponDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return toCouponDTO(c), nil
}

func (u *CouponUsecase) Create(ctx context.Context, actorAdminUserID int64, in CouponCreateInput) (CouponDTO, error) {
	if err := validateCouponInput(in.Code, in.DiscountPercentage, in.ExpiresAt); err != nil {
		return CouponDTO{}, err
	}

	//コードの重複チェック
	if _, err := u.coupons.FindByCode(ctx, in.Code); err == nil {
		return CouponDTO{}, NewHTTPError(http.StatusBadRequest, "a coupon with this code already exists")
	} else if err != repo.ErrNotFound {
		return CouponDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	created, err := u.coupons.Create(ctx, model.Coupon{
		Code:               in.Code,
		DiscountPercentage: in.DiscountPercentage,
		ExpiresAt:          in.ExpiresAt,
	})
	if err != nil {
		return CouponDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.audit(ctx, actorAdminUserID, created.ID, "", created)
	return toCouponDTO(created), nil
}

func (u *CouponUsecase) Update(ctx context.Context, actorAdminUserID int64, couponID int64, in CouponUpdateInput) (CouponDTO, error) {
	if couponID <= 0 {
		return CouponDTO{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := validateCouponInput(in.Code, in.DiscountPercentage, in.ExpiresAt); err != nil {
		return CouponDTO{}, err
	}

	existing, err := u.coupons.FindByID(ctx, couponID)
	if err == repo.ErrNotFound {
		return CouponDTO{}, NewHTTPError(http.StatusNotFound, "coupon not found")
	}
	if err != nil {
		return CouponDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//コード変更時は他クーポンとの衝突チェック
	if in.Code != existing.Code {
		if _, err := u.coupons.FindByCode(ctx, in.Code); err == nil {
			return CouponDTO{}, NewHTTPError(http.StatusBadRequest, "a coupon with this code already exists")
		} else if err != repo.ErrNotFound {
			return CouponDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	updated := existing
	updated.Code = in.Code
	updated.DiscountPercentage = in.DiscountPercentage
	updated.ExpiresAt = in.ExpiresAt

	if err := u.coupons.Update(ctx, updated); err != nil {
		return CouponDTO{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.audit(ctx, actorAdminUserID, couponID, existing, updated)
	return toCouponDTO(updated), nil
}

func (u *CouponUsecase) Delete(ctx context.Context, actorAdminUserID int64, couponID int64) error {
	if couponID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	existing, err := u.coupons.FindByID(ctx, couponID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "coupon not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.coupons.Delete(ctx, couponID); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	u.audit(ctx, actorAdminUserID, couponID, existing, "")
	return nil
}

func validateCouponInput(code string, pct int, expiresAt time.Time) error {
	if strings.TrimSpace(code) == "" {
		return NewHTTPError(http.StatusBadRequest, "coupon code is required")
	}
	if pct < 1 || pct > 100 {
		return NewHTTPError(http.StatusBadRequest, "discount percentage must be between 1 and 100")
	}
	if expiresAt.IsZero() {
		return NewHTTPError(http.StatusBadRequest, "expiration date is required")
	}
	return nil
}

// 監査ログはベストエフォート（失敗してもクーポン操作は成立）
func (u *CouponUsecase) audit(ctx context.Context, actorID int64, couponID int64, before, after interface{}) {
	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)
	_ = u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       model.AuditActionMutateCoupon,
		ResourceType: model.AuditResourceCoupon,
		ResourceID:   couponID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    time.Now(),
	})
}

func toCouponDTO(c model.Coupon) CouponDTO {
	return CouponDTO{
		ID:                 c.ID,
		Code:               c.Code,
		DiscountPercentage: c.DiscountPercentage,
		ExpiresAt:          c.ExpiresAt,
	}
}
