package handler

import (
	"net/http"
	"time"

	"store/internal/config"
	"store/internal/middleware"
	"store/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CouponHandler struct {
	uc *usecase.CouponUsecase
}

func NewCouponHandler(uc *usecase.CouponUsecase) *CouponHandler {
	return &CouponHandler{uc: uc}
}

type CouponRequest struct {
	Code               string    `json:"code"`
	DiscountPercentage int       `json:"discount_percentage"`
	ExpiresAt          time.Time `json:"expires_at"`
}

func (h *CouponHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	v := e.Group("/coupons")
	v.Use(middleware.AuthJWT(cfg))
	v.GET("/validate/:code", h.validate)

	g := e.Group("/admin/coupons")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.AdminRoleGuard())

	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

// 存在しない→404、期限切れ→400（クーポン情報つき）、有効→200。
func (h *CouponHandler) validate(c echo.Context) error {
	out, err := h.uc.Validate(c.Request().Context(), c.Param("code"))
	if err != nil {
		return writeError(c, err)
	}

	if !out.Valid {
		if out.Coupon == nil {
			return c.JSON(http.StatusNotFound, out)
		}
		return c.JSON(http.StatusBadRequest, out)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CouponHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CouponHandler) create(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req CouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Create(c.Request().Context(), adminID, usecase.CouponCreateInput{
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CouponHandler) update(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req CouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.Update(c.Request().Context(), adminID, id, usecase.CouponUpdateInput{
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		ExpiresAt:          req.ExpiresAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CouponHandler) remove(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Delete(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "coupon deleted"})
}
