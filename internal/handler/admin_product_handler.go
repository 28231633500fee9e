package handler

import (
	"net/http"
	"strconv"

	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /admin/products と /admin/categories
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, jwtSecret string, revoked repository.RevokedTokenRepository) {
	g := e.Group("/admin")
	g.Use(middleware.AuthJWT(jwtSecret, revoked))
	g.Use(middleware.AdminRoleGuard())

	g.POST("/products", h.create)
	g.GET("/products/:id", h.detail)
	g.PUT("/products/:id", h.update)
	g.DELETE("/products/:id", h.delete)
	g.PUT("/products/:id/stock", h.setStock)
	g.GET("/products/low-stock", h.lowStock)

	g.POST("/categories", h.createCategory)
	g.PUT("/categories/:id", h.updateCategory)
}

type ProductCreateRequest struct {
	SKU               string              `json:"sku"`
	Name              model.LocalizedText `json:"name"`
	Description       model.LocalizedText `json:"description"`
	PriceCents        int64               `json:"price_cents"`
	Stock             int64               `json:"stock"`
	LowStockThreshold *int64              `json:"low_stock_threshold"`
	IsActive          *bool               `json:"is_active"`
	CategoryID        *int64              `json:"category_id"`
}

func (h *AdminProductHandler) create(c echo.Context) error {
	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreateProduct(c.Request().Context(), usecase.ProductCreateInput{
		SKU:               req.SKU,
		Name:              req.Name,
		Description:       req.Description,
		PriceCents:        req.PriceCents,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          req.IsActive,
		CategoryID:        req.CategoryID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminProductHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetAdmin(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type ProductUpdateRequest struct {
	Name              model.LocalizedText `json:"name"`
	Description       model.LocalizedText `json:"description"`
	PriceCents        *int64              `json:"price_cents"`
	LowStockThreshold *int64              `json:"low_stock_threshold"`
	IsActive          *bool               `json:"is_active"`
	CategoryID        *int64              `json:"category_id"`
}

func (h *AdminProductHandler) update(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req ProductUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateProduct(c.Request().Context(), id, usecase.ProductUpdateInput{
		Name:              req.Name,
		Description:       req.Description,
		PriceCents:        req.PriceCents,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          req.IsActive,
		CategoryID:        req.CategoryID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) delete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.DeleteProduct(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type SetStockRequest struct {
	Stock  int64  `json:"stock"`
	Reason string `json:"reason"`
}

func (h *AdminProductHandler) setStock(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req SetStockRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.SetStock(c.Request().Context(), adminID, id, usecase.SetStockInput{
		NewStock: req.Stock,
		Reason:   req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) lowStock(c echo.Context) error {
	var threshold *int64
	if v := c.QueryParam("threshold"); v != "" {
		x, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid threshold"})
		}
		threshold = &x
	}

	out, err := h.uc.ListLowStock(c.Request().Context(), threshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type CategoryRequest struct {
	Name        model.LocalizedText `json:"name"`
	Description model.LocalizedText `json:"description"`
	Slug        string              `json:"slug"`
	IsActive    *bool               `json:"is_active"`
	SortOrder   *int                `json:"sort_order"`
	ParentID    *int64              `json:"parent_id"`
}

func (h *AdminProductHandler) createCategory(c echo.Context) error {
	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.CreateCategory(c.Request().Context(), usecase.CategoryUpsertInput{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
		IsActive:    req.IsActive,
		SortOrder:   req.SortOrder,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AdminProductHandler) updateCategory(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.uc.UpdateCategory(c.Request().Context(), id, usecase.CategoryUpsertInput{
		Name:        req.Name,
		Description: req.Description,
		Slug:        req.Slug,
		IsActive:    req.IsActive,
		SortOrder:   req.SortOrder,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
