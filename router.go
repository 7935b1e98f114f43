package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/judyrop/retail-catalog/catalog"
	"github.com/judyrop/retail-catalog/store"
)

const defaultPageSize = catalog.MaxPageSize

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type handler struct {
	svc *catalog.Service
	db  Pinger
}

// SetupRouter wires the catalog operations to HTTP routes. db may be nil, in which case the
// health check does not touch the database.
func SetupRouter(svc *catalog.Service, db Pinger) *gin.Engine {
	h := &handler{svc: svc, db: db}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(slog.Default()))

	r.GET("/health", h.health)

	r.GET("/categories", h.listCategories)
	r.POST("/categories", h.createCategory)
	r.GET("/categories/:id", h.getCategory)
	r.PUT("/categories/:id", h.updateCategory)
	r.DELETE("/categories/:id", h.deleteRoot(catalog.EntityCategory, svc.DeleteCategory))

	r.GET("/brands", h.listBrands)
	r.POST("/brands", h.createBrand)
	r.GET("/brands/:id", h.getBrand)
	r.PUT("/brands/:id", h.updateBrand)
	r.DELETE("/brands/:id", h.deleteRoot(catalog.EntityBrand, svc.DeleteBrand))

	r.GET("/products", h.listProducts)
	r.POST("/products", h.createProduct)
	r.GET("/products/:id", h.getProduct)
	r.PUT("/products/:id", h.updateProduct)
	r.DELETE("/products/:id", h.deleteRoot(catalog.EntityProduct, svc.DeleteProduct))
	r.GET("/products/:id/inventory", h.listProductInventory)

	r.GET("/inventory", h.listInventory)
	r.PUT("/inventory", h.setInventory)
	r.DELETE("/inventory/:product_id/:platform", h.deleteInventory)

	r.GET("/sales", h.listSales)
	r.POST("/sales", h.recordSale)
	r.GET("/sales/:id", h.getSale)
	r.PUT("/sales/:id", h.updateSale)
	r.DELETE("/sales/:id", h.deleteSale)

	return r
}

func (h *handler) health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			slog.ErrorContext(ctx, "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Categories

func (h *handler) listCategories(c *gin.Context) {
	categories, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *handler) getCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	category, err := h.svc.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *handler) createCategory(c *gin.Context) {
	var in catalog.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.svc.CreateCategory(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *handler) updateCategory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in catalog.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := h.svc.UpdateCategory(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// Brands

func (h *handler) listBrands(c *gin.Context) {
	brands, err := h.svc.ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, brands)
}

func (h *handler) getBrand(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	brand, err := h.svc.GetBrand(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, brand)
}

func (h *handler) createBrand(c *gin.Context) {
	var in catalog.BrandInput
	if !bindJSON(c, &in) {
		return
	}
	brand, err := h.svc.CreateBrand(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, brand)
}

func (h *handler) updateBrand(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in catalog.BrandInput
	if !bindJSON(c, &in) {
		return
	}
	brand, err := h.svc.UpdateBrand(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, brand)
}

// Products

func (h *handler) listProducts(c *gin.Context) {
	var filter catalog.ProductFilter
	var ok bool
	if filter.CategoryID, ok = queryUint(c, "category_id"); !ok {
		return
	}
	if filter.BrandID, ok = queryUint(c, "brand_id"); !ok {
		return
	}
	if filter.Page, ok = queryPage(c); !ok {
		return
	}
	products, err := h.svc.ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *handler) getProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	product, err := h.svc.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type productRequest struct {
	Name       string          `json:"name"`
	CategoryID uint            `json:"category_id" binding:"required"`
	BrandID    uint            `json:"brand_id" binding:"required"`
	Price      decimal.Decimal `json:"price"`
}

func (r productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{Name: r.Name, CategoryID: r.CategoryID, BrandID: r.BrandID, Price: r.Price}
}

func (h *handler) createProduct(c *gin.Context) {
	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.svc.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *handler) updateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req productRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.svc.UpdateProduct(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *handler) listProductInventory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	rows, err := h.svc.ListInventoryByProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// deleteRoot serves DELETE on a cascade root. With ?dry_run=true it only reports the closure.
func (h *handler) deleteRoot(root catalog.Entity, del func(context.Context, uint) (*catalog.CascadeReport, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}
		dryRun, err := strconv.ParseBool(c.DefaultQuery("dry_run", "false"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dry_run must be a boolean"})
			return
		}
		var report *catalog.CascadeReport
		if dryRun {
			report, err = h.svc.PlanDelete(c.Request.Context(), root, id)
		} else {
			report, err = del(c.Request.Context(), id)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// Inventory

type setInventoryRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Platform  string `json:"platform"`
	Quantity  *int   `json:"quantity" binding:"required"`
}

func (h *handler) setInventory(c *gin.Context) {
	var req setInventoryRequest
	if !bindJSON(c, &req) {
		return
	}
	row, err := h.svc.SetQuantity(c.Request.Context(), req.ProductID, req.Platform, *req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *handler) deleteInventory(c *gin.Context) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}
	if err := h.svc.DeleteInventory(c.Request.Context(), productID, c.Param("platform")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) listInventory(c *gin.Context) {
	var filter catalog.InventoryFilter
	var ok bool
	if filter.ProductID, ok = queryUint(c, "product_id"); !ok {
		return
	}
	filter.Platform = c.Query("platform")
	if filter.MinQuantity, ok = queryInt(c, "min_quantity"); !ok {
		return
	}
	if filter.MaxQuantity, ok = queryInt(c, "max_quantity"); !ok {
		return
	}
	if filter.Page, ok = queryPage(c); !ok {
		return
	}
	rows, err := h.svc.ListInventory(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Sales

func (h *handler) listSales(c *gin.Context) {
	var filter catalog.SaleFilter
	var ok bool
	if filter.ProductID, ok = queryUint(c, "product_id"); !ok {
		return
	}
	filter.Platform = c.Query("platform")
	if raw := c.Query("sold_on"); raw != "" {
		day, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sold_on must be YYYY-MM-DD"})
			return
		}
		filter.SoldOn = day
	}
	if filter.Page, ok = queryPage(c); !ok {
		return
	}
	sales, err := h.svc.ListSales(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *handler) getSale(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sale, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

type recordSaleRequest struct {
	ProductID uint            `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity"`
	Platform  string          `json:"platform"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	SoldAt    time.Time       `json:"sold_at"`
}

func (h *handler) recordSale(c *gin.Context) {
	var req recordSaleRequest
	if !bindJSON(c, &req) {
		return
	}
	sale, err := h.svc.RecordSale(c.Request.Context(), catalog.SaleInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Platform:  req.Platform,
		UnitPrice: req.UnitPrice,
		SoldAt:    req.SoldAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func (h *handler) updateSale(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var in catalog.SaleUpdate
	if !bindJSON(c, &in) {
		return
	}
	sale, err := h.svc.UpdateSale(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *handler) deleteSale(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteSale(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondError maps a service error onto a status code. Unexpected errors are logged and
// answered without detail.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case catalog.IsNotFound(err):
		status = http.StatusNotFound
	case catalog.IsDuplicateName(err), errors.Is(err, store.ErrDuplicate):
		status = http.StatusConflict
	case catalog.IsInvalidField(err), catalog.IsInvalidQuantity(err):
		status = http.StatusUnprocessableEntity
	case store.IsConflict(err):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be a positive integer", param)})
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, key string) (*uint, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be a non-negative integer", key)})
		return nil, false
	}
	u := uint(v)
	return &u, true
}

func queryInt(c *gin.Context, key string) (*int, bool) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s must be an integer", key)})
		return nil, false
	}
	return &v, true
}

// queryPage reads offset and limit. A missing or zero limit means a full page; range checks are
// left to the service so that they surface as validation errors.
func queryPage(c *gin.Context) (catalog.Page, bool) {
	page := catalog.Page{Limit: defaultPageSize}
	var err error
	if raw := c.Query("offset"); raw != "" {
		if page.Offset, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be an integer"})
			return page, false
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if page.Limit, err = strconv.Atoi(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return page, false
		}
		if page.Limit == 0 {
			page.Limit = defaultPageSize
		}
	}
	return page, true
}
