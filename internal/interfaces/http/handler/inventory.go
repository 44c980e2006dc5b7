package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinventory "github.com/skol/backend/internal/application/inventory"
	"github.com/skol/backend/internal/interfaces/http/dto"
)

// InventoryHandler handles the fractionation stock catalog endpoints
type InventoryHandler struct {
	BaseHandler
	service *appinventory.Service
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(service *appinventory.Service) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// RegisterRoutes registers inventory routes
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	items := rg.Group("/inventory/items")
	{
		items.POST("", h.CreateItem)
		items.GET("", h.List)
		items.GET("/:id", h.Get)
		items.GET("/barcode/:barcode", h.GetByBarcode)
		items.POST("/:id/lots", h.AddLot)
		items.PUT("/:id/threshold", h.SetThreshold)
	}
}

func (h *InventoryHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid inventory item ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid inventory item ID")
		return uuid.Nil, false
	}
	return id, true
}

// CreateItem registers a new stock-keeping item
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req appinventory.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.CreateItem(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// List retrieves inventory items with optional filters
func (h *InventoryHandler) List(c *gin.Context) {
	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BindingError(c, err)
		return
	}
	listReq.Normalize()

	filter := appinventory.ListFilter{
		Page:           listReq.Page,
		PageSize:       listReq.PageSize,
		Search:         c.Query("search"),
		Barcode:        c.Query("barcode"),
		HasStock:       c.Query("has_stock") == "true",
		BelowThreshold: c.Query("below_threshold") == "true",
	}

	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, items, total, filter.Page, filter.PageSize)
}

// Get retrieves one inventory item with its lots
func (h *InventoryHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetByBarcode retrieves one inventory item by its barcode
func (h *InventoryHandler) GetByBarcode(c *gin.Context) {
	barcode := c.Param("barcode")
	if barcode == "" {
		h.BadRequest(c, "Barcode is required")
		return
	}

	resp, err := h.service.GetByBarcode(c.Request.Context(), barcode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AddLot registers a new lot and restocks the item
func (h *InventoryHandler) AddLot(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	var req appinventory.AddLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.AddLot(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SetThreshold configures the low stock alert threshold
func (h *InventoryHandler) SetThreshold(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}

	var req appinventory.SetThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	resp, err := h.service.SetLowStockThreshold(c.Request.Context(), id, req.Threshold)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
