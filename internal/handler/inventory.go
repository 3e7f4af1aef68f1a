package handler

import (
	"net/http"
	"strconv"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/service"

	"github.com/gin-gonic/gin"
)

type InventoryHandler struct {
	svc    service.InventoryService
	ledger service.LedgerService
}

func NewInventoryHandler(svc service.InventoryService, ledger service.LedgerService) *InventoryHandler {
	return &InventoryHandler{svc: svc, ledger: ledger}
}

// Create godoc
// @Summary      Create inventory item
// @Description  Initial stock is recorded as a restock movement.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateItemRequest true "Item"
// @Success      201  {object} dto.ItemResponse
// @Failure      409  {object} apierror.APIError
// @Router       /v1/inventory [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actor(c).ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List inventory items
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        category  query string false "Category"
// @Param        search    query string false "Name or SKU substring"
// @Param        low_stock query bool   false "Only items at or below their alert level"
// @Param        active    query string false "true | false | all"
// @Param        page      query int    false "Page (default 1)"
// @Param        limit     query int    false "Page size (default 20)"
// @Success      200  {object} dto.ItemListResponse
// @Router       /v1/inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var filter dto.ItemFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) LowStock(c *gin.Context) {
	resp, err := h.svc.LowStockAlerts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) GetByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) GetBySKU(c *gin.Context) {
	resp, err := h.svc.GetBySKU(c.Request.Context(), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), actor(c).ID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AdjustStock godoc
// @Summary      Manual stock adjustment
// @Description  add credits the ledger; deduct is a conditional debit and fails when stock is short.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                 true "Item ID"
// @Param        body body dto.AdjustStockRequest true "Adjustment"
// @Success      200  {object} dto.StockResponse
// @Failure      400  {object} apierror.StockError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/inventory/{id}/stock [patch]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), actor(c).ID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Deactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InventoryHandler) Reactivate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Reactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item reactivated"})
}

func (h *InventoryHandler) PriceHistory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	resp, err := h.svc.PriceHistory(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.ledger.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
