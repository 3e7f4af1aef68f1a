package handler

import (
	"net/http"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/infra"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/service"

	"github.com/gin-gonic/gin"
)

// PriceCheckHandler serves the public, unauthenticated price lookup.
type PriceCheckHandler struct {
	svc   service.InventoryService
	cache *infra.PriceCache
}

func NewPriceCheckHandler(svc service.InventoryService, cache *infra.PriceCache) *PriceCheckHandler {
	return &PriceCheckHandler{svc: svc, cache: cache}
}

// GetPrice godoc
// @Summary Price check by SKU (no authentication)
// @Tags price
// @Produce json
// @Param sku path string true "Item SKU"
// @Success 200 {object} dto.PriceCheckResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/price/{sku} [get]
func (h *PriceCheckHandler) GetPrice(c *gin.Context) {
	sku := c.Param("sku")
	ctx := c.Request.Context()

	var cached dto.PriceCheckResponse
	if h.cache.Get(ctx, sku, &cached) {
		c.Header("X-Cache", "HIT")
		c.JSON(http.StatusOK, cached)
		return
	}

	resp, err := h.svc.PriceCheck(ctx, sku)
	if err != nil {
		respondError(c, err)
		return
	}
	h.cache.Set(ctx, sku, resp)
	c.Header("X-Cache", "MISS")
	c.JSON(http.StatusOK, resp)
}
