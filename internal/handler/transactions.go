package handler

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/apierror"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/service"

	"github.com/gin-gonic/gin"
)

type TransactionsHandler struct{ svc service.SaleService }

func NewTransactionsHandler(svc service.SaleService) *TransactionsHandler {
	return &TransactionsHandler{svc: svc}
}

// Checkout godoc
// @Summary      Retail checkout
// @Description  Debits every line atomically, allocates an invoice number and records the sale. A receipt PDF is rendered asynchronously.
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CheckoutRequest true "Cart"
// @Success      201  {object} dto.SaleResponse
// @Failure      400  {object} apierror.StockError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/transactions [post]
func (h *TransactionsHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Checkout(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List sales
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        cashier_id     query string false "Cashier ID"
// @Param        payment_method query string false "Cash | Transfer | QRIS | Card"
// @Param        start_date     query string false "YYYY-MM-DD"
// @Param        end_date       query string false "YYYY-MM-DD"
// @Param        page           query int    false "Page (default 1)"
// @Param        limit          query int    false "Page size (default 50)"
// @Success      200  {object} dto.SaleListResponse
// @Router       /v1/transactions [get]
func (h *TransactionsHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
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

func (h *TransactionsHandler) GetByID(c *gin.Context) {
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

func (h *TransactionsHandler) GetByInvoice(c *gin.Context) {
	resp, err := h.svc.GetByInvoice(c.Request.Context(), c.Param("invoice_no"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Receipt streams the rendered PDF receipt.
func (h *TransactionsHandler) Receipt(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	path, err := h.svc.ReceiptPath(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}

// Delete godoc
// @Summary      Delete a sale
// @Description  Credits each line back to stock (best effort) unless restock=false, then removes the sale.
// @Tags         transactions
// @Produce      json
// @Security     BearerAuth
// @Param        id      path  string true  "Sale ID"
// @Param        restock query bool   false "Credit stock back (default true)"
// @Success      200  {object} dto.DeleteSaleResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/transactions/{id} [delete]
func (h *TransactionsHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	restock, err := strconv.ParseBool(c.DefaultQuery("restock", "true"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("restock must be true or false"))
		return
	}
	resp, err := h.svc.Delete(c.Request.Context(), actor(c), id, restock)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
