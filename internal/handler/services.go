package handler

import (
	"net/http"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/dto"
	"github.com/FarrelGhozy/Kasir-UTC-02/internal/service"

	"github.com/gin-gonic/gin"
)

// ServicesHandler exposes repair tickets under /v1/services.
type ServicesHandler struct{ svc service.TicketService }

func NewServicesHandler(svc service.TicketService) *ServicesHandler {
	return &ServicesHandler{svc: svc}
}

// Create godoc
// @Summary      Open a service ticket
// @Tags         services
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateTicketRequest true "Ticket"
// @Success      201  {object} dto.TicketResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/services [post]
func (h *ServicesHandler) Create(c *gin.Context) {
	var req dto.CreateTicketRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ServicesHandler) List(c *gin.Context) {
	var filter dto.TicketFilter
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

func (h *ServicesHandler) GetByID(c *gin.Context) {
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

func (h *ServicesHandler) GetByNumber(c *gin.Context) {
	resp, err := h.svc.GetByNumber(c.Request.Context(), c.Param("ticket_number"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateStatus godoc
// @Summary      Move a ticket through its lifecycle
// @Tags         services
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                  true "Ticket ID"
// @Param        body body dto.UpdateStatusRequest true "New status"
// @Success      200  {object} dto.TicketResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/services/{id}/status [patch]
func (h *ServicesHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AddPart godoc
// @Summary      Attach a part to a ticket
// @Description  Debits stock and records the part at the current selling price.
// @Tags         services
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string             true "Ticket ID"
// @Param        body body dto.AddPartRequest true "Part"
// @Success      200  {object} dto.TicketResponse
// @Failure      400  {object} apierror.StockError
// @Failure      404  {object} apierror.APIError
// @Router       /v1/services/{id}/parts [post]
func (h *ServicesHandler) AddPart(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddPartRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddPart(c.Request.Context(), actor(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ServicesHandler) RemovePart(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	partID, ok := pathID(c, "partId")
	if !ok {
		return
	}
	resp, err := h.svc.RemovePart(c.Request.Context(), actor(c), id, partID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ServicesHandler) UpdateServiceFee(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateServiceFeeRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateServiceFee(c.Request.Context(), id, req.ServiceFee)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ServicesHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ServicesHandler) Workload(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Workload(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
