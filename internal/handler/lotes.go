package handler

import (
	"net/http"

	"farmacia/internal/dto"
	"farmacia/internal/service"

	"github.com/gin-gonic/gin"
)

type LotesHandler struct {
	svc      service.InventarioService
	consulta service.ConsultaService
}

func NewLotesHandler(svc service.InventarioService, consulta service.ConsultaService) *LotesHandler {
	return &LotesHandler{svc: svc, consulta: consulta}
}

// Listar godoc
// @Summary Listar lotes
// @Description Con producto_id devuelve los lotes dispensables en orden FEFO.
// @Description Con dias_vencimiento devuelve los lotes que vencen en esa ventana.
// @Tags lotes
// @Produce json
// @Param producto_id query string false "Producto"
// @Param dias_vencimiento query int false "Ventana de vencimiento en días"
// @Param buscar query string false "Número de lote o nombre de producto"
// @Param estado query string false "Activo | Agotado | Inactivo"
// @Success 200 {object} dto.LoteListResponse
// @Router /v1/lotes [get]
func (h *LotesHandler) Listar(c *gin.Context) {
	var filter dto.LoteFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarLotes(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LotesHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.consulta.LoteDetalle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LotesHandler) Recibir(c *gin.Context) {
	var req dto.RecibirLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecibirLote(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *LotesHandler) Actualizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarLoteRequest
	if !bindStrict(c, &req) {
		return
	}
	resp, err := h.svc.ActualizarLote(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LotesHandler) Desactivar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DesactivarLote(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Ajuste credits (entrada) or debits (salida) the batch outside a dispensation.
func (h *LotesHandler) Ajuste(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AjustarStock(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LotesHandler) Movimientos(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
