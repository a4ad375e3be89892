package handler

import (
	"fmt"
	"net/http"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/middleware"
	"farmacia/internal/service"

	"github.com/gin-gonic/gin"
)

type DispensacionesHandler struct{ svc service.DispensacionService }

func NewDispensacionesHandler(svc service.DispensacionService) *DispensacionesHandler {
	return &DispensacionesHandler{svc: svc}
}

// Dispensar godoc
// @Summary Dispensar medicamento desde un lote
// @Description Descuenta stock del lote y registra la dispensación en una sola transacción.
// @Description Si dispensado_por se omite se usa el usuario del token.
// @Tags dispensaciones
// @Accept json
// @Produce json
// @Param body body dto.DispensarRequest true "Dispensación"
// @Success 201 {object} dto.DispensarResponse
// @Failure 400 {object} apierror.ValidationError
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError "Stock insuficiente o estado inválido"
// @Router /v1/dispensaciones [post]
func (h *DispensacionesHandler) Dispensar(c *gin.Context) {
	var req dto.DispensarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierror.Validation("JSON invalido: "+err.Error(), nil))
		return
	}
	if req.DispensadoPor == "" {
		if claims := middleware.GetClaims(c); claims != nil {
			req.DispensadoPor = claims.UserID
		}
	}
	if !validateRequest(c, &req) {
		return
	}

	resp, err := h.svc.Dispensar(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *DispensacionesHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPorID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Comprobante streams the PDF receipt of a dispensation.
func (h *DispensacionesHandler) Comprobante(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	pdf, err := h.svc.Comprobante(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	attachment(c, fmt.Sprintf("dispensacion-%s.pdf", id), "application/pdf", pdf)
}
