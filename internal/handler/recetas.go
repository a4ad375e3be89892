package handler

import (
	"net/http"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/middleware"
	"farmacia/internal/model"
	"farmacia/internal/service"

	"github.com/gin-gonic/gin"
)

type RecetasHandler struct {
	svc            service.RecetaService
	consulta       service.ConsultaService
	dispensaciones service.DispensacionService
}

func NewRecetasHandler(svc service.RecetaService, consulta service.ConsultaService, dispensaciones service.DispensacionService) *RecetasHandler {
	return &RecetasHandler{svc: svc, consulta: consulta, dispensaciones: dispensaciones}
}

// Crear godoc
// @Summary Crear receta con sus detalles
// @Tags recetas
// @Accept json
// @Produce json
// @Param body body dto.CrearRecetaRequest true "Receta"
// @Success 201 {object} dto.RecetaResponse
// @Failure 400 {object} apierror.ValidationError
// @Failure 409 {object} apierror.APIError
// @Router /v1/recetas [post]
func (h *RecetasHandler) Crear(c *gin.Context) {
	var req dto.CrearRecetaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecetasHandler) Listar(c *gin.Context) {
	var filter dto.RecetaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary Receta con paciente, médico y detalles
// @Tags recetas
// @Produce json
// @Param id path string true "Receta ID"
// @Success 200 {object} dto.RecetaDetalleResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/recetas/{id} [get]
func (h *RecetasHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.consulta.RecetaDetalle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecetasHandler) Actualizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarRecetaRequest
	if !bindStrict(c, &req) {
		return
	}
	if req.Estado != nil && !puedeValidar(c, *req.Estado) {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecetasHandler) ReemplazarDetalles(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ReemplazarDetallesRequest
	if !bindStrict(c, &req) {
		return
	}
	resp, err := h.svc.ReemplazarDetalles(c.Request.Context(), id, req.Detalles)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecetasHandler) CambiarEstado(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CambiarEstadoRecetaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if !puedeValidar(c, req.Estado) {
		return
	}
	resp, err := h.svc.CambiarEstado(c.Request.Context(), id, req.Estado)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecetasHandler) Validar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Validar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecetasHandler) Anular(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Anular(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecetasHandler) ListarDispensaciones(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.dispensaciones.ListarPorReceta(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// puedeValidar keeps Validada reserved to the pharmacy roles on every route
// that accepts a target estado.
func puedeValidar(c *gin.Context, estado string) bool {
	if estado != model.RecetaValidada {
		return true
	}
	if claims := middleware.GetClaims(c); claims != nil &&
		(claims.Rol == model.RolAdministrador || claims.Rol == model.RolFarmaceutico) {
		return true
	}
	c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
	return false
}
