package service

import (
	"context"
	"errors"
	"fmt"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/model"
	"farmacia/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProductoService defines the business logic contract for products.
// The product projection itself lives in ConsultaService.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
}

type productoService struct {
	repo repository.ProductoRepository
	rdb  *redis.Client
}

func NewProductoService(repo repository.ProductoRepository, rdb *redis.Client) ProductoService {
	return &productoService{repo: repo, rdb: rdb}
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	laboratorioID, err := s.resolverLaboratorio(ctx, req.LaboratorioID)
	if err != nil {
		return nil, err
	}

	p := &model.Producto{
		LaboratorioID:      laboratorioID,
		Codigo:             req.Codigo,
		NombreComercial:    req.NombreComercial,
		NombreGenerico:     req.NombreGenerico,
		PrincipioActivo:    req.PrincipioActivo,
		Concentracion:      req.Concentracion,
		FormaFarmaceutica:  req.FormaFarmaceutica,
		ViaAdministracion:  req.ViaAdministracion,
		Presentacion:       req.Presentacion,
		Contraindicaciones: req.Contraindicaciones,
		EfectosSecundarios: req.EfectosSecundarios,
		RequiereFormula:    req.RequiereFormula,
		Activo:             true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict(fmt.Sprintf("ya existe un producto con código %s", req.Codigo))
		}
		return nil, clasificar(err, "")
	}
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) Listar(ctx context.Context, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	productos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, clasificar(err, "")
	}
	data := make([]dto.ProductoResponse, len(productos))
	for i := range productos {
		data[i] = productoToResponse(&productos[i])
	}
	return &dto.ProductoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Actualizar writes only the fields present in the request and drops the
// cached projection.
func (s *productoService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, clasificar(err, "producto no encontrado")
	}

	campos := map[string]interface{}{}
	if req.NombreComercial != nil {
		campos["nombre_comercial"] = *req.NombreComercial
	}
	if req.NombreGenerico != nil {
		campos["nombre_generico"] = *req.NombreGenerico
	}
	if req.LaboratorioID != nil {
		laboratorioID, err := s.resolverLaboratorio(ctx, req.LaboratorioID)
		if err != nil {
			return nil, err
		}
		if laboratorioID == nil {
			campos["laboratorio_id"] = nil
		} else {
			campos["laboratorio_id"] = *laboratorioID
		}
	}
	opcionales := map[string]*string{
		"principio_activo":    req.PrincipioActivo,
		"concentracion":       req.Concentracion,
		"forma_farmaceutica":  req.FormaFarmaceutica,
		"via_administracion":  req.ViaAdministracion,
		"presentacion":        req.Presentacion,
		"contraindicaciones":  req.Contraindicaciones,
		"efectos_secundarios": req.EfectosSecundarios,
	}
	for columna, valor := range opcionales {
		if valor != nil {
			campos[columna] = *valor
		}
	}
	if req.RequiereFormula != nil {
		campos["requiere_formula"] = *req.RequiereFormula
	}

	if len(campos) > 0 {
		if err := s.repo.UpdateCampos(ctx, id, campos); err != nil {
			return nil, clasificar(err, "")
		}
		s.invalidarCache(ctx, id)
	}

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, clasificar(err, "producto no encontrado")
	}
	resp := productoToResponse(p)
	return &resp, nil
}

func (s *productoService) Desactivar(ctx context.Context, id uuid.UUID) error {
	afectadas, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return clasificar(err, "")
	}
	if afectadas == 0 {
		return apierror.NotFound("producto no encontrado")
	}
	s.invalidarCache(ctx, id)
	return nil
}

func (s *productoService) invalidarCache(ctx context.Context, id uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, claveProducto(id)).Err(); err != nil {
		log.Warn().Err(err).Str("producto_id", id.String()).Msg("no se pudo invalidar el cache del producto")
	}
}

func (s *productoService) resolverLaboratorio(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apierror.Field("laboratorio_id", "identificador inválido")
	}
	ok, err := s.repo.ExistsLaboratorio(ctx, id)
	if err != nil {
		return nil, clasificar(err, "")
	}
	if !ok {
		return nil, apierror.Field("laboratorio_id", "el laboratorio no existe")
	}
	return &id, nil
}

func productoToResponse(p *model.Producto) dto.ProductoResponse {
	resp := dto.ProductoResponse{
		ID:                 p.ID.String(),
		Codigo:             p.Codigo,
		NombreComercial:    p.NombreComercial,
		NombreGenerico:     p.NombreGenerico,
		PrincipioActivo:    p.PrincipioActivo,
		Concentracion:      p.Concentracion,
		FormaFarmaceutica:  p.FormaFarmaceutica,
		ViaAdministracion:  p.ViaAdministracion,
		Presentacion:       p.Presentacion,
		Contraindicaciones: p.Contraindicaciones,
		EfectosSecundarios: p.EfectosSecundarios,
		RequiereFormula:    p.RequiereFormula,
		Activo:             p.Activo,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.LaboratorioID != nil {
		resp.LaboratorioID = strPtr(p.LaboratorioID.String())
	}
	return resp
}
