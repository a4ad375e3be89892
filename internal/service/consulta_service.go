package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"farmacia/internal/dto"
	"farmacia/internal/model"
	"farmacia/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ConsultaService builds the joined read models. It never writes.
type ConsultaService interface {
	RecetaDetalle(ctx context.Context, id uuid.UUID) (*dto.RecetaDetalleResponse, error)
	LoteDetalle(ctx context.Context, id uuid.UUID) (*dto.LoteDetalleResponse, error)
	ProductoDetalle(ctx context.Context, id uuid.UUID) (*dto.ProductoDetalleResponse, error)
}

type consultaService struct {
	recetaRepo   repository.RecetaRepository
	loteRepo     repository.LoteRepository
	productoRepo repository.ProductoRepository
	rdb          *redis.Client
	ttl          time.Duration
}

// NewConsultaService wires the projections. A nil rdb disables the product cache.
func NewConsultaService(
	recetaRepo repository.RecetaRepository,
	loteRepo repository.LoteRepository,
	productoRepo repository.ProductoRepository,
	rdb *redis.Client,
	ttl time.Duration,
) ConsultaService {
	return &consultaService{
		recetaRepo:   recetaRepo,
		loteRepo:     loteRepo,
		productoRepo: productoRepo,
		rdb:          rdb,
		ttl:          ttl,
	}
}

func claveProducto(id uuid.UUID) string { return "farmacia:producto:" + id.String() }

func (s *consultaService) RecetaDetalle(ctx context.Context, id uuid.UUID) (*dto.RecetaDetalleResponse, error) {
	r, err := s.recetaRepo.FindDetalle(ctx, id)
	if err != nil {
		return nil, clasificar(err, "receta no encontrada")
	}

	resp := &dto.RecetaDetalleResponse{RecetaResponse: recetaToResponse(r)}
	if r.Paciente != nil {
		p := &dto.PacienteResumen{
			ID:         r.Paciente.ID.String(),
			TipoSangre: r.Paciente.TipoSangre,
			Alergias:   r.Paciente.Alergias,
		}
		if u := r.Paciente.Usuario; u != nil {
			p.Nombre = u.NombreCompleto()
			p.TipoDocumento = u.TipoDocumento
			p.NumeroDocumento = u.NumeroDocumento
		}
		resp.Paciente = p
	}
	if r.Medico != nil {
		m := &dto.MedicoResumen{
			ID:                    r.Medico.ID.String(),
			EspecialidadPrincipal: r.Medico.EspecialidadPrincipal,
			RegistroMedico:        r.Medico.RegistroMedico,
		}
		if r.Medico.Usuario != nil {
			m.Nombre = strPtr(r.Medico.Usuario.NombreCompleto())
		}
		resp.Medico = m
	}
	return resp, nil
}

// LoteDetalle joins the batch with its product and, when set, its supplier.
func (s *consultaService) LoteDetalle(ctx context.Context, id uuid.UUID) (*dto.LoteDetalleResponse, error) {
	l, err := s.loteRepo.FindDetalle(ctx, id)
	if err != nil {
		return nil, clasificar(err, "lote no encontrado")
	}

	resp := &dto.LoteDetalleResponse{LoteResponse: loteToResponse(l)}
	if l.Producto != nil {
		p := productoToResumen(l.Producto)
		resp.Producto = &p
	}
	if l.Proveedor != nil {
		resp.Proveedor = &dto.ProveedorResumen{
			ID:       l.Proveedor.ID.String(),
			Nombre:   l.Proveedor.Nombre,
			Telefono: l.Proveedor.Telefono,
			Email:    l.Proveedor.Email,
		}
	}
	return resp, nil
}

// ProductoDetalle is cache-aside on Redis. Cache failures fall back to the
// database.
func (s *consultaService) ProductoDetalle(ctx context.Context, id uuid.UUID) (*dto.ProductoDetalleResponse, error) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, claveProducto(id)).Bytes()
		switch {
		case err == nil:
			var cached dto.ProductoDetalleResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		case !errors.Is(err, redis.Nil):
			log.Warn().Err(err).Str("producto_id", id.String()).Msg("cache de producto no disponible")
		}
	}

	p, err := s.productoRepo.FindDetalle(ctx, id)
	if err != nil {
		return nil, clasificar(err, "producto no encontrado")
	}
	resp := &dto.ProductoDetalleResponse{ProductoResponse: productoToResponse(p)}
	if p.Laboratorio != nil {
		resp.Laboratorio = &dto.LaboratorioResumen{
			ID:       p.Laboratorio.ID.String(),
			Nombre:   p.Laboratorio.Nombre,
			Telefono: p.Laboratorio.Telefono,
			Email:    p.Laboratorio.Email,
		}
	}

	if s.rdb != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.rdb.Set(ctx, claveProducto(id), data, s.ttl).Err(); err != nil {
				log.Warn().Err(err).Str("producto_id", id.String()).Msg("no se pudo cachear el producto")
			}
		}
	}
	return resp, nil
}

func productoToResumen(p *model.Producto) dto.ProductoResumen {
	return dto.ProductoResumen{
		ID:                p.ID.String(),
		Codigo:            p.Codigo,
		NombreComercial:   p.NombreComercial,
		NombreGenerico:    p.NombreGenerico,
		Concentracion:     p.Concentracion,
		FormaFarmaceutica: p.FormaFarmaceutica,
		RequiereFormula:   p.RequiereFormula,
	}
}
