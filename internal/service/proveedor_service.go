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
	"gorm.io/gorm"
)

type ProveedorService interface {
	Crear(ctx context.Context, req dto.CrearProveedorRequest) (*dto.ProveedorResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProveedorResponse, error)
	Listar(ctx context.Context, incluirInactivos bool) ([]dto.ProveedorResponse, error)
	Desactivar(ctx context.Context, id uuid.UUID) error
}

type proveedorService struct {
	repo repository.ProveedorRepository
}

func NewProveedorService(repo repository.ProveedorRepository) ProveedorService {
	return &proveedorService{repo: repo}
}

func (s *proveedorService) Crear(ctx context.Context, req dto.CrearProveedorRequest) (*dto.ProveedorResponse, error) {
	p := &model.Proveedor{
		Nombre:         req.Nombre,
		ContactoNombre: req.ContactoNombre,
		Telefono:       req.Telefono,
		Email:          req.Email,
		Direccion:      req.Direccion,
		Activo:         true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict(fmt.Sprintf("ya existe un proveedor llamado %s", req.Nombre))
		}
		return nil, clasificar(err, "")
	}
	resp := proveedorToResponse(p)
	return &resp, nil
}

func (s *proveedorService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProveedorResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, clasificar(err, "proveedor no encontrado")
	}
	resp := proveedorToResponse(p)
	return &resp, nil
}

func (s *proveedorService) Listar(ctx context.Context, incluirInactivos bool) ([]dto.ProveedorResponse, error) {
	proveedores, err := s.repo.List(ctx, incluirInactivos)
	if err != nil {
		return nil, clasificar(err, "")
	}
	resp := make([]dto.ProveedorResponse, len(proveedores))
	for i := range proveedores {
		resp[i] = proveedorToResponse(&proveedores[i])
	}
	return resp, nil
}

func (s *proveedorService) Desactivar(ctx context.Context, id uuid.UUID) error {
	afectadas, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return clasificar(err, "")
	}
	if afectadas == 0 {
		return apierror.NotFound("proveedor no encontrado")
	}
	return nil
}

func proveedorToResponse(p *model.Proveedor) dto.ProveedorResponse {
	return dto.ProveedorResponse{
		ID:             p.ID.String(),
		Nombre:         p.Nombre,
		ContactoNombre: p.ContactoNombre,
		Telefono:       p.Telefono,
		Email:          p.Email,
		Direccion:      p.Direccion,
		Activo:         p.Activo,
		CreatedAt:      p.CreatedAt,
	}
}
