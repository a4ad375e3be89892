package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/metrics"
	"farmacia/internal/model"
	"farmacia/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Movimiento describes why a debit or credit happens. It is persisted in
// movimientos_lote next to the quantity change.
type Movimiento struct {
	Tipo         string
	Motivo       string
	ReferenciaID *uuid.UUID
}

// InventarioService is the inventory ledger: the only component allowed to
// change a batch's available quantity and its derived estado.
type InventarioService interface {
	Debitar(ctx context.Context, loteID uuid.UUID, cantidad int, mov Movimiento) (*dto.LoteResponse, error)
	Acreditar(ctx context.Context, loteID uuid.UUID, cantidad int, mov Movimiento) (*dto.LoteResponse, error)
	// DebitarTx and AcreditarTx run inside a transaction owned by the caller.
	DebitarTx(tx *gorm.DB, loteID uuid.UUID, cantidad int, mov Movimiento) (*model.Lote, error)
	AcreditarTx(tx *gorm.DB, loteID uuid.UUID, cantidad int, mov Movimiento) (*model.Lote, error)

	LotesDispensables(ctx context.Context, productoID uuid.UUID) ([]dto.LoteResponse, error)
	LotesPorVencer(ctx context.Context, dias int) ([]dto.LoteResponse, error)

	RecibirLote(ctx context.Context, req dto.RecibirLoteRequest) (*dto.LoteResponse, error)
	ActualizarLote(ctx context.Context, id uuid.UUID, req dto.ActualizarLoteRequest) (*dto.LoteResponse, error)
	DesactivarLote(ctx context.Context, id uuid.UUID) error
	ListarLotes(ctx context.Context, filter dto.LoteFilter) (*dto.LoteListResponse, error)
	AjustarStock(ctx context.Context, id uuid.UUID, req dto.AjusteStockRequest) (*dto.LoteResponse, error)
	ListarMovimientos(ctx context.Context, loteID uuid.UUID) ([]dto.MovimientoLoteResponse, error)
}

type inventarioService struct {
	repo          repository.LoteRepository
	movimientos   repository.MovimientoLoteRepository
	productoRepo  repository.ProductoRepository
	proveedorRepo repository.ProveedorRepository
	metrics       *metrics.Metrics
	now           func() time.Time
}

func NewInventarioService(
	repo repository.LoteRepository,
	movimientos repository.MovimientoLoteRepository,
	productoRepo repository.ProductoRepository,
	proveedorRepo repository.ProveedorRepository,
	m *metrics.Metrics,
) InventarioService {
	return &inventarioService{
		repo:          repo,
		movimientos:   movimientos,
		productoRepo:  productoRepo,
		proveedorRepo: proveedorRepo,
		metrics:       m,
		now:           time.Now,
	}
}

// ── Debit / credit ────────────────────────────────────────────────────────────

func (s *inventarioService) Debitar(ctx context.Context, loteID uuid.UUID, cantidad int, mov Movimiento) (*dto.LoteResponse, error) {
	var lote *model.Lote
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		lote, err = s.DebitarTx(tx, loteID, cantidad, mov)
		return err
	})
	if err != nil {
		return nil, clasificar(err, "lote no encontrado")
	}

	s.metrics.IncMovimiento(mov.Tipo)
	if lote.Estado == model.LoteAgotado {
		s.metrics.IncLoteAgotado()
		log.Info().Str("lote_id", lote.ID.String()).Str("numero_lote", lote.NumeroLote).Msg("lote agotado")
	}
	resp := loteToResponse(lote)
	return &resp, nil
}

func (s *inventarioService) Acreditar(ctx context.Context, loteID uuid.UUID, cantidad int, mov Movimiento) (*dto.LoteResponse, error) {
	var lote *model.Lote
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		lote, err = s.AcreditarTx(tx, loteID, cantidad, mov)
		return err
	})
	if err != nil {
		return nil, clasificar(err, "lote no encontrado")
	}

	s.metrics.IncMovimiento(mov.Tipo)
	resp := loteToResponse(lote)
	return &resp, nil
}

// DebitarTx applies the debit as one conditional UPDATE. When no row is
// affected the batch is re-read to report the precise reason.
func (s *inventarioService) DebitarTx(tx *gorm.DB, loteID uuid.UUID, cantidad int, mov Movimiento) (*model.Lote, error) {
	if cantidad <= 0 {
		return nil, apierror.Field("cantidad", "la cantidad debe ser mayor a cero")
	}

	afectadas, err := s.repo.DebitarTx(tx, loteID, cantidad)
	if err != nil {
		return nil, apierror.Internal("error al debitar el lote", err)
	}

	lote, err := s.repo.FindByIDTx(tx, loteID)
	if err != nil {
		return nil, clasificar(err, "lote no encontrado")
	}

	if afectadas == 0 {
		if lote.Estado == model.LoteInactivo {
			return nil, apierror.InvalidState(fmt.Sprintf("el lote %s está inactivo", lote.NumeroLote))
		}
		return nil, apierror.InsufficientStock(fmt.Sprintf(
			"stock insuficiente en el lote %s: disponible %d, solicitado %d",
			lote.NumeroLote, lote.CantidadDisponible, cantidad))
	}

	if err := s.registrarMovimientoTx(tx, lote, -cantidad, mov); err != nil {
		return nil, err
	}
	return lote, nil
}

// AcreditarTx increments the available quantity without ever crossing the
// received quantity.
func (s *inventarioService) AcreditarTx(tx *gorm.DB, loteID uuid.UUID, cantidad int, mov Movimiento) (*model.Lote, error) {
	if cantidad <= 0 {
		return nil, apierror.Field("cantidad", "la cantidad debe ser mayor a cero")
	}

	afectadas, err := s.repo.AcreditarTx(tx, loteID, cantidad)
	if err != nil {
		return nil, apierror.Internal("error al acreditar el lote", err)
	}

	lote, err := s.repo.FindByIDTx(tx, loteID)
	if err != nil {
		return nil, clasificar(err, "lote no encontrado")
	}

	if afectadas == 0 {
		return nil, apierror.OverCapacity(fmt.Sprintf(
			"el lote %s no admite %d unidades más: disponible %d de %d recibidas",
			lote.NumeroLote, cantidad, lote.CantidadDisponible, lote.CantidadRecibida))
	}

	if err := s.registrarMovimientoTx(tx, lote, cantidad, mov); err != nil {
		return nil, err
	}
	return lote, nil
}

// registrarMovimientoTx journals a change already applied to lote.
// delta is signed: negative for debits.
func (s *inventarioService) registrarMovimientoTx(tx *gorm.DB, lote *model.Lote, delta int, mov Movimiento) error {
	m := &model.MovimientoLote{
		LoteID:        lote.ID,
		Tipo:          mov.Tipo,
		Cantidad:      delta,
		StockAnterior: lote.CantidadDisponible - delta,
		StockNuevo:    lote.CantidadDisponible,
		Motivo:        mov.Motivo,
		ReferenciaID:  mov.ReferenciaID,
	}
	if err := s.movimientos.CreateTx(tx, m); err != nil {
		return apierror.Internal("error al registrar el movimiento de lote", err)
	}
	return nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

// LotesDispensables lists the batches that can be dispensed for a product,
// soonest expiry first (FEFO).
func (s *inventarioService) LotesDispensables(ctx context.Context, productoID uuid.UUID) ([]dto.LoteResponse, error) {
	return s.dispensables(ctx, productoID, nil)
}

func (s *inventarioService) dispensables(ctx context.Context, productoID uuid.UUID, vence *repository.RangoFechas) ([]dto.LoteResponse, error) {
	lotes, err := s.repo.FindDispensables(ctx, productoID, vence)
	if err != nil {
		return nil, clasificar(err, "")
	}
	return lotesToResponse(lotes), nil
}

// LotesPorVencer lists Activo batches expiring within [hoy, hoy+dias].
func (s *inventarioService) LotesPorVencer(ctx context.Context, dias int) ([]dto.LoteResponse, error) {
	if dias < 0 {
		return nil, apierror.Field("dias_vencimiento", "debe ser mayor o igual a cero")
	}
	r := s.ventanaVencimiento(dias)
	lotes, err := s.repo.FindPorVencer(ctx, r.Desde, r.Hasta)
	if err != nil {
		return nil, clasificar(err, "")
	}
	return lotesToResponse(lotes), nil
}

func (s *inventarioService) ventanaVencimiento(dias int) repository.RangoFechas {
	desde := hoy(s.now())
	return repository.RangoFechas{Desde: desde, Hasta: desde.AddDate(0, 0, dias)}
}

// ListarLotes serves GET /v1/lotes. producto_id alone is the FEFO listing,
// dias_vencimiento alone the expiring listing; both together narrow the FEFO
// listing to batches expiring within [hoy, hoy+dias].
func (s *inventarioService) ListarLotes(ctx context.Context, filter dto.LoteFilter) (*dto.LoteListResponse, error) {
	var (
		lotes []dto.LoteResponse
		err   error
	)
	switch {
	case filter.ProductoID != "":
		productoID, perr := uuid.Parse(filter.ProductoID)
		if perr != nil {
			return nil, apierror.Field("producto_id", "identificador inválido")
		}
		if filter.DiasVencimiento == nil {
			lotes, err = s.dispensables(ctx, productoID, nil)
			break
		}
		if *filter.DiasVencimiento < 0 {
			return nil, apierror.Field("dias_vencimiento", "debe ser mayor o igual a cero")
		}
		r := s.ventanaVencimiento(*filter.DiasVencimiento)
		lotes, err = s.dispensables(ctx, productoID, &r)
	case filter.DiasVencimiento != nil:
		lotes, err = s.LotesPorVencer(ctx, *filter.DiasVencimiento)
	default:
		rows, total, lerr := s.repo.List(ctx, repository.LoteFilter{
			Buscar: filter.Buscar,
			Estado: filter.Estado,
			Page:   filter.Page,
			Limit:  filter.Limit,
		})
		if lerr != nil {
			return nil, clasificar(lerr, "")
		}
		return &dto.LoteListResponse{Data: lotesToResponse(rows), Total: total}, nil
	}
	if err != nil {
		return nil, err
	}
	return &dto.LoteListResponse{Data: lotes, Total: int64(len(lotes))}, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, loteID uuid.UUID) ([]dto.MovimientoLoteResponse, error) {
	if _, err := s.repo.FindByID(ctx, loteID); err != nil {
		return nil, clasificar(err, "lote no encontrado")
	}
	movs, _, err := s.movimientos.List(ctx, repository.MovimientoLoteFilter{LoteID: &loteID, Limit: 500})
	if err != nil {
		return nil, clasificar(err, "")
	}
	resp := make([]dto.MovimientoLoteResponse, len(movs))
	for i, m := range movs {
		resp[i] = dto.MovimientoLoteResponse{
			ID:            m.ID.String(),
			LoteID:        m.LoteID.String(),
			Tipo:          m.Tipo,
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			Motivo:        m.Motivo,
			CreatedAt:     m.CreatedAt,
		}
		if m.ReferenciaID != nil {
			resp[i].ReferenciaID = strPtr(m.ReferenciaID.String())
		}
	}
	return resp, nil
}

// ── Batch administration ──────────────────────────────────────────────────────

func (s *inventarioService) RecibirLote(ctx context.Context, req dto.RecibirLoteRequest) (*dto.LoteResponse, error) {
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, apierror.Field("producto_id", "identificador inválido")
	}
	producto, err := s.productoRepo.FindByID(ctx, productoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Field("producto_id", "el producto no existe")
		}
		return nil, clasificar(err, "")
	}
	if !producto.Activo {
		return nil, apierror.Field("producto_id", "el producto está inactivo")
	}

	proveedorID, err := s.resolverProveedor(ctx, req.ProveedorID)
	if err != nil {
		return nil, err
	}

	fabricacion, err := parseFecha("fecha_fabricacion", req.FechaFabricacion)
	if err != nil {
		return nil, err
	}
	vencimiento, err := parseFecha("fecha_vencimiento", req.FechaVencimiento)
	if err != nil {
		return nil, err
	}
	if !fabricacion.Before(vencimiento) {
		return nil, apierror.Field("fecha_vencimiento", "debe ser posterior a la fecha de fabricación")
	}

	if req.CantidadRecibida <= 0 {
		return nil, apierror.Field("cantidad_recibida", "debe ser mayor a cero")
	}
	disponible := req.CantidadRecibida
	if req.CantidadDisponible != nil {
		disponible = *req.CantidadDisponible
	}
	if disponible < 0 || disponible > req.CantidadRecibida {
		return nil, apierror.Field("cantidad_disponible", "debe estar entre 0 y la cantidad recibida")
	}
	if req.PrecioCompra.IsNegative() || req.PrecioVenta.IsNegative() {
		return nil, apierror.Field("precio_venta", "los precios no pueden ser negativos")
	}

	lote := &model.Lote{
		ProductoID:         productoID,
		ProveedorID:        proveedorID,
		NumeroLote:         req.NumeroLote,
		FechaFabricacion:   fabricacion,
		FechaVencimiento:   vencimiento,
		CantidadRecibida:   req.CantidadRecibida,
		CantidadDisponible: disponible,
		PrecioCompra:       req.PrecioCompra,
		PrecioVenta:        req.PrecioVenta,
		Ubicacion:          req.Ubicacion,
		Estado:             model.EstadoPorCantidad(disponible),
	}
	if err := s.repo.Create(ctx, lote); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict(fmt.Sprintf("ya existe el lote %s para este producto", req.NumeroLote))
		}
		return nil, clasificar(err, "")
	}

	log.Info().Str("lote_id", lote.ID.String()).Str("numero_lote", lote.NumeroLote).
		Int("cantidad", lote.CantidadRecibida).Msg("lote recibido")
	resp := loteToResponse(lote)
	return &resp, nil
}

// ActualizarLote edits the descriptive fields of a batch. Quantities and
// estado only change through the ledger.
func (s *inventarioService) ActualizarLote(ctx context.Context, id uuid.UUID, req dto.ActualizarLoteRequest) (*dto.LoteResponse, error) {
	actual, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, clasificar(err, "lote no encontrado")
	}

	campos := map[string]interface{}{}
	fabricacion, vencimiento := actual.FechaFabricacion, actual.FechaVencimiento

	if req.NumeroLote != nil {
		campos["numero_lote"] = *req.NumeroLote
	}
	if req.FechaFabricacion != nil {
		if fabricacion, err = parseFecha("fecha_fabricacion", *req.FechaFabricacion); err != nil {
			return nil, err
		}
		campos["fecha_fabricacion"] = fabricacion
	}
	if req.FechaVencimiento != nil {
		if vencimiento, err = parseFecha("fecha_vencimiento", *req.FechaVencimiento); err != nil {
			return nil, err
		}
		campos["fecha_vencimiento"] = vencimiento
	}
	if !fabricacion.Before(vencimiento) {
		return nil, apierror.Field("fecha_vencimiento", "debe ser posterior a la fecha de fabricación")
	}
	if req.PrecioCompra != nil {
		if req.PrecioCompra.IsNegative() {
			return nil, apierror.Field("precio_compra", "no puede ser negativo")
		}
		campos["precio_compra"] = *req.PrecioCompra
	}
	if req.PrecioVenta != nil {
		if req.PrecioVenta.IsNegative() {
			return nil, apierror.Field("precio_venta", "no puede ser negativo")
		}
		campos["precio_venta"] = *req.PrecioVenta
	}
	if req.Ubicacion != nil {
		campos["ubicacion"] = *req.Ubicacion
	}
	if req.ProveedorID != nil {
		proveedorID, err := s.resolverProveedor(ctx, req.ProveedorID)
		if err != nil {
			return nil, err
		}
		if proveedorID == nil {
			campos["proveedor_id"] = nil
		} else {
			campos["proveedor_id"] = *proveedorID
		}
	}

	if len(campos) > 0 {
		if err := s.repo.UpdateCampos(ctx, id, campos); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, apierror.Conflict("ya existe un lote con ese número para este producto")
			}
			return nil, clasificar(err, "")
		}
	}

	lote, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, clasificar(err, "lote no encontrado")
	}
	resp := loteToResponse(lote)
	return &resp, nil
}

// DesactivarLote is the administrative soft delete. Repeating it is a no-op.
func (s *inventarioService) DesactivarLote(ctx context.Context, id uuid.UUID) error {
	afectadas, err := s.repo.SetEstado(ctx, id, model.LoteInactivo)
	if err != nil {
		return clasificar(err, "")
	}
	if afectadas == 0 {
		return apierror.NotFound("lote no encontrado")
	}
	log.Info().Str("lote_id", id.String()).Msg("lote desactivado")
	return nil
}

// AjustarStock is a manual correction: entrada credits, salida debits.
func (s *inventarioService) AjustarStock(ctx context.Context, id uuid.UUID, req dto.AjusteStockRequest) (*dto.LoteResponse, error) {
	switch req.Tipo {
	case "entrada":
		return s.Acreditar(ctx, id, req.Cantidad, Movimiento{Tipo: model.MovimientoAjusteEntrada, Motivo: req.Motivo})
	case "salida":
		return s.Debitar(ctx, id, req.Cantidad, Movimiento{Tipo: model.MovimientoAjusteSalida, Motivo: req.Motivo})
	default:
		return nil, apierror.Field("tipo", "debe ser entrada o salida")
	}
}

func (s *inventarioService) resolverProveedor(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apierror.Field("proveedor_id", "identificador inválido")
	}
	if _, err := s.proveedorRepo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.Field("proveedor_id", "el proveedor no existe")
		}
		return nil, clasificar(err, "")
	}
	return &id, nil
}

// ── Mappers ───────────────────────────────────────────────────────────────────

func loteToResponse(l *model.Lote) dto.LoteResponse {
	resp := dto.LoteResponse{
		ID:                 l.ID.String(),
		ProductoID:         l.ProductoID.String(),
		NumeroLote:         l.NumeroLote,
		FechaFabricacion:   l.FechaFabricacion.Format(dto.FormatoFecha),
		FechaVencimiento:   l.FechaVencimiento.Format(dto.FormatoFecha),
		CantidadRecibida:   l.CantidadRecibida,
		CantidadDisponible: l.CantidadDisponible,
		PrecioCompra:       l.PrecioCompra,
		PrecioVenta:        l.PrecioVenta,
		Ubicacion:          l.Ubicacion,
		Estado:             l.Estado,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
	if l.ProveedorID != nil {
		resp.ProveedorID = strPtr(l.ProveedorID.String())
	}
	return resp
}

func lotesToResponse(lotes []model.Lote) []dto.LoteResponse {
	resp := make([]dto.LoteResponse, len(lotes))
	for i := range lotes {
		resp[i] = loteToResponse(&lotes[i])
	}
	return resp
}
