package service

import (
	"context"
	"fmt"
	"time"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/infra"
	"farmacia/internal/metrics"
	"farmacia/internal/model"
	"farmacia/internal/repository"
	"farmacia/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// AlertaDispatcher queues inventory alerts. *worker.Dispatcher implements it.
type AlertaDispatcher interface {
	EnqueueAlerta(ctx context.Context, payload worker.AlertaJobPayload) error
}

type DispensacionService interface {
	Dispensar(ctx context.Context, req dto.DispensarRequest) (*dto.DispensarResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.DispensacionResponse, error)
	ListarPorReceta(ctx context.Context, recetaID uuid.UUID) ([]dto.DispensacionResponse, error)
	// Comprobante renders the PDF receipt, stores a copy and returns its bytes.
	Comprobante(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type dispensacionService struct {
	repo        repository.DispensacionRepository
	recetaRepo  repository.RecetaRepository
	loteRepo    repository.LoteRepository
	usuarioRepo repository.UsuarioRepository
	inventario  InventarioService
	storage     infra.Storage
	alertas     AlertaDispatcher
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewDispensacionService(
	repo repository.DispensacionRepository,
	recetaRepo repository.RecetaRepository,
	loteRepo repository.LoteRepository,
	usuarioRepo repository.UsuarioRepository,
	inventario InventarioService,
	storage infra.Storage,
	alertas AlertaDispatcher,
	m *metrics.Metrics,
) DispensacionService {
	return &dispensacionService{
		repo:        repo,
		recetaRepo:  recetaRepo,
		loteRepo:    loteRepo,
		usuarioRepo: usuarioRepo,
		inventario:  inventario,
		storage:     storage,
		alertas:     alertas,
		metrics:     m,
		now:         time.Now,
	}
}

// ── Dispensar ─────────────────────────────────────────────────────────────────
// 1. Validate input
// 2. BEGIN TX
//    a. Load the prescription line and lock the batch row (FOR UPDATE)
//    b. Reject cancelled prescriptions, inactive batches and product mismatches
//    c. Check cantidad against the locked available quantity
//    d. Insert the dispensacion and debit the batch through the ledger
// 3. COMMIT
// 4. (async) enqueue a stock alert when the batch ran out

func (s *dispensacionService) Dispensar(ctx context.Context, req dto.DispensarRequest) (*dto.DispensarResponse, error) {
	campos := map[string]string{}
	detalleID, err := uuid.Parse(req.DetalleRecetaID)
	if err != nil {
		campos["detalle_receta_id"] = "requerido"
	}
	loteID, err := uuid.Parse(req.LoteID)
	if err != nil {
		campos["lote_id"] = "requerido"
	}
	dispensadoPor, err := uuid.Parse(req.DispensadoPor)
	if err != nil {
		campos["dispensado_por"] = "requerido"
	}
	if req.Cantidad <= 0 {
		campos["cantidad"] = "debe ser mayor a cero"
	}
	if len(campos) > 0 {
		s.metrics.ObserveDispensacion(string(apierror.KindValidation), 0)
		return nil, apierror.Validation("dispensación inválida", campos)
	}

	var (
		disp   model.Dispensacion
		lote   *model.Lote
		codigo string
	)
	txErr := runTx(ctx, s.recetaRepo.DB(), func(tx *gorm.DB) error {
		detalle, err := s.recetaRepo.FindDetalleRecetaByIDTx(tx, detalleID)
		if err != nil {
			return clasificar(err, "detalle de receta no encontrado")
		}
		actual, err := s.loteRepo.FindByIDForUpdateTx(tx, loteID)
		if err != nil {
			return clasificar(err, "lote no encontrado")
		}
		receta, err := s.recetaRepo.FindByIDTx(tx, detalle.RecetaID)
		if err != nil {
			return clasificar(err, "receta no encontrada")
		}
		codigo = receta.Codigo

		if receta.Estado == model.RecetaInactiva {
			return apierror.InvalidState(fmt.Sprintf("la receta %s está inactiva", receta.Codigo))
		}
		if actual.Estado == model.LoteInactivo {
			return apierror.InvalidState(fmt.Sprintf("el lote %s está inactivo", actual.NumeroLote))
		}
		if actual.ProductoID != detalle.ProductoID {
			return apierror.Field("lote_id", "el lote no corresponde al producto prescrito")
		}
		if req.Cantidad > actual.CantidadDisponible {
			return apierror.InsufficientStock(fmt.Sprintf(
				"stock insuficiente en el lote %s: disponible %d, solicitado %d",
				actual.NumeroLote, actual.CantidadDisponible, req.Cantidad))
		}

		disp = model.Dispensacion{
			DetalleRecetaID:    detalleID,
			LoteID:             loteID,
			CantidadDispensada: req.Cantidad,
			FechaDispensacion:  s.now().UTC(),
			DispensadoPor:      dispensadoPor,
			Observaciones:      req.Observaciones,
		}
		if err := s.repo.CreateTx(tx, &disp); err != nil {
			return err
		}

		lote, err = s.inventario.DebitarTx(tx, loteID, req.Cantidad, Movimiento{
			Tipo:         model.MovimientoDispensacion,
			Motivo:       "Receta " + receta.Codigo,
			ReferenciaID: &disp.ID,
		})
		return err
	})
	if txErr != nil {
		err := clasificar(txErr, "")
		s.metrics.ObserveDispensacion(string(apierror.KindOf(err)), 0)
		return nil, err
	}

	s.metrics.ObserveDispensacion("ok", req.Cantidad)
	s.metrics.IncMovimiento(model.MovimientoDispensacion)
	log.Info().
		Str("dispensacion_id", disp.ID.String()).
		Str("receta", codigo).
		Str("lote_id", lote.ID.String()).
		Int("cantidad", req.Cantidad).
		Int("disponible", lote.CantidadDisponible).
		Msg("dispensacion registrada")

	if lote.Estado == model.LoteAgotado {
		s.metrics.IncLoteAgotado()
		log.Info().Str("lote_id", lote.ID.String()).Str("numero_lote", lote.NumeroLote).Msg("lote agotado")
		s.alertarAgotado(ctx, lote)
	}

	return &dto.DispensarResponse{
		Dispensacion: dispensacionToResponse(&disp),
		Lote:         loteToResponse(lote),
	}, nil
}

// alertarAgotado is best effort: the dispensation is already committed.
func (s *dispensacionService) alertarAgotado(ctx context.Context, lote *model.Lote) {
	if s.alertas == nil {
		return
	}
	payload := worker.AlertaJobPayload{
		Tipo: worker.AlertaLoteAgotado,
		Lotes: []worker.AlertaLote{{
			LoteID:             lote.ID.String(),
			NumeroLote:         lote.NumeroLote,
			ProductoID:         lote.ProductoID.String(),
			FechaVencimiento:   lote.FechaVencimiento.Format(dto.FormatoFecha),
			CantidadDisponible: lote.CantidadDisponible,
		}},
	}
	if err := s.alertas.EnqueueAlerta(ctx, payload); err != nil {
		log.Warn().Err(err).Str("lote_id", lote.ID.String()).Msg("no se pudo encolar la alerta de lote agotado")
	}
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *dispensacionService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.DispensacionResponse, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, clasificar(err, "dispensación no encontrada")
	}
	resp := dispensacionToResponse(d)
	return &resp, nil
}

func (s *dispensacionService) ListarPorReceta(ctx context.Context, recetaID uuid.UUID) ([]dto.DispensacionResponse, error) {
	if _, err := s.recetaRepo.FindByID(ctx, recetaID); err != nil {
		return nil, clasificar(err, "receta no encontrada")
	}
	ds, err := s.repo.ListByReceta(ctx, recetaID)
	if err != nil {
		return nil, clasificar(err, "")
	}
	resp := make([]dto.DispensacionResponse, len(ds))
	for i := range ds {
		resp[i] = dispensacionToResponse(&ds[i])
	}
	return resp, nil
}

func (s *dispensacionService) Comprobante(ctx context.Context, id uuid.UUID) ([]byte, error) {
	d, err := s.repo.FindComprobante(ctx, id)
	if err != nil {
		return nil, clasificar(err, "dispensación no encontrada")
	}
	if d.DetalleReceta == nil || d.Lote == nil {
		return nil, apierror.Internal("dispensación sin detalle o lote", nil)
	}
	receta, err := s.recetaRepo.FindDetalle(ctx, d.DetalleReceta.RecetaID)
	if err != nil {
		return nil, clasificar(err, "receta no encontrada")
	}

	c := infra.ComprobanteDispensacion{
		DispensacionID:   d.ID.String(),
		Fecha:            d.FechaDispensacion,
		RecetaCodigo:     receta.Codigo,
		NumeroLote:       d.Lote.NumeroLote,
		FechaVencimiento: d.Lote.FechaVencimiento,
		Cantidad:         d.CantidadDispensada,
		Dosis:            d.DetalleReceta.Dosis,
		Frecuencia:       d.DetalleReceta.Frecuencia,
		DispensadoPor:    d.DispensadoPor.String(),
	}
	if receta.Paciente != nil && receta.Paciente.Usuario != nil {
		c.Paciente = receta.Paciente.Usuario.NombreCompleto()
	}
	if receta.Medico != nil {
		c.Medico = receta.Medico.RegistroMedico
		if receta.Medico.Usuario != nil {
			c.Medico = receta.Medico.Usuario.NombreCompleto()
		}
	}
	if p := d.DetalleReceta.Producto; p != nil {
		c.Producto = p.NombreComercial
		if p.Concentracion != nil {
			c.Concentracion = *p.Concentracion
		}
	}
	if u, err := s.usuarioRepo.FindByID(ctx, d.DispensadoPor); err == nil {
		c.DispensadoPor = u.NombreCompleto()
	}
	if d.Observaciones != nil {
		c.Observaciones = *d.Observaciones
	}

	pdf, err := infra.GenerateComprobanteDispensacion(c)
	if err != nil {
		return nil, apierror.Internal("error al generar el comprobante", err)
	}

	if s.storage != nil {
		key := fmt.Sprintf("comprobantes/%s.pdf", d.ID)
		if ubicacion, err := s.storage.Put(ctx, key, pdf, "application/pdf"); err != nil {
			log.Warn().Err(err).Str("dispensacion_id", d.ID.String()).Msg("no se pudo guardar el comprobante")
		} else {
			log.Debug().Str("ubicacion", ubicacion).Msg("comprobante guardado")
		}
	}
	return pdf, nil
}

func dispensacionToResponse(d *model.Dispensacion) dto.DispensacionResponse {
	return dto.DispensacionResponse{
		ID:                d.ID.String(),
		DetalleRecetaID:   d.DetalleRecetaID.String(),
		LoteID:            d.LoteID.String(),
		Cantidad:          d.CantidadDispensada,
		FechaDispensacion: d.FechaDispensacion,
		DispensadoPor:     d.DispensadoPor.String(),
		Observaciones:     d.Observaciones,
	}
}
