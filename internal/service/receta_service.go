package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/model"
	"farmacia/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RecetaService owns a prescription together with its ordered lines. Every
// write that touches more than one row runs in a single transaction.
type RecetaService interface {
	Crear(ctx context.Context, req dto.CrearRecetaRequest) (*dto.RecetaResponse, error)
	ReemplazarDetalles(ctx context.Context, id uuid.UUID, detalles []dto.DetalleRecetaRequest) (*dto.RecetaResponse, error)
	Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarRecetaRequest) (*dto.RecetaResponse, error)
	CambiarEstado(ctx context.Context, id uuid.UUID, estado string) (*dto.RecetaResponse, error)
	Validar(ctx context.Context, id uuid.UUID) (*dto.RecetaResponse, error)
	Anular(ctx context.Context, id uuid.UUID) error
	Listar(ctx context.Context, filter dto.RecetaFilter) (*dto.RecetaListResponse, error)
}

type recetaService struct {
	repo         repository.RecetaRepository
	pacienteRepo repository.PacienteRepository
	medicoRepo   repository.MedicoRepository
	productoRepo repository.ProductoRepository
	now          func() time.Time
}

func NewRecetaService(
	repo repository.RecetaRepository,
	pacienteRepo repository.PacienteRepository,
	medicoRepo repository.MedicoRepository,
	productoRepo repository.ProductoRepository,
) RecetaService {
	return &recetaService{
		repo:         repo,
		pacienteRepo: pacienteRepo,
		medicoRepo:   medicoRepo,
		productoRepo: productoRepo,
		now:          time.Now,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// 1. Validate required fields and every line
// 2. Check that paciente, medico and productos exist
// 3. Reject a duplicated codigo
// 4. BEGIN TX: insert receta, then each line referencing its id
// 5. COMMIT (any failure rolls back the receta as well)

func (s *recetaService) Crear(ctx context.Context, req dto.CrearRecetaRequest) (*dto.RecetaResponse, error) {
	campos := map[string]string{}
	pacienteID, err := uuid.Parse(req.PacienteID)
	if err != nil {
		campos["paciente_id"] = "requerido"
	}
	medicoID, err := uuid.Parse(req.MedicoID)
	if err != nil {
		campos["medico_id"] = "requerido"
	}
	codigo := strings.TrimSpace(req.Codigo)
	if codigo == "" {
		campos["codigo"] = "requerido"
	}
	diagnostico := strings.TrimSpace(req.Diagnostico)
	if diagnostico == "" {
		campos["diagnostico"] = "requerido"
	}
	detalles := construirDetalles(req.Detalles, campos)
	if len(campos) > 0 {
		return nil, apierror.Validation("receta inválida", campos)
	}

	if err := s.verificarReferencias(ctx, pacienteID, medicoID, detalles); err != nil {
		return nil, err
	}

	existe, err := s.repo.ExistsCodigo(ctx, codigo)
	if err != nil {
		return nil, clasificar(err, "")
	}
	if existe {
		return nil, apierror.Conflict(fmt.Sprintf("ya existe una receta con código %s", codigo))
	}

	receta := &model.Receta{
		PacienteID:        pacienteID,
		MedicoID:          medicoID,
		Codigo:            codigo,
		FechaPrescripcion: s.now().UTC(),
		Diagnostico:       diagnostico,
		Instrucciones:     req.Instrucciones,
		Estado:            model.RecetaActiva,
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateTx(tx, receta); err != nil {
			return err
		}
		return s.insertarDetallesTx(tx, receta.ID, detalles)
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrDuplicatedKey) {
			return nil, apierror.Conflict(fmt.Sprintf("ya existe una receta con código %s", codigo))
		}
		return nil, clasificar(txErr, "")
	}
	receta.Detalles = detalles

	log.Info().Str("receta_id", receta.ID.String()).Str("codigo", codigo).
		Int("detalles", len(detalles)).Msg("receta creada")
	resp := recetaToResponse(receta)
	return &resp, nil
}

// ── ReemplazarDetalles ────────────────────────────────────────────────────────

// ReemplazarDetalles swaps the whole line set atomically. Lines that already
// have dispensations cannot be discarded.
func (s *recetaService) ReemplazarDetalles(ctx context.Context, id uuid.UUID, nuevos []dto.DetalleRecetaRequest) (*dto.RecetaResponse, error) {
	campos := map[string]string{}
	detalles := construirDetalles(nuevos, campos)
	if len(campos) > 0 {
		return nil, apierror.Validation("detalles inválidos", campos)
	}
	if err := s.verificarProductos(ctx, detalles); err != nil {
		return nil, err
	}

	var receta *model.Receta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		actual, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return err
		}
		if err := s.reemplazarDetallesTx(tx, actual, detalles); err != nil {
			return err
		}
		receta, err = s.repo.FindByIDTx(tx, id)
		return err
	})
	if txErr != nil {
		return nil, clasificar(txErr, "receta no encontrada")
	}
	resp := recetaToResponse(receta)
	return &resp, nil
}

// ── Actualizar ────────────────────────────────────────────────────────────────

// Actualizar applies a partial update. Field changes, line replacement and
// the optional status transition commit or roll back together.
func (s *recetaService) Actualizar(ctx context.Context, id uuid.UUID, req dto.ActualizarRecetaRequest) (*dto.RecetaResponse, error) {
	campos := map[string]interface{}{}
	invalidos := map[string]string{}

	if req.Diagnostico != nil {
		diagnostico := strings.TrimSpace(*req.Diagnostico)
		if diagnostico == "" {
			invalidos["diagnostico"] = "requerido"
		}
		campos["diagnostico"] = diagnostico
	}
	if req.Instrucciones != nil {
		campos["instrucciones"] = *req.Instrucciones
	}
	if req.Estado != nil && !estadoRecetaValido(*req.Estado) {
		invalidos["estado"] = "debe ser Activa, Validada o Inactiva"
	}
	var detalles []model.DetalleReceta
	if req.Detalles != nil {
		detalles = construirDetalles(req.Detalles, invalidos)
	}
	if len(invalidos) > 0 {
		return nil, apierror.Validation("receta inválida", invalidos)
	}
	if req.Detalles != nil {
		if err := s.verificarProductos(ctx, detalles); err != nil {
			return nil, err
		}
	}

	var receta *model.Receta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		actual, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return err
		}
		if len(campos) > 0 {
			if err := s.repo.UpdateCamposTx(tx, id, campos); err != nil {
				return err
			}
		}
		if req.Detalles != nil {
			if err := s.reemplazarDetallesTx(tx, actual, detalles); err != nil {
				return err
			}
		}
		if req.Estado != nil {
			if err := s.cambiarEstadoTx(tx, actual, *req.Estado); err != nil {
				return err
			}
		}
		receta, err = s.repo.FindByIDTx(tx, id)
		return err
	})
	if txErr != nil {
		return nil, clasificar(txErr, "receta no encontrada")
	}
	resp := recetaToResponse(receta)
	return &resp, nil
}

// ── Estado ────────────────────────────────────────────────────────────────────

func (s *recetaService) CambiarEstado(ctx context.Context, id uuid.UUID, estado string) (*dto.RecetaResponse, error) {
	if !estadoRecetaValido(estado) {
		return nil, apierror.Field("estado", "debe ser Activa, Validada o Inactiva")
	}

	var receta *model.Receta
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		actual, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return err
		}
		if err := s.cambiarEstadoTx(tx, actual, estado); err != nil {
			return err
		}
		receta, err = s.repo.FindByIDTx(tx, id)
		return err
	})
	if txErr != nil {
		return nil, clasificar(txErr, "receta no encontrada")
	}

	log.Info().Str("receta_id", id.String()).Str("estado", estado).Msg("estado de receta actualizado")
	resp := recetaToResponse(receta)
	return &resp, nil
}

// Validar moves an Activa prescription to Validada and sets the validated flag.
func (s *recetaService) Validar(ctx context.Context, id uuid.UUID) (*dto.RecetaResponse, error) {
	return s.CambiarEstado(ctx, id, model.RecetaValidada)
}

// Anular cancels the prescription (soft delete). Cancelling an already
// Inactiva prescription is a no-op.
func (s *recetaService) Anular(ctx context.Context, id uuid.UUID) error {
	return clasificar(runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		actual, err := s.repo.FindByIDForUpdateTx(tx, id)
		if err != nil {
			return err
		}
		if actual.Estado == model.RecetaInactiva {
			return nil
		}
		return s.cambiarEstadoTx(tx, actual, model.RecetaInactiva)
	}), "receta no encontrada")
}

// cambiarEstadoTx enforces Activa → Validada and Activa → Inactiva. Both
// targets are terminal.
func (s *recetaService) cambiarEstadoTx(tx *gorm.DB, actual *model.Receta, nuevo string) error {
	if actual.Estado != model.RecetaActiva || nuevo == model.RecetaActiva {
		return apierror.InvalidState(fmt.Sprintf("no se puede pasar una receta %s a %s", actual.Estado, nuevo))
	}
	campos := map[string]interface{}{"estado": nuevo}
	if nuevo == model.RecetaValidada {
		campos["validada"] = true
	}
	return s.repo.UpdateCamposTx(tx, actual.ID, campos)
}

// ── Listar ────────────────────────────────────────────────────────────────────

func (s *recetaService) Listar(ctx context.Context, filter dto.RecetaFilter) (*dto.RecetaListResponse, error) {
	f := repository.RecetaFilter{Estado: filter.Estado, Page: filter.Page, Limit: filter.Limit}
	if filter.PacienteID != "" {
		id, err := uuid.Parse(filter.PacienteID)
		if err != nil {
			return nil, apierror.Field("paciente_id", "identificador inválido")
		}
		f.PacienteID = &id
	}
	if filter.MedicoID != "" {
		id, err := uuid.Parse(filter.MedicoID)
		if err != nil {
			return nil, apierror.Field("medico_id", "identificador inválido")
		}
		f.MedicoID = &id
	}

	recetas, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, clasificar(err, "")
	}
	data := make([]dto.RecetaResponse, len(recetas))
	for i := range recetas {
		data[i] = recetaToResponse(&recetas[i])
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return &dto.RecetaListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *recetaService) reemplazarDetallesTx(tx *gorm.DB, actual *model.Receta, detalles []model.DetalleReceta) error {
	if actual.Estado == model.RecetaInactiva {
		return apierror.InvalidState("no se pueden modificar los detalles de una receta inactiva")
	}
	dispensadas, err := s.repo.CountDispensacionesTx(tx, actual.ID)
	if err != nil {
		return err
	}
	if dispensadas > 0 {
		return apierror.InvalidState("la receta ya tiene dispensaciones, sus detalles no pueden reemplazarse")
	}
	if err := s.repo.DeleteDetallesTx(tx, actual.ID); err != nil {
		return err
	}
	return s.insertarDetallesTx(tx, actual.ID, detalles)
}

func (s *recetaService) insertarDetallesTx(tx *gorm.DB, recetaID uuid.UUID, detalles []model.DetalleReceta) error {
	for i := range detalles {
		detalles[i].RecetaID = recetaID
		detalles[i].Orden = i + 1
		if err := s.repo.CreateDetalleTx(tx, &detalles[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *recetaService) verificarReferencias(ctx context.Context, pacienteID, medicoID uuid.UUID, detalles []model.DetalleReceta) error {
	ok, err := s.pacienteRepo.Exists(ctx, pacienteID)
	if err != nil {
		return clasificar(err, "")
	}
	if !ok {
		return apierror.Field("paciente_id", "el paciente no existe")
	}
	ok, err = s.medicoRepo.Exists(ctx, medicoID)
	if err != nil {
		return clasificar(err, "")
	}
	if !ok {
		return apierror.Field("medico_id", "el médico no existe")
	}
	return s.verificarProductos(ctx, detalles)
}

func (s *recetaService) verificarProductos(ctx context.Context, detalles []model.DetalleReceta) error {
	ids := make([]uuid.UUID, 0, len(detalles))
	for _, d := range detalles {
		ids = append(ids, d.ProductoID)
	}
	productos, err := s.productoRepo.FindByIDs(ctx, ids)
	if err != nil {
		return clasificar(err, "")
	}
	existentes := make(map[uuid.UUID]bool, len(productos))
	for _, p := range productos {
		existentes[p.ID] = true
	}
	campos := map[string]string{}
	for i, d := range detalles {
		if !existentes[d.ProductoID] {
			campos[fmt.Sprintf("detalles[%d].producto_id", i)] = "el producto no existe"
		}
	}
	if len(campos) > 0 {
		return apierror.Validation("productos inexistentes", campos)
	}
	return nil
}

// construirDetalles converts request lines into models, recording any
// invalid field in campos. An empty list is itself invalid.
func construirDetalles(reqs []dto.DetalleRecetaRequest, campos map[string]string) []model.DetalleReceta {
	if len(reqs) == 0 {
		campos["detalles"] = "se requiere al menos un detalle"
		return nil
	}
	detalles := make([]model.DetalleReceta, 0, len(reqs))
	for i, d := range reqs {
		prefijo := fmt.Sprintf("detalles[%d].", i)
		productoID, err := uuid.Parse(d.ProductoID)
		if err != nil {
			campos[prefijo+"producto_id"] = "requerido"
		}
		if d.Cantidad <= 0 {
			campos[prefijo+"cantidad"] = "debe ser mayor a cero"
		}
		if strings.TrimSpace(d.Dosis) == "" {
			campos[prefijo+"dosis"] = "requerido"
		}
		if strings.TrimSpace(d.Frecuencia) == "" {
			campos[prefijo+"frecuencia"] = "requerido"
		}
		detalles = append(detalles, model.DetalleReceta{
			ProductoID:        productoID,
			Dosis:             d.Dosis,
			Frecuencia:        d.Frecuencia,
			ViaAdministracion: d.ViaAdministracion,
			Duracion:          d.Duracion,
			CantidadPrescrita: d.Cantidad,
			Observaciones:     d.Observaciones,
			Posologia:         d.Posologia,
		})
	}
	return detalles
}

func estadoRecetaValido(e string) bool {
	return e == model.RecetaActiva || e == model.RecetaValidada || e == model.RecetaInactiva
}

// ── Mappers ───────────────────────────────────────────────────────────────────

func recetaToResponse(r *model.Receta) dto.RecetaResponse {
	detalles := make([]dto.DetalleRecetaResponse, len(r.Detalles))
	for i := range r.Detalles {
		detalles[i] = detalleRecetaToResponse(&r.Detalles[i])
	}
	return dto.RecetaResponse{
		ID:                r.ID.String(),
		PacienteID:        r.PacienteID.String(),
		MedicoID:          r.MedicoID.String(),
		Codigo:            r.Codigo,
		FechaPrescripcion: r.FechaPrescripcion,
		Diagnostico:       r.Diagnostico,
		Instrucciones:     r.Instrucciones,
		Estado:            r.Estado,
		Validada:          r.Validada,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Detalles:          detalles,
	}
}

func detalleRecetaToResponse(d *model.DetalleReceta) dto.DetalleRecetaResponse {
	resp := dto.DetalleRecetaResponse{
		ID:                d.ID.String(),
		ProductoID:        d.ProductoID.String(),
		Orden:             d.Orden,
		Dosis:             d.Dosis,
		Frecuencia:        d.Frecuencia,
		ViaAdministracion: d.ViaAdministracion,
		Duracion:          d.Duracion,
		Cantidad:          d.CantidadPrescrita,
		Observaciones:     d.Observaciones,
		Posologia:         d.Posologia,
	}
	if d.Producto != nil {
		resumen := productoToResumen(d.Producto)
		resp.Producto = &resumen
	}
	return resp
}
