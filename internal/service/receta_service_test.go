package service_test

import (
	"errors"
	"testing"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/model"
	"farmacia/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recetaBase struct {
	paciente *model.Paciente
	medico   *model.Medico
	amox     *model.Producto
	ibu      *model.Producto
}

func sembrarReceta(t *testing.T, e *entorno) recetaBase {
	t.Helper()
	return recetaBase{
		paciente: testutil.SeedPaciente(t, e.db),
		medico:   testutil.SeedMedico(t, e.db),
		amox:     testutil.SeedProducto(t, e.db, "AMX500"),
		ibu:      testutil.SeedProducto(t, e.db, "IBU400"),
	}
}

func linea(productoID uuid.UUID, dosis string, cantidad int) dto.DetalleRecetaRequest {
	return dto.DetalleRecetaRequest{
		ProductoID: productoID.String(),
		Dosis:      dosis,
		Frecuencia: "cada 8 horas",
		Cantidad:   cantidad,
	}
}

func (b recetaBase) request(codigo string, lineas ...dto.DetalleRecetaRequest) dto.CrearRecetaRequest {
	return dto.CrearRecetaRequest{
		PacienteID:  b.paciente.ID.String(),
		MedicoID:    b.medico.ID.String(),
		Codigo:      codigo,
		Diagnostico: "Faringitis",
		Detalles:    lineas,
	}
}

// ── Crear ────────────────────────────────────────────────────────────────────

func TestCrearReceta_PersisteLineasEnOrden(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)

	resp, err := e.recetas.Crear(ctx, b.request("RX-001",
		linea(b.amox.ID, "500mg", 21),
		linea(b.ibu.ID, "400mg", 10),
	))

	require.NoError(t, err)
	assert.Equal(t, model.RecetaActiva, resp.Estado)
	assert.False(t, resp.Validada)

	id := uuid.MustParse(resp.ID)
	detalle, err := e.consulta.RecetaDetalle(ctx, id)
	require.NoError(t, err)
	require.Len(t, detalle.Detalles, 2)
	assert.Equal(t, 1, detalle.Detalles[0].Orden)
	assert.Equal(t, "500mg", detalle.Detalles[0].Dosis)
	assert.Equal(t, 21, detalle.Detalles[0].Cantidad)
	assert.Equal(t, 2, detalle.Detalles[1].Orden)
	assert.Equal(t, b.ibu.ID.String(), detalle.Detalles[1].ProductoID)
}

func TestCrearReceta_CodigoDuplicado(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)

	_, err := e.recetas.Crear(ctx, b.request("RX-001", linea(b.amox.ID, "500mg", 21)))
	require.NoError(t, err)

	_, err = e.recetas.Crear(ctx, b.request("RX-001", linea(b.ibu.ID, "400mg", 10)))

	assert.ErrorIs(t, err, apierror.ErrConflict)
	assert.Equal(t, int64(1), e.contar(t, &model.Receta{}))
	assert.Equal(t, int64(1), e.contar(t, &model.DetalleReceta{}))
}

func TestCrearReceta_Validaciones(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)

	tests := []struct {
		name  string
		req   dto.CrearRecetaRequest
		campo string
	}{
		{"sin detalles", b.request("RX-1"), "detalles"},
		{"producto inexistente", b.request("RX-2", linea(b.amox.ID, "500mg", 1), linea(uuid.New(), "1", 1)), "detalles[1].producto_id"},
		{"cantidad cero", b.request("RX-3", linea(b.amox.ID, "500mg", 0)), "detalles[0].cantidad"},
		{"dosis vacia", b.request("RX-4", linea(b.amox.ID, " ", 2)), "detalles[0].dosis"},
		{"paciente inexistente", func() dto.CrearRecetaRequest {
			r := b.request("RX-5", linea(b.amox.ID, "500mg", 1))
			r.PacienteID = uuid.NewString()
			return r
		}(), "paciente_id"},
		{"medico inexistente", func() dto.CrearRecetaRequest {
			r := b.request("RX-6", linea(b.amox.ID, "500mg", 1))
			r.MedicoID = uuid.NewString()
			return r
		}(), "medico_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.recetas.Crear(ctx, tt.req)

			require.ErrorIs(t, err, apierror.ErrValidation)
			var apiErr *apierror.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Contains(t, apiErr.Fields, tt.campo)
		})
	}
	assert.Equal(t, int64(0), e.contar(t, &model.Receta{}))
}

func TestCrearReceta_FalloEnUnaLineaDeshaceTodo(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)

	// Given: the second line insert fails at the database layer
	insertadas := 0
	require.NoError(t, e.db.Callback().Create().Before("gorm:create").Register("test:fallar_segundo_detalle", func(tx *gorm.DB) {
		if tx.Statement.Table != "detalles_receta" {
			return
		}
		insertadas++
		if insertadas == 2 {
			_ = tx.AddError(errors.New("disco lleno"))
		}
	}))

	_, err := e.recetas.Crear(ctx, b.request("RX-001",
		linea(b.amox.ID, "500mg", 21),
		linea(b.ibu.ID, "400mg", 10),
	))

	assert.ErrorIs(t, err, apierror.ErrInternal)
	assert.Equal(t, int64(0), e.contar(t, &model.Receta{}))
	assert.Equal(t, int64(0), e.contar(t, &model.DetalleReceta{}))
}

// ── Reemplazar detalles ──────────────────────────────────────────────────────

func TestReemplazarDetalles(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID, b.ibu.ID)

	resp, err := e.recetas.ReemplazarDetalles(ctx, r.ID, []dto.DetalleRecetaRequest{linea(b.ibu.ID, "200mg", 6)})

	require.NoError(t, err)
	require.Len(t, resp.Detalles, 1)
	assert.Equal(t, "200mg", resp.Detalles[0].Dosis)
	assert.Equal(t, 1, resp.Detalles[0].Orden)
	assert.Equal(t, int64(1), e.contar(t, &model.DetalleReceta{}))
}

func TestReemplazarDetalles_RecetaInactiva(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)
	require.NoError(t, e.recetas.Anular(ctx, r.ID))

	_, err := e.recetas.ReemplazarDetalles(ctx, r.ID, []dto.DetalleRecetaRequest{linea(b.ibu.ID, "200mg", 6)})

	assert.ErrorIs(t, err, apierror.ErrInvalidState)
	assert.Equal(t, int64(1), e.contar(t, &model.DetalleReceta{}))
}

func TestReemplazarDetalles_ConDispensaciones(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)
	lote := testutil.SeedLote(t, e.db, testutil.LoteSeed{ProductoID: b.amox.ID, NumeroLote: "L1", FechaVencimiento: venceEn(100), Recibida: 10, Disponible: 10})
	farmaceutico := testutil.SeedUsuario(t, e.db, model.RolFarmaceutico, "Marta")

	_, err := e.dispensaciones.Dispensar(ctx, dto.DispensarRequest{
		DetalleRecetaID: r.Detalles[0].ID.String(),
		LoteID:          lote.ID.String(),
		Cantidad:        2,
		DispensadoPor:   farmaceutico.ID.String(),
	})
	require.NoError(t, err)

	_, err = e.recetas.ReemplazarDetalles(ctx, r.ID, []dto.DetalleRecetaRequest{linea(b.ibu.ID, "200mg", 6)})

	assert.ErrorIs(t, err, apierror.ErrInvalidState)
	assert.Equal(t, int64(1), e.contar(t, &model.DetalleReceta{}))
}

func TestReemplazarDetalles_RecetaInexistente(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)

	_, err := e.recetas.ReemplazarDetalles(ctx, uuid.New(), []dto.DetalleRecetaRequest{linea(b.ibu.ID, "200mg", 6)})

	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

// ── Estado ───────────────────────────────────────────────────────────────────

func TestCambiarEstado_Transiciones(t *testing.T) {
	tests := []struct {
		name    string
		desde   string
		hacia   string
		wantErr error
	}{
		{"activa a validada", model.RecetaActiva, model.RecetaValidada, nil},
		{"activa a inactiva", model.RecetaActiva, model.RecetaInactiva, nil},
		{"activa a activa", model.RecetaActiva, model.RecetaActiva, apierror.ErrInvalidState},
		{"validada a activa", model.RecetaValidada, model.RecetaActiva, apierror.ErrInvalidState},
		{"validada a inactiva", model.RecetaValidada, model.RecetaInactiva, apierror.ErrInvalidState},
		{"inactiva a activa", model.RecetaInactiva, model.RecetaActiva, apierror.ErrInvalidState},
		{"inactiva a validada", model.RecetaInactiva, model.RecetaValidada, apierror.ErrInvalidState},
		{"estado desconocido", model.RecetaActiva, "Archivada", apierror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := nuevoEntorno(t)
			b := sembrarReceta(t, e)
			r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)
			require.NoError(t, e.db.Model(&model.Receta{}).Where("id = ?", r.ID).Update("estado", tt.desde).Error)

			resp, err := e.recetas.CambiarEstado(ctx, r.ID, tt.hacia)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				var actual model.Receta
				require.NoError(t, e.db.First(&actual, "id = ?", r.ID).Error)
				assert.Equal(t, tt.desde, actual.Estado)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.hacia, resp.Estado)
			assert.Equal(t, tt.hacia == model.RecetaValidada, resp.Validada)
		})
	}
}

func TestValidar_MarcaValidada(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)

	resp, err := e.recetas.Validar(ctx, r.ID)

	require.NoError(t, err)
	assert.Equal(t, model.RecetaValidada, resp.Estado)
	assert.True(t, resp.Validada)
	assert.Len(t, resp.Detalles, 1)
}

func TestAnular_Idempotente(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)

	require.NoError(t, e.recetas.Anular(ctx, r.ID))
	require.NoError(t, e.recetas.Anular(ctx, r.ID))

	var actual model.Receta
	require.NoError(t, e.db.First(&actual, "id = ?", r.ID).Error)
	assert.Equal(t, model.RecetaInactiva, actual.Estado)
	assert.Equal(t, int64(1), e.contar(t, &model.DetalleReceta{}))

	assert.ErrorIs(t, e.recetas.Anular(ctx, uuid.New()), apierror.ErrNotFound)
}

// ── Actualizar ───────────────────────────────────────────────────────────────

func TestActualizar_CamposYDetallesJuntos(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)

	diagnostico := "Otitis media"
	resp, err := e.recetas.Actualizar(ctx, r.ID, dto.ActualizarRecetaRequest{
		Diagnostico: &diagnostico,
		Detalles:    []dto.DetalleRecetaRequest{linea(b.ibu.ID, "400mg", 3), linea(b.amox.ID, "250mg", 4)},
	})

	require.NoError(t, err)
	assert.Equal(t, "Otitis media", resp.Diagnostico)
	require.Len(t, resp.Detalles, 2)
	assert.Equal(t, b.ibu.ID.String(), resp.Detalles[0].ProductoID)
}

func TestActualizar_TransicionInvalidaDeshaceLosCampos(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)
	_, err := e.recetas.Validar(ctx, r.ID)
	require.NoError(t, err)

	diagnostico := "Otitis media"
	activa := model.RecetaActiva
	_, err = e.recetas.Actualizar(ctx, r.ID, dto.ActualizarRecetaRequest{
		Diagnostico: &diagnostico,
		Estado:      &activa,
	})

	assert.ErrorIs(t, err, apierror.ErrInvalidState)
	var actual model.Receta
	require.NoError(t, e.db.First(&actual, "id = ?", r.ID).Error)
	assert.Equal(t, "Diagnóstico de prueba", actual.Diagnostico)
	assert.Equal(t, model.RecetaValidada, actual.Estado)
}

func TestActualizar_MismoEstadoTerminalEsTransicionInvalida(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	r := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)
	_, err := e.recetas.Validar(ctx, r.ID)
	require.NoError(t, err)

	diagnostico := "Otitis media"
	validada := model.RecetaValidada
	_, err = e.recetas.Actualizar(ctx, r.ID, dto.ActualizarRecetaRequest{
		Diagnostico: &diagnostico,
		Estado:      &validada,
	})

	assert.ErrorIs(t, err, apierror.ErrInvalidState)
	var actual model.Receta
	require.NoError(t, e.db.First(&actual, "id = ?", r.ID).Error)
	assert.Equal(t, "Diagnóstico de prueba", actual.Diagnostico)
	assert.Equal(t, model.RecetaValidada, actual.Estado)
}

// ── Listar ───────────────────────────────────────────────────────────────────

func TestListarRecetas_FiltraPorEstadoYPaciente(t *testing.T) {
	e := nuevoEntorno(t)
	b := sembrarReceta(t, e)
	otroPaciente := testutil.SeedPaciente(t, e.db)

	r1 := testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-001", b.amox.ID)
	testutil.SeedReceta(t, e.db, b.paciente.ID, b.medico.ID, "RX-002", b.ibu.ID)
	testutil.SeedReceta(t, e.db, otroPaciente.ID, b.medico.ID, "RX-003", b.ibu.ID)
	require.NoError(t, e.recetas.Anular(ctx, r1.ID))

	resp, err := e.recetas.Listar(ctx, dto.RecetaFilter{PacienteID: b.paciente.ID.String(), Estado: model.RecetaActiva, Page: 1, Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "RX-002", resp.Data[0].Codigo)

	_, err = e.recetas.Listar(ctx, dto.RecetaFilter{PacienteID: "no-es-uuid"})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}
