package service_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/model"
	"farmacia/internal/repository"
	"farmacia/internal/service"
	"farmacia/internal/testutil"
	"farmacia/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type escenarioDispensa struct {
	receta       *model.Receta
	detalle      model.DetalleReceta
	producto     *model.Producto
	lote         *model.Lote
	farmaceutico *model.Usuario
}

// sembrarDispensa seeds an Activa prescription for one product and a batch
// of that product holding disponible units.
func sembrarDispensa(t *testing.T, e *entorno, disponible int) escenarioDispensa {
	t.Helper()
	paciente := testutil.SeedPaciente(t, e.db)
	medico := testutil.SeedMedico(t, e.db)
	producto := testutil.SeedProducto(t, e.db, "AMX500")
	r := testutil.SeedReceta(t, e.db, paciente.ID, medico.ID, "RX-001", producto.ID)
	l := testutil.SeedLote(t, e.db, testutil.LoteSeed{
		ProductoID: producto.ID, NumeroLote: "L-2027", FechaVencimiento: venceEn(300),
		Recibida: disponible, Disponible: disponible,
	})
	return escenarioDispensa{
		receta:       r,
		detalle:      r.Detalles[0],
		producto:     producto,
		lote:         l,
		farmaceutico: testutil.SeedUsuario(t, e.db, model.RolFarmaceutico, "Marta"),
	}
}

func (s escenarioDispensa) request(cantidad int) dto.DispensarRequest {
	return dto.DispensarRequest{
		DetalleRecetaID: s.detalle.ID.String(),
		LoteID:          s.lote.ID.String(),
		Cantidad:        cantidad,
		DispensadoPor:   s.farmaceutico.ID.String(),
	}
}

func TestDispensar_AgotaElLoteYAlerta(t *testing.T) {
	e := nuevoEntorno(t)
	s := sembrarDispensa(t, e, 10)

	// When: 6 of 10 units are dispensed
	resp, err := e.dispensaciones.Dispensar(ctx, s.request(6))
	require.NoError(t, err)
	assert.Equal(t, 6, resp.Dispensacion.Cantidad)
	assert.Equal(t, 4, resp.Lote.CantidadDisponible)
	assert.Equal(t, model.LoteActivo, resp.Lote.Estado)
	assert.Empty(t, e.alertas.enviadas())

	// When: more than what is left is requested
	_, err = e.dispensaciones.Dispensar(ctx, s.request(5))
	assert.ErrorIs(t, err, apierror.ErrInsufficientStock)
	assert.Equal(t, 4, e.lote(t, s.lote.ID).CantidadDisponible)
	assert.Equal(t, int64(1), e.contar(t, &model.Dispensacion{}))

	// When: the remainder is dispensed
	resp, err = e.dispensaciones.Dispensar(ctx, s.request(4))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Lote.CantidadDisponible)
	assert.Equal(t, model.LoteAgotado, resp.Lote.Estado)

	alertas := e.alertas.enviadas()
	require.Len(t, alertas, 1)
	assert.Equal(t, worker.AlertaLoteAgotado, alertas[0].Tipo)
	require.Len(t, alertas[0].Lotes, 1)
	assert.Equal(t, s.lote.ID.String(), alertas[0].Lotes[0].LoteID)

	// Then: both dispensations are journalled against the batch
	movs, err := e.inventario.ListarMovimientos(ctx, s.lote.ID)
	require.NoError(t, err)
	require.Len(t, movs, 2)
	for _, m := range movs {
		assert.Equal(t, model.MovimientoDispensacion, m.Tipo)
		require.NotNil(t, m.ReferenciaID)
	}

	lista, err := e.dispensaciones.ListarPorReceta(ctx, s.receta.ID)
	require.NoError(t, err)
	assert.Len(t, lista, 2)
}

func TestDispensar_Rechazos(t *testing.T) {
	tests := []struct {
		name     string
		preparar func(t *testing.T, e *entorno, s *escenarioDispensa) dto.DispensarRequest
		wantErr  error
		campo    string
	}{
		{
			name: "receta inactiva",
			preparar: func(t *testing.T, e *entorno, s *escenarioDispensa) dto.DispensarRequest {
				require.NoError(t, e.recetas.Anular(ctx, s.receta.ID))
				return s.request(1)
			},
			wantErr: apierror.ErrInvalidState,
		},
		{
			name: "lote inactivo",
			preparar: func(t *testing.T, e *entorno, s *escenarioDispensa) dto.DispensarRequest {
				require.NoError(t, e.inventario.DesactivarLote(ctx, s.lote.ID))
				return s.request(1)
			},
			wantErr: apierror.ErrInvalidState,
		},
		{
			name: "lote de otro producto",
			preparar: func(t *testing.T, e *entorno, s *escenarioDispensa) dto.DispensarRequest {
				otro := testutil.SeedProducto(t, e.db, "IBU400")
				l := testutil.SeedLote(t, e.db, testutil.LoteSeed{ProductoID: otro.ID, NumeroLote: "X", FechaVencimiento: venceEn(100), Recibida: 10, Disponible: 10})
				req := s.request(1)
				req.LoteID = l.ID.String()
				return req
			},
			wantErr: apierror.ErrValidation,
			campo:   "lote_id",
		},
		{
			name: "detalle inexistente",
			preparar: func(t *testing.T, e *entorno, s *escenarioDispensa) dto.DispensarRequest {
				req := s.request(1)
				req.DetalleRecetaID = uuid.NewString()
				return req
			},
			wantErr: apierror.ErrNotFound,
		},
		{
			name: "lote inexistente",
			preparar: func(t *testing.T, e *entorno, s *escenarioDispensa) dto.DispensarRequest {
				req := s.request(1)
				req.LoteID = uuid.NewString()
				return req
			},
			wantErr: apierror.ErrNotFound,
		},
		{
			name: "cantidad cero",
			preparar: func(t *testing.T, e *entorno, s *escenarioDispensa) dto.DispensarRequest {
				return s.request(0)
			},
			wantErr: apierror.ErrValidation,
			campo:   "cantidad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := nuevoEntorno(t)
			s := sembrarDispensa(t, e, 10)
			req := tt.preparar(t, e, &s)

			_, err := e.dispensaciones.Dispensar(ctx, req)

			require.ErrorIs(t, err, tt.wantErr)
			if tt.campo != "" {
				var apiErr *apierror.Error
				require.ErrorAs(t, err, &apiErr)
				assert.Contains(t, apiErr.Fields, tt.campo)
			}
			assert.Equal(t, int64(0), e.contar(t, &model.Dispensacion{}))
			assert.Equal(t, 10, e.lote(t, s.lote.ID).CantidadDisponible)
		})
	}
}

func TestDispensar_Concurrente(t *testing.T) {
	e := nuevoEntorno(t)
	s := sembrarDispensa(t, e, 10)

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.dispensaciones.Dispensar(ctx, s.request(6))
		}(i)
	}
	wg.Wait()

	var ok, sinStock int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apierror.ErrInsufficientStock):
			sinStock++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, sinStock)
	assert.Equal(t, 4, e.lote(t, s.lote.ID).CantidadDisponible)
	assert.Equal(t, int64(1), e.contar(t, &model.Dispensacion{}))
}

// inventarioRoto fails every debit made inside a caller's transaction.
type inventarioRoto struct {
	service.InventarioService
}

func (inventarioRoto) DebitarTx(*gorm.DB, uuid.UUID, int, service.Movimiento) (*model.Lote, error) {
	return nil, errors.New("ledger no disponible")
}

func TestDispensar_FalloDelDebitoDeshaceLaDispensacion(t *testing.T) {
	e := nuevoEntorno(t)
	s := sembrarDispensa(t, e, 10)

	svc := service.NewDispensacionService(
		repository.NewDispensacionRepository(e.db),
		e.recetaRepo,
		e.loteRepo,
		repository.NewUsuarioRepository(e.db),
		inventarioRoto{e.inventario},
		nil, e.alertas, nil,
	)

	_, err := svc.Dispensar(ctx, s.request(3))

	assert.ErrorIs(t, err, apierror.ErrInternal)
	assert.Equal(t, int64(0), e.contar(t, &model.Dispensacion{}))
	assert.Equal(t, 10, e.lote(t, s.lote.ID).CantidadDisponible)
}

func TestComprobante(t *testing.T) {
	e := nuevoEntorno(t)
	s := sembrarDispensa(t, e, 10)
	observaciones := "Entregado al acudiente"
	req := s.request(2)
	req.Observaciones = &observaciones
	resp, err := e.dispensaciones.Dispensar(ctx, req)
	require.NoError(t, err)
	id := uuid.MustParse(resp.Dispensacion.ID)

	pdf, err := e.dispensaciones.Comprobante(ctx, id)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Equal(t, pdf, e.storage.files["comprobantes/"+id.String()+".pdf"])

	_, err = e.dispensaciones.Comprobante(ctx, uuid.New())
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestObtenerDispensacion(t *testing.T) {
	e := nuevoEntorno(t)
	s := sembrarDispensa(t, e, 10)
	resp, err := e.dispensaciones.Dispensar(ctx, s.request(1))
	require.NoError(t, err)

	d, err := e.dispensaciones.ObtenerPorID(ctx, uuid.MustParse(resp.Dispensacion.ID))

	require.NoError(t, err)
	assert.Equal(t, s.lote.ID.String(), d.LoteID)
	assert.Equal(t, s.farmaceutico.ID.String(), d.DispensadoPor)

	_, err = e.dispensaciones.ListarPorReceta(ctx, uuid.New())
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}
