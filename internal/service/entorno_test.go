package service_test

import (
	"context"
	"sync"
	"testing"

	"farmacia/internal/model"
	"farmacia/internal/repository"
	"farmacia/internal/service"
	"farmacia/internal/testutil"
	"farmacia/internal/worker"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type fakeAlertas struct {
	mu       sync.Mutex
	payloads []worker.AlertaJobPayload
}

func (f *fakeAlertas) EnqueueAlerta(_ context.Context, p worker.AlertaJobPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	return nil
}

func (f *fakeAlertas) enviadas() []worker.AlertaJobPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]worker.AlertaJobPayload(nil), f.payloads...)
}

type fakeStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (f *fakeStorage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.files == nil {
		f.files = map[string][]byte{}
	}
	f.files[key] = data
	return "mem://" + key, nil
}

// ── Entorno ──────────────────────────────────────────────────────────────────

// entorno wires every service over one SQLite database, the same way the
// router does.
type entorno struct {
	db             *gorm.DB
	inventario     service.InventarioService
	recetas        service.RecetaService
	dispensaciones service.DispensacionService
	consulta       service.ConsultaService
	productos      service.ProductoService
	proveedores    service.ProveedorService
	alertas        *fakeAlertas
	storage        *fakeStorage

	loteRepo   repository.LoteRepository
	recetaRepo repository.RecetaRepository
}

func nuevoEntorno(t *testing.T) *entorno {
	t.Helper()
	db := testutil.NewDB(t)

	usuarioRepo := repository.NewUsuarioRepository(db)
	pacienteRepo := repository.NewPacienteRepository(db)
	medicoRepo := repository.NewMedicoRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	proveedorRepo := repository.NewProveedorRepository(db)
	loteRepo := repository.NewLoteRepository(db)
	movimientoRepo := repository.NewMovimientoLoteRepository(db)
	recetaRepo := repository.NewRecetaRepository(db)
	dispensacionRepo := repository.NewDispensacionRepository(db)

	e := &entorno{
		db:         db,
		alertas:    &fakeAlertas{},
		storage:    &fakeStorage{},
		loteRepo:   loteRepo,
		recetaRepo: recetaRepo,
	}
	e.inventario = service.NewInventarioService(loteRepo, movimientoRepo, productoRepo, proveedorRepo, nil)
	e.recetas = service.NewRecetaService(recetaRepo, pacienteRepo, medicoRepo, productoRepo)
	e.dispensaciones = service.NewDispensacionService(
		dispensacionRepo, recetaRepo, loteRepo, usuarioRepo,
		e.inventario, e.storage, e.alertas, nil,
	)
	e.consulta = service.NewConsultaService(recetaRepo, loteRepo, productoRepo, nil, 0)
	e.productos = service.NewProductoService(productoRepo, nil)
	e.proveedores = service.NewProveedorService(proveedorRepo)
	return e
}

func (e *entorno) lote(t *testing.T, id interface{}) *model.Lote {
	t.Helper()
	var l model.Lote
	require.NoError(t, e.db.Where("id = ?", id).First(&l).Error)
	return &l
}

func (e *entorno) contar(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(m).Count(&n).Error)
	return n
}
