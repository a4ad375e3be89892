// Package testutil builds throwaway SQLite databases with the full schema
// and seeds the rows most service tests need.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"farmacia/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Modelos lists every table in creation order.
var Modelos = []interface{}{
	&model.Usuario{},
	&model.Paciente{},
	&model.Medico{},
	&model.Laboratorio{},
	&model.Proveedor{},
	&model.Producto{},
	&model.Lote{},
	&model.MovimientoLote{},
	&model.Receta{},
	&model.DetalleReceta{},
	&model.Dispensacion{},
}

// NewDB opens a private in-memory database. A single connection serializes
// transactions, which stands in for the row locks Postgres would take.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Modelos...))
	return db
}

// Fecha parses an AAAA-MM-DD literal as UTC midnight.
func Fecha(t *testing.T, s string) time.Time {
	t.Helper()
	f, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return f
}

// ── Seeds ────────────────────────────────────────────────────────────────────

func SeedUsuario(t *testing.T, db *gorm.DB, rol, nombre string) *model.Usuario {
	t.Helper()
	u := &model.Usuario{
		Rol:             rol,
		TipoDocumento:   "CC",
		NumeroDocumento: uuid.NewString()[:12],
		PrimerNombre:    nombre,
		PrimerApellido:  "Prueba",
		PasswordHash:    "x",
		Activo:          true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func SeedPaciente(t *testing.T, db *gorm.DB) *model.Paciente {
	t.Helper()
	u := SeedUsuario(t, db, model.RolPaciente, "Ana")
	p := &model.Paciente{UsuarioID: u.ID}
	require.NoError(t, db.Create(p).Error)
	p.Usuario = u
	return p
}

func SeedMedico(t *testing.T, db *gorm.DB) *model.Medico {
	t.Helper()
	u := SeedUsuario(t, db, model.RolMedico, "Luis")
	m := &model.Medico{
		UsuarioID:             &u.ID,
		EspecialidadPrincipal: "Medicina general",
		RegistroMedico:        "RM-" + uuid.NewString()[:8],
		Activo:                true,
	}
	require.NoError(t, db.Create(m).Error)
	m.Usuario = u
	return m
}

func SeedLaboratorio(t *testing.T, db *gorm.DB, nombre string) *model.Laboratorio {
	t.Helper()
	l := &model.Laboratorio{Nombre: nombre, Activo: true}
	require.NoError(t, db.Create(l).Error)
	return l
}

func SeedProveedor(t *testing.T, db *gorm.DB, nombre string) *model.Proveedor {
	t.Helper()
	p := &model.Proveedor{Nombre: nombre, Activo: true}
	require.NoError(t, db.Create(p).Error)
	return p
}

func SeedProducto(t *testing.T, db *gorm.DB, codigo string) *model.Producto {
	t.Helper()
	p := &model.Producto{
		Codigo:          codigo,
		NombreComercial: "Producto " + codigo,
		NombreGenerico:  "generico " + codigo,
		Activo:          true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// LoteSeed describes a batch to insert directly, bypassing the ledger.
type LoteSeed struct {
	ProductoID       uuid.UUID
	ProveedorID      *uuid.UUID
	NumeroLote       string
	FechaVencimiento time.Time
	Recibida         int
	Disponible       int
	Estado           string // derived from Disponible when empty
}

func SeedLote(t *testing.T, db *gorm.DB, s LoteSeed) *model.Lote {
	t.Helper()
	estado := s.Estado
	if estado == "" {
		estado = model.EstadoPorCantidad(s.Disponible)
	}
	l := &model.Lote{
		ProductoID:         s.ProductoID,
		ProveedorID:        s.ProveedorID,
		NumeroLote:         s.NumeroLote,
		FechaFabricacion:   s.FechaVencimiento.AddDate(-2, 0, 0),
		FechaVencimiento:   s.FechaVencimiento,
		CantidadRecibida:   s.Recibida,
		CantidadDisponible: s.Disponible,
		PrecioCompra:       decimal.NewFromInt(1000),
		PrecioVenta:        decimal.NewFromInt(1500),
		Estado:             estado,
	}
	require.NoError(t, db.Create(l).Error)
	return l
}

// SeedReceta inserts an Activa prescription with one line per producto.
func SeedReceta(t *testing.T, db *gorm.DB, pacienteID, medicoID uuid.UUID, codigo string, productos ...uuid.UUID) *model.Receta {
	t.Helper()
	r := &model.Receta{
		PacienteID:        pacienteID,
		MedicoID:          medicoID,
		Codigo:            codigo,
		FechaPrescripcion: time.Now().UTC(),
		Diagnostico:       "Diagnóstico de prueba",
		Estado:            model.RecetaActiva,
	}
	require.NoError(t, db.Omit("Detalles").Create(r).Error)
	for i, productoID := range productos {
		d := model.DetalleReceta{
			RecetaID:          r.ID,
			ProductoID:        productoID,
			Orden:             i + 1,
			Dosis:             "500mg",
			Frecuencia:        "cada 8 horas",
			CantidadPrescrita: 10,
		}
		require.NoError(t, db.Create(&d).Error)
		r.Detalles = append(r.Detalles, d)
	}
	return r
}
