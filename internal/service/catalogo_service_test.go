package service_test

import (
	"testing"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"
	"farmacia/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductos(t *testing.T) {
	e := nuevoEntorno(t)
	lab := testutil.SeedLaboratorio(t, e.db, "Genfar")
	labID := lab.ID.String()

	creado, err := e.productos.Crear(ctx, dto.CrearProductoRequest{
		Codigo:          "AMX500",
		NombreComercial: "Amoxil",
		NombreGenerico:  "amoxicilina",
		LaboratorioID:   &labID,
		RequiereFormula: true,
	})
	require.NoError(t, err)
	id := uuid.MustParse(creado.ID)

	t.Run("codigo duplicado", func(t *testing.T) {
		_, err := e.productos.Crear(ctx, dto.CrearProductoRequest{Codigo: "AMX500", NombreComercial: "Otro", NombreGenerico: "otro"})
		assert.ErrorIs(t, err, apierror.ErrConflict)
	})

	t.Run("laboratorio inexistente", func(t *testing.T) {
		otro := uuid.NewString()
		_, err := e.productos.Crear(ctx, dto.CrearProductoRequest{Codigo: "X1", NombreComercial: "X", NombreGenerico: "x", LaboratorioID: &otro})
		assert.ErrorIs(t, err, apierror.ErrValidation)
	})

	t.Run("actualizar parcial", func(t *testing.T) {
		nombre := "Amoxil Forte"
		resp, err := e.productos.Actualizar(ctx, id, dto.ActualizarProductoRequest{NombreComercial: &nombre})

		require.NoError(t, err)
		assert.Equal(t, "Amoxil Forte", resp.NombreComercial)
		assert.Equal(t, "amoxicilina", resp.NombreGenerico)
		assert.True(t, resp.RequiereFormula)
	})

	t.Run("buscar", func(t *testing.T) {
		resp, err := e.productos.Listar(ctx, dto.ProductoFilter{Buscar: "forte"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.Total)
	})

	t.Run("desactivar", func(t *testing.T) {
		require.NoError(t, e.productos.Desactivar(ctx, id))

		resp, err := e.productos.Listar(ctx, dto.ProductoFilter{})
		require.NoError(t, err)
		assert.Empty(t, resp.Data)

		assert.ErrorIs(t, e.productos.Desactivar(ctx, uuid.New()), apierror.ErrNotFound)
	})
}

func TestProveedores(t *testing.T) {
	e := nuevoEntorno(t)

	creado, err := e.proveedores.Crear(ctx, dto.CrearProveedorRequest{Nombre: "Drogueria Central"})
	require.NoError(t, err)
	_, err = e.proveedores.Crear(ctx, dto.CrearProveedorRequest{Nombre: "Drogueria Central"})
	assert.ErrorIs(t, err, apierror.ErrConflict)

	id := uuid.MustParse(creado.ID)
	require.NoError(t, e.proveedores.Desactivar(ctx, id))

	activos, err := e.proveedores.Listar(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, activos)

	todos, err := e.proveedores.Listar(ctx, true)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.False(t, todos[0].Activo)

	_, err = e.proveedores.ObtenerPorID(ctx, uuid.New())
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}
