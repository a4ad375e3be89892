package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"farmacia/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockLoteRepository(t *testing.T) (LoteRepository, *gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewLoteRepository(gormDB), gormDB, mock, mockDB
}

func TestLoteRepository_DebitarTx(t *testing.T) {
	t.Run("single conditional update guarded by stock and estado", func(t *testing.T) {
		repo, db, mock, mockDB := newMockLoteRepository(t)
		defer mockDB.Close()
		id := uuid.New()

		mock.ExpectExec(`UPDATE "lotes" SET "cantidad_disponible"=cantidad_disponible - \$1,"estado"=CASE WHEN cantidad_disponible - \$2 = 0 THEN \$3 ELSE \$4 END.*WHERE .*estado <> .*cantidad_disponible >= `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := repo.DebitarTx(db, id, 3)

		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows when the guard fails", func(t *testing.T) {
		repo, db, mock, mockDB := newMockLoteRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "lotes" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		n, err := repo.DebitarTx(db, uuid.New(), 50)

		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLoteRepository_AcreditarTx(t *testing.T) {
	repo, db, mock, mockDB := newMockLoteRepository(t)
	defer mockDB.Close()

	mock.ExpectExec(`UPDATE "lotes" SET "cantidad_disponible"=cantidad_disponible \+ \$1,"estado"=CASE WHEN estado = \$2 THEN estado ELSE \$3 END.*WHERE .*cantidad_disponible \+ \$\d+ <= cantidad_recibida`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.AcreditarTx(db, uuid.New(), 2)

	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoteRepository_FindByIDForUpdateTx(t *testing.T) {
	repo, db, mock, mockDB := newMockLoteRepository(t)
	defer mockDB.Close()
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "numero_lote", "cantidad_disponible", "cantidad_recibida", "estado"}).
		AddRow(id.String(), "L-001", 4, 10, model.LoteActivo)
	mock.ExpectQuery(`SELECT \* FROM "lotes" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(rows)

	l, err := repo.FindByIDForUpdateTx(db, id)

	require.NoError(t, err)
	assert.Equal(t, 4, l.CantidadDisponible)
	assert.Equal(t, "L-001", l.NumeroLote)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoteRepository_FindDispensables(t *testing.T) {
	repo, _, mock, mockDB := newMockLoteRepository(t)
	defer mockDB.Close()
	productoID := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "lotes" WHERE producto_id = \$1 AND estado = \$2 AND cantidad_disponible >= 1 ORDER BY fecha_vencimiento ASC,created_at ASC`).
		WithArgs(productoID, model.LoteActivo).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	lotes, err := repo.FindDispensables(context.Background(), productoID, nil)

	require.NoError(t, err)
	assert.Empty(t, lotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoteRepository_FindDispensables_RangoVencimiento(t *testing.T) {
	repo, _, mock, mockDB := newMockLoteRepository(t)
	defer mockDB.Close()
	productoID := uuid.New()
	desde := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	hasta := desde.AddDate(0, 0, 30)

	mock.ExpectQuery(`SELECT \* FROM "lotes" WHERE \(producto_id = \$1 AND estado = \$2 AND cantidad_disponible >= 1\) AND \(fecha_vencimiento >= \$3 AND fecha_vencimiento <= \$4\) ORDER BY fecha_vencimiento ASC,created_at ASC`).
		WithArgs(productoID, model.LoteActivo, desde, hasta).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindDispensables(context.Background(), productoID, &RangoFechas{Desde: desde, Hasta: hasta})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
