package repository

import (
	"context"
	"strings"
	"time"

	"farmacia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoteFilter defines filters for the general batch listing.
type LoteFilter struct {
	Buscar string
	Estado string
	Page   int
	Limit  int
}

// RangoFechas bounds a date column, both ends inclusive.
type RangoFechas struct {
	Desde time.Time
	Hasta time.Time
}

// LoteRepository is the only writer of lotes.cantidad_disponible and
// lotes.estado. Services depend on this interface, not on the GORM type.
type LoteRepository interface {
	Create(ctx context.Context, l *model.Lote) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Lote, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Lote, error)
	// FindByIDForUpdateTx reads the row under SELECT ... FOR UPDATE.
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Lote, error)
	// FindDetalle preloads Producto and Proveedor.
	FindDetalle(ctx context.Context, id uuid.UUID) (*model.Lote, error)
	List(ctx context.Context, filter LoteFilter) ([]model.Lote, int64, error)
	// FindDispensables returns Activo batches with stock for a product,
	// nearest expiry first (FEFO). A non-nil vence keeps only the batches
	// whose fecha_vencimiento falls inside it.
	FindDispensables(ctx context.Context, productoID uuid.UUID, vence *RangoFechas) ([]model.Lote, error)
	// FindPorVencer returns Activo batches expiring within [desde, hasta].
	FindPorVencer(ctx context.Context, desde, hasta time.Time) ([]model.Lote, error)
	UpdateCampos(ctx context.Context, id uuid.UUID, campos map[string]interface{}) error
	SetEstado(ctx context.Context, id uuid.UUID, estado string) (int64, error)

	// DebitarTx subtracts cantidad in a single conditional UPDATE. It touches
	// the row only when the batch is not Inactivo and has enough stock, and
	// derives estado in the same statement. Zero rows affected means the
	// precondition failed; the caller re-reads to find out why.
	DebitarTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int64, error)
	// AcreditarTx adds cantidad as long as the result stays within
	// cantidad_recibida. Inactivo is preserved; any other estado becomes Activo.
	AcreditarTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int64, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type loteRepo struct{ db *gorm.DB }

func NewLoteRepository(db *gorm.DB) LoteRepository { return &loteRepo{db: db} }

func (r *loteRepo) DB() *gorm.DB { return r.db }

func (r *loteRepo) Create(ctx context.Context, l *model.Lote) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(l).Error
}

func (r *loteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Lote, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *loteRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	err := tx.Where("id = ?", id).First(&l).Error
	return &l, err
}

func (r *loteRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&l).Error
	return &l, err
}

func (r *loteRepo) FindDetalle(ctx context.Context, id uuid.UUID) (*model.Lote, error) {
	var l model.Lote
	err := r.db.WithContext(ctx).
		Preload("Producto").
		Preload("Proveedor").
		Where("id = ?", id).
		First(&l).Error
	return &l, err
}

func (r *loteRepo) List(ctx context.Context, filter LoteFilter) ([]model.Lote, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Lote{})
	if filter.Estado != "" {
		q = q.Where("lotes.estado = ?", filter.Estado)
	}
	if filter.Buscar != "" {
		patron := "%" + strings.ToLower(filter.Buscar) + "%"
		q = q.Joins("JOIN productos ON productos.id = lotes.producto_id").
			Where("LOWER(lotes.numero_lote) LIKE ? OR LOWER(productos.nombre_comercial) LIKE ? OR LOWER(productos.nombre_generico) LIKE ?",
				patron, patron, patron)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit, 50)
	var lotes []model.Lote
	err := q.Order("lotes.fecha_vencimiento ASC").Order("lotes.numero_lote ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&lotes).Error
	return lotes, total, err
}

func (r *loteRepo) FindDispensables(ctx context.Context, productoID uuid.UUID, vence *RangoFechas) ([]model.Lote, error) {
	var lotes []model.Lote
	q := r.db.WithContext(ctx).
		Where("producto_id = ? AND estado = ? AND cantidad_disponible >= 1", productoID, model.LoteActivo)
	if vence != nil {
		q = q.Where("fecha_vencimiento >= ? AND fecha_vencimiento <= ?", vence.Desde, vence.Hasta)
	}
	err := q.Order("fecha_vencimiento ASC").
		Order("created_at ASC").
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) FindPorVencer(ctx context.Context, desde, hasta time.Time) ([]model.Lote, error) {
	var lotes []model.Lote
	err := r.db.WithContext(ctx).
		Where("estado = ? AND fecha_vencimiento >= ? AND fecha_vencimiento <= ?", model.LoteActivo, desde, hasta).
		Order("fecha_vencimiento ASC").
		Order("numero_lote ASC").
		Find(&lotes).Error
	return lotes, err
}

func (r *loteRepo) UpdateCampos(ctx context.Context, id uuid.UUID, campos map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Lote{}).Where("id = ?", id).Updates(campos).Error
}

func (r *loteRepo) SetEstado(ctx context.Context, id uuid.UUID, estado string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Lote{}).Where("id = ?", id).Update("estado", estado)
	return res.RowsAffected, res.Error
}

func (r *loteRepo) DebitarTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int64, error) {
	res := tx.Model(&model.Lote{}).
		Where("id = ? AND estado <> ? AND cantidad_disponible >= ?", id, model.LoteInactivo, cantidad).
		Updates(map[string]interface{}{
			"cantidad_disponible": gorm.Expr("cantidad_disponible - ?", cantidad),
			"estado": gorm.Expr("CASE WHEN cantidad_disponible - ? = 0 THEN ? ELSE ? END",
				cantidad, model.LoteAgotado, model.LoteActivo),
		})
	return res.RowsAffected, res.Error
}

func (r *loteRepo) AcreditarTx(tx *gorm.DB, id uuid.UUID, cantidad int) (int64, error) {
	res := tx.Model(&model.Lote{}).
		Where("id = ? AND cantidad_disponible + ? <= cantidad_recibida", id, cantidad).
		Updates(map[string]interface{}{
			"cantidad_disponible": gorm.Expr("cantidad_disponible + ?", cantidad),
			"estado": gorm.Expr("CASE WHEN estado = ? THEN estado ELSE ? END",
				model.LoteInactivo, model.LoteActivo),
		})
	return res.RowsAffected, res.Error
}

// paginar normalises page/limit, falling back to def when limit is unset.
func paginar(page, limit, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = def
	}
	return page, limit
}
