package repository

import (
	"context"
	"strings"

	"farmacia/internal/dto"
	"farmacia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via mocks.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	// FindDetalle preloads the Laboratorio.
	FindDetalle(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	// FindByIDs returns the products among ids that exist (any activo state).
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Producto, error)
	List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	UpdateCampos(ctx context.Context, id uuid.UUID, campos map[string]interface{}) error
	SoftDelete(ctx context.Context, id uuid.UUID) (int64, error)
	ExistsLaboratorio(ctx context.Context, id uuid.UUID) (bool, error)
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error
}

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *productoRepo) FindDetalle(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Preload("Laboratorio").Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *productoRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Producto, error) {
	var productos []model.Producto
	if len(ids) == 0 {
		return productos, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&productos).Error
	return productos, err
}

func (r *productoRepo) List(ctx context.Context, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Producto{})

	// Activo filter: "false" = inactivos, "all" = todos, anything else = activos (default)
	switch filter.Activo {
	case "false":
		q = q.Where("activo = ?", false)
	case "all":
		// no filter
	default:
		q = q.Where("activo = ?", true)
	}

	if filter.Buscar != "" {
		patron := "%" + strings.ToLower(filter.Buscar) + "%"
		q = q.Where("LOWER(codigo) LIKE ? OR LOWER(nombre_comercial) LIKE ? OR LOWER(nombre_generico) LIKE ?",
			patron, patron, patron)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit, 20)
	var productos []model.Producto
	err := q.Order("nombre_comercial ASC").Offset((page - 1) * limit).Limit(limit).Find(&productos).Error
	return productos, total, err
}

func (r *productoRepo) UpdateCampos(ctx context.Context, id uuid.UUID, campos map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ?", id).Updates(campos).Error
}

func (r *productoRepo) SoftDelete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ?", id).Update("activo", false)
	return res.RowsAffected, res.Error
}

func (r *productoRepo) ExistsLaboratorio(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Laboratorio{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
