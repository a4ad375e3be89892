package repository

import (
	"context"

	"farmacia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DispensacionRepository interface {
	CreateTx(tx *gorm.DB, d *model.Dispensacion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Dispensacion, error)
	// FindComprobante preloads the line with its producto and the lote.
	FindComprobante(ctx context.Context, id uuid.UUID) (*model.Dispensacion, error)
	ListByReceta(ctx context.Context, recetaID uuid.UUID) ([]model.Dispensacion, error)
}

type dispensacionRepo struct{ db *gorm.DB }

func NewDispensacionRepository(db *gorm.DB) DispensacionRepository {
	return &dispensacionRepo{db: db}
}

func (r *dispensacionRepo) CreateTx(tx *gorm.DB, d *model.Dispensacion) error {
	return tx.Omit(clause.Associations).Create(d).Error
}

func (r *dispensacionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Dispensacion, error) {
	var d model.Dispensacion
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	return &d, err
}

func (r *dispensacionRepo) FindComprobante(ctx context.Context, id uuid.UUID) (*model.Dispensacion, error) {
	var d model.Dispensacion
	err := r.db.WithContext(ctx).
		Preload("DetalleReceta.Producto").
		Preload("Lote").
		Where("id = ?", id).
		First(&d).Error
	return &d, err
}

func (r *dispensacionRepo) ListByReceta(ctx context.Context, recetaID uuid.UUID) ([]model.Dispensacion, error) {
	var ds []model.Dispensacion
	err := r.db.WithContext(ctx).
		Joins("JOIN detalles_receta ON detalles_receta.id = dispensaciones.detalle_receta_id").
		Where("detalles_receta.receta_id = ?", recetaID).
		Order("dispensaciones.fecha_dispensacion ASC").
		Find(&ds).Error
	return ds, err
}
