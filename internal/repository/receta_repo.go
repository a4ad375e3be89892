package repository

import (
	"context"

	"farmacia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecetaFilter defines filters for listing prescriptions.
type RecetaFilter struct {
	PacienteID *uuid.UUID
	MedicoID   *uuid.UUID
	Estado     string
	Page       int
	Limit      int
}

// RecetaRepository persists prescriptions and their lines. Multi-row writes
// only exist as *Tx methods: the caller owns the transaction.
type RecetaRepository interface {
	CreateTx(tx *gorm.DB, r *model.Receta) error
	CreateDetalleTx(tx *gorm.DB, d *model.DetalleReceta) error
	DeleteDetallesTx(tx *gorm.DB, recetaID uuid.UUID) error
	UpdateCamposTx(tx *gorm.DB, id uuid.UUID, campos map[string]interface{}) error

	FindByID(ctx context.Context, id uuid.UUID) (*model.Receta, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Receta, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Receta, error)
	ExistsCodigo(ctx context.Context, codigo string) (bool, error)
	// FindDetalle preloads paciente, medico (with their usuarios) and every
	// line with its producto.
	FindDetalle(ctx context.Context, id uuid.UUID) (*model.Receta, error)
	FindDetalleRecetaByIDTx(tx *gorm.DB, id uuid.UUID) (*model.DetalleReceta, error)
	List(ctx context.Context, filter RecetaFilter) ([]model.Receta, int64, error)
	CountDispensacionesTx(tx *gorm.DB, recetaID uuid.UUID) (int64, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type recetaRepo struct{ db *gorm.DB }

func NewRecetaRepository(db *gorm.DB) RecetaRepository { return &recetaRepo{db: db} }

func (r *recetaRepo) DB() *gorm.DB { return r.db }

func detallesOrdenados(db *gorm.DB) *gorm.DB { return db.Order("orden ASC") }

func (r *recetaRepo) CreateTx(tx *gorm.DB, rec *model.Receta) error {
	return tx.Omit(clause.Associations).Create(rec).Error
}

func (r *recetaRepo) CreateDetalleTx(tx *gorm.DB, d *model.DetalleReceta) error {
	return tx.Omit(clause.Associations).Create(d).Error
}

func (r *recetaRepo) DeleteDetallesTx(tx *gorm.DB, recetaID uuid.UUID) error {
	return tx.Where("receta_id = ?", recetaID).Delete(&model.DetalleReceta{}).Error
}

func (r *recetaRepo) UpdateCamposTx(tx *gorm.DB, id uuid.UUID, campos map[string]interface{}) error {
	return tx.Model(&model.Receta{}).Where("id = ?", id).Updates(campos).Error
}

func (r *recetaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Receta, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *recetaRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Receta, error) {
	var rec model.Receta
	err := tx.Preload("Detalles", detallesOrdenados).Where("id = ?", id).First(&rec).Error
	return &rec, err
}

func (r *recetaRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Receta, error) {
	var rec model.Receta
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rec).Error
	return &rec, err
}

func (r *recetaRepo) ExistsCodigo(ctx context.Context, codigo string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Receta{}).Where("codigo = ?", codigo).Count(&n).Error
	return n > 0, err
}

func (r *recetaRepo) FindDetalle(ctx context.Context, id uuid.UUID) (*model.Receta, error) {
	var rec model.Receta
	err := r.db.WithContext(ctx).
		Preload("Paciente.Usuario").
		Preload("Medico.Usuario").
		Preload("Detalles", detallesOrdenados).
		Preload("Detalles.Producto").
		Where("id = ?", id).
		First(&rec).Error
	return &rec, err
}

func (r *recetaRepo) FindDetalleRecetaByIDTx(tx *gorm.DB, id uuid.UUID) (*model.DetalleReceta, error) {
	var d model.DetalleReceta
	err := tx.Where("id = ?", id).First(&d).Error
	return &d, err
}

func (r *recetaRepo) List(ctx context.Context, filter RecetaFilter) ([]model.Receta, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Receta{})
	if filter.PacienteID != nil {
		q = q.Where("paciente_id = ?", *filter.PacienteID)
	}
	if filter.MedicoID != nil {
		q = q.Where("medico_id = ?", *filter.MedicoID)
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit, 20)
	var recetas []model.Receta
	err := q.Preload("Detalles", detallesOrdenados).
		Order("fecha_prescripcion DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&recetas).Error
	return recetas, total, err
}

func (r *recetaRepo) CountDispensacionesTx(tx *gorm.DB, recetaID uuid.UUID) (int64, error) {
	var n int64
	err := tx.Model(&model.Dispensacion{}).
		Joins("JOIN detalles_receta ON detalles_receta.id = dispensaciones.detalle_receta_id").
		Where("detalles_receta.receta_id = ?", recetaID).
		Count(&n).Error
	return n, err
}
