package repository

import (
	"context"

	"farmacia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoLoteFilter defines filters for listing batch movements.
type MovimientoLoteFilter struct {
	LoteID *uuid.UUID
	Tipo   string
	Page   int
	Limit  int
}

type MovimientoLoteRepository interface {
	CreateTx(tx *gorm.DB, m *model.MovimientoLote) error
	List(ctx context.Context, filter MovimientoLoteFilter) ([]model.MovimientoLote, int64, error)
}

type movimientoLoteRepo struct{ db *gorm.DB }

func NewMovimientoLoteRepository(db *gorm.DB) MovimientoLoteRepository {
	return &movimientoLoteRepo{db: db}
}

func (r *movimientoLoteRepo) CreateTx(tx *gorm.DB, m *model.MovimientoLote) error {
	return tx.Create(m).Error
}

func (r *movimientoLoteRepo) List(ctx context.Context, filter MovimientoLoteFilter) ([]model.MovimientoLote, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoLote{})
	if filter.LoteID != nil {
		q = q.Where("lote_id = ?", *filter.LoteID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := paginar(filter.Page, filter.Limit, 100)
	var movimientos []model.MovimientoLote
	err := q.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&movimientos).Error
	return movimientos, total, err
}
