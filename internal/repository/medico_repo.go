package repository

import (
	"context"

	"farmacia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MedicoRepository interface {
	Create(ctx context.Context, m *model.Medico) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Medico, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type medicoRepo struct{ db *gorm.DB }

func NewMedicoRepository(db *gorm.DB) MedicoRepository { return &medicoRepo{db: db} }

func (r *medicoRepo) Create(ctx context.Context, m *model.Medico) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *medicoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Medico, error) {
	var m model.Medico
	err := r.db.WithContext(ctx).Preload("Usuario").Where("id = ?", id).First(&m).Error
	return &m, err
}

func (r *medicoRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Medico{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
