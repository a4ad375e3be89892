package repository

import (
	"context"

	"farmacia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PacienteRepository interface {
	Create(ctx context.Context, p *model.Paciente) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Paciente, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type pacienteRepo struct{ db *gorm.DB }

func NewPacienteRepository(db *gorm.DB) PacienteRepository { return &pacienteRepo{db: db} }

func (r *pacienteRepo) Create(ctx context.Context, p *model.Paciente) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *pacienteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Paciente, error) {
	var p model.Paciente
	err := r.db.WithContext(ctx).Preload("Usuario").Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *pacienteRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Paciente{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
