package repository

import (
	"context"

	"farmacia/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	// FindByIdentificador matches the document number or the email.
	FindByIdentificador(ctx context.Context, identificador string) (*model.Usuario, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Usuario, error)
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *usuarioRepo) FindByIdentificador(ctx context.Context, identificador string) (*model.Usuario, error) {
	var u model.Usuario
	// Accept login by document number OR email (case-insensitive email match)
	err := r.db.WithContext(ctx).
		Where("numero_documento = ? OR LOWER(email) = LOWER(?)", identificador, identificador).
		First(&u).Error
	return &u, err
}

func (r *usuarioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	var u model.Usuario
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	return &u, err
}

func (r *usuarioRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Usuario, error) {
	var users []model.Usuario
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}
