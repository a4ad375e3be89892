package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Medico struct {
	ID                    uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UsuarioID             *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	EspecialidadPrincipal string     `gorm:"not null"`
	RegistroMedico        string     `gorm:"uniqueIndex;not null"`
	Universidad           *string
	AnioGraduacion        *int
	Activo                bool `gorm:"not null;default:true"`

	Usuario *Usuario `gorm:"foreignKey:UsuarioID"`
}

func (m *Medico) BeforeCreate(*gorm.DB) error {
	asignarID(&m.ID)
	return nil
}
