package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Paciente extends a Usuario with clinical data.
type Paciente struct {
	ID                         uuid.UUID `gorm:"type:uuid;primaryKey"`
	UsuarioID                  uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	TipoSangre                 *string   `gorm:"type:varchar(5)"`
	Alergias                   *string   `gorm:"type:text"`
	CondicionesMedicas         *string   `gorm:"type:text"`
	ContactoEmergenciaNombre   *string
	ContactoEmergenciaTelefono *string
	EstadoCivil                *string
	Ocupacion                  *string

	Usuario *Usuario `gorm:"foreignKey:UsuarioID"`
}

func (p *Paciente) BeforeCreate(*gorm.DB) error {
	asignarID(&p.ID)
	return nil
}
