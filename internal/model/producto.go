package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Producto is a catalog medication. Stock lives in its Lotes, never here.
type Producto struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey"`
	LaboratorioID      *uuid.UUID `gorm:"type:uuid;index"`
	Codigo             string     `gorm:"uniqueIndex;not null"`
	NombreComercial    string     `gorm:"index;not null"`
	NombreGenerico     string     `gorm:"not null"`
	PrincipioActivo    *string
	Concentracion      *string
	FormaFarmaceutica  *string
	ViaAdministracion  *string
	Presentacion       *string
	Contraindicaciones *string `gorm:"type:text"`
	EfectosSecundarios *string `gorm:"type:text"`
	RequiereFormula    bool    `gorm:"not null;default:false"`
	Activo             bool    `gorm:"not null;default:true"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Laboratorio *Laboratorio `gorm:"foreignKey:LaboratorioID"`
}

func (p *Producto) BeforeCreate(*gorm.DB) error {
	asignarID(&p.ID)
	return nil
}
