package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Proveedor represents a supplier that delivers lotes.
type Proveedor struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre         string    `gorm:"uniqueIndex;not null"`
	ContactoNombre *string
	Telefono       *string
	Email          *string
	Direccion      *string
	Activo         bool `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (Proveedor) TableName() string { return "proveedores" }

func (p *Proveedor) BeforeCreate(*gorm.DB) error {
	asignarID(&p.ID)
	return nil
}
