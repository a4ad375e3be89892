package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Laboratorio is the manufacturer of a Producto.
type Laboratorio struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Nombre    string    `gorm:"uniqueIndex;not null"`
	Direccion *string
	Telefono  *string
	Email     *string
	Activo    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
}

func (l *Laboratorio) BeforeCreate(*gorm.DB) error {
	asignarID(&l.ID)
	return nil
}
