package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dispensacion records medication released from a Lote against a
// DetalleReceta. Both references are non-owning.
type Dispensacion struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	DetalleRecetaID    uuid.UUID `gorm:"type:uuid;not null;index"`
	LoteID             uuid.UUID `gorm:"type:uuid;not null;index"`
	CantidadDispensada int       `gorm:"not null;check:chk_dispensaciones_cantidad,cantidad_dispensada > 0"`
	FechaDispensacion  time.Time `gorm:"not null"`
	DispensadoPor      uuid.UUID `gorm:"type:uuid;not null"`
	Observaciones      *string   `gorm:"type:text"`
	CreatedAt          time.Time

	DetalleReceta *DetalleReceta `gorm:"foreignKey:DetalleRecetaID"`
	Lote          *Lote          `gorm:"foreignKey:LoteID"`
}

func (Dispensacion) TableName() string { return "dispensaciones" }

func (d *Dispensacion) BeforeCreate(*gorm.DB) error {
	asignarID(&d.ID)
	return nil
}
