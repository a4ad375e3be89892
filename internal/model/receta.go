package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Estados de una receta.
const (
	RecetaActiva   = "Activa"
	RecetaValidada = "Validada"
	RecetaInactiva = "Inactiva"
)

// Receta owns its ordered DetalleReceta lines; they are created, replaced
// and deleted together with it.
type Receta struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	PacienteID        uuid.UUID `gorm:"type:uuid;not null;index"`
	MedicoID          uuid.UUID `gorm:"type:uuid;not null;index"`
	Codigo            string    `gorm:"uniqueIndex;not null"`
	FechaPrescripcion time.Time `gorm:"not null"`
	Diagnostico       string    `gorm:"type:text;not null"`
	Instrucciones     *string   `gorm:"type:text"`
	Estado            string    `gorm:"type:varchar(20);not null;default:'Activa';index"`
	Validada          bool      `gorm:"not null;default:false"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Paciente *Paciente       `gorm:"foreignKey:PacienteID"`
	Medico   *Medico         `gorm:"foreignKey:MedicoID"`
	Detalles []DetalleReceta `gorm:"foreignKey:RecetaID;constraint:OnDelete:CASCADE"`
}

func (r *Receta) BeforeCreate(*gorm.DB) error {
	asignarID(&r.ID)
	return nil
}

// DetalleReceta is one prescribed product within a Receta.
type DetalleReceta struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	RecetaID          uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductoID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Orden             int       `gorm:"not null"`
	Dosis             string    `gorm:"not null"`
	Frecuencia        string    `gorm:"not null"`
	ViaAdministracion *string
	Duracion          *string
	CantidadPrescrita int     `gorm:"not null;check:chk_detalles_cantidad,cantidad_prescrita > 0"`
	Observaciones     *string `gorm:"type:text"`
	Posologia         *string `gorm:"type:text"`
	CreatedAt         time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (DetalleReceta) TableName() string { return "detalles_receta" }

func (d *DetalleReceta) BeforeCreate(*gorm.DB) error {
	asignarID(&d.ID)
	return nil
}
