package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tipos de movimiento de inventario.
const (
	MovimientoDispensacion  = "dispensacion"
	MovimientoAjusteEntrada = "ajuste_entrada"
	MovimientoAjusteSalida  = "ajuste_salida"
)

// MovimientoLote registra cada débito o crédito aplicado a un lote.
type MovimientoLote struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	LoteID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Tipo          string    `gorm:"type:varchar(30);not null"`
	Cantidad      int       `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"` // dispensacion_id when applicable
	CreatedAt     time.Time
}

// TableName overrides GORM's default pluralization (movimiento_lotes → movimientos_lote).
func (MovimientoLote) TableName() string { return "movimientos_lote" }

func (m *MovimientoLote) BeforeCreate(*gorm.DB) error {
	asignarID(&m.ID)
	return nil
}
