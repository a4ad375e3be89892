package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados de un lote. Agotado is derived from CantidadDisponible; Inactivo is
// an administrative state that quantity changes never overwrite.
const (
	LoteActivo   = "Activo"
	LoteAgotado  = "Agotado"
	LoteInactivo = "Inactivo"
)

// Lote is one received batch of a Producto with its own expiry and stock.
// CantidadDisponible is only written through the inventory ledger.
type Lote struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductoID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_lotes_producto_numero,priority:1"`
	ProveedorID        *uuid.UUID      `gorm:"type:uuid;index"`
	NumeroLote         string          `gorm:"not null;uniqueIndex:idx_lotes_producto_numero,priority:2"`
	FechaFabricacion   time.Time       `gorm:"type:date;not null"`
	FechaVencimiento   time.Time       `gorm:"type:date;not null;index"`
	CantidadRecibida   int             `gorm:"not null;check:chk_lotes_recibida,cantidad_recibida >= 0"`
	CantidadDisponible int             `gorm:"not null;check:chk_lotes_disponible,cantidad_disponible >= 0 AND cantidad_disponible <= cantidad_recibida"`
	PrecioCompra       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PrecioVenta        decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Ubicacion          *string
	Estado             string `gorm:"type:varchar(20);not null;default:'Activo';index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Producto  *Producto  `gorm:"foreignKey:ProductoID"`
	Proveedor *Proveedor `gorm:"foreignKey:ProveedorID"`
}

func (l *Lote) BeforeCreate(*gorm.DB) error {
	asignarID(&l.ID)
	return nil
}

// EstadoPorCantidad returns the status a non-Inactivo lote must carry for
// the given available quantity.
func EstadoPorCantidad(disponible int) string {
	if disponible == 0 {
		return LoteAgotado
	}
	return LoteActivo
}
