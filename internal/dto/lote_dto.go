package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormatoFecha is the wire format of calendar dates (fabricación, vencimiento).
const FormatoFecha = "2006-01-02"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RecibirLoteRequest struct {
	ProductoID         string          `json:"producto_id"         validate:"required,uuid"`
	ProveedorID        *string         `json:"proveedor_id"        validate:"omitempty,uuid"`
	NumeroLote         string          `json:"numero_lote"         validate:"required,max=60"`
	FechaFabricacion   string          `json:"fecha_fabricacion"   validate:"required,datetime=2006-01-02"`
	FechaVencimiento   string          `json:"fecha_vencimiento"   validate:"required,datetime=2006-01-02"`
	CantidadRecibida   int             `json:"cantidad_recibida"   validate:"required,gt=0"`
	CantidadDisponible *int            `json:"cantidad_disponible" validate:"omitempty,min=0"`
	PrecioCompra       decimal.Decimal `json:"precio_compra"       validate:"min=0"`
	PrecioVenta        decimal.Decimal `json:"precio_venta"        validate:"min=0"`
	Ubicacion          *string         `json:"ubicacion"           validate:"omitempty,max=80"`
}

// ActualizarLoteRequest is the allow-list of batch fields editable outside
// the ledger. Quantities and estado are deliberately absent.
type ActualizarLoteRequest struct {
	NumeroLote       *string          `json:"numero_lote"       validate:"omitempty,min=1,max=60"`
	FechaFabricacion *string          `json:"fecha_fabricacion" validate:"omitempty,datetime=2006-01-02"`
	FechaVencimiento *string          `json:"fecha_vencimiento" validate:"omitempty,datetime=2006-01-02"`
	PrecioCompra     *decimal.Decimal `json:"precio_compra"`
	PrecioVenta      *decimal.Decimal `json:"precio_venta"`
	Ubicacion        *string          `json:"ubicacion"         validate:"omitempty,max=80"`
	ProveedorID      *string          `json:"proveedor_id"      validate:"omitempty,uuid"`
}

// AjusteStockRequest is a manual correction: entrada credits, salida debits.
type AjusteStockRequest struct {
	Tipo     string `json:"tipo"     validate:"required,oneof=entrada salida"`
	Cantidad int    `json:"cantidad" validate:"required,gt=0"`
	Motivo   string `json:"motivo"   validate:"max=255"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

// LoteFilter drives GET /v1/lotes. producto_id switches to the FEFO listing
// of dispensable batches, dias_vencimiento to the expiring listing. Together
// they give the FEFO listing bounded to the expiry window.
type LoteFilter struct {
	ProductoID      string `form:"producto_id"`
	DiasVencimiento *int   `form:"dias_vencimiento"`
	Buscar          string `form:"buscar"`
	Estado          string `form:"estado" validate:"omitempty,oneof=Activo Agotado Inactivo"`
	Page            int    `form:"page,default=1"   validate:"min=1"`
	Limit           int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LoteResponse struct {
	ID                 string          `json:"id"`
	ProductoID         string          `json:"producto_id"`
	ProveedorID        *string         `json:"proveedor_id"`
	NumeroLote         string          `json:"numero_lote"`
	FechaFabricacion   string          `json:"fecha_fabricacion"`
	FechaVencimiento   string          `json:"fecha_vencimiento"`
	CantidadRecibida   int             `json:"cantidad_recibida"`
	CantidadDisponible int             `json:"cantidad_disponible"`
	PrecioCompra       decimal.Decimal `json:"precio_compra"`
	PrecioVenta        decimal.Decimal `json:"precio_venta"`
	Ubicacion          *string         `json:"ubicacion"`
	Estado             string          `json:"estado"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type LoteListResponse struct {
	Data  []LoteResponse `json:"data"`
	Total int64          `json:"total"`
}

// LoteDetalleResponse is the batch-with-product-and-supplier projection.
type LoteDetalleResponse struct {
	LoteResponse
	Producto  *ProductoResumen  `json:"producto"`
	Proveedor *ProveedorResumen `json:"proveedor"`
}

type MovimientoLoteResponse struct {
	ID            string    `json:"id"`
	LoteID        string    `json:"lote_id"`
	Tipo          string    `json:"tipo"`
	Cantidad      int       `json:"cantidad"`
	StockAnterior int       `json:"stock_anterior"`
	StockNuevo    int       `json:"stock_nuevo"`
	Motivo        string    `json:"motivo"`
	ReferenciaID  *string   `json:"referencia_id"`
	CreatedAt     time.Time `json:"created_at"`
}
