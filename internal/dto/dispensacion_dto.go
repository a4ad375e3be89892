package dto

import "time"

type DispensarRequest struct {
	DetalleRecetaID string  `json:"detalle_receta_id" validate:"required,uuid"`
	LoteID          string  `json:"lote_id"           validate:"required,uuid"`
	Cantidad        int     `json:"cantidad"          validate:"required,gt=0"`
	DispensadoPor   string  `json:"dispensado_por"    validate:"required,uuid"`
	Observaciones   *string `json:"observaciones"`
}

type DispensacionResponse struct {
	ID                string    `json:"id"`
	DetalleRecetaID   string    `json:"detalle_receta_id"`
	LoteID            string    `json:"lote_id"`
	Cantidad          int       `json:"cantidad"`
	FechaDispensacion time.Time `json:"fecha_dispensacion"`
	DispensadoPor     string    `json:"dispensado_por"`
	Observaciones     *string   `json:"observaciones"`
}

// DispensarResponse returns the new record plus the batch after the debit.
type DispensarResponse struct {
	Dispensacion DispensacionResponse `json:"dispensacion"`
	Lote         LoteResponse         `json:"lote"`
}
