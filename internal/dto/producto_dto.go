package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Codigo             string  `json:"codigo"              validate:"required,min=2,max=40"`
	NombreComercial    string  `json:"nombre_comercial"    validate:"required,min=2,max=150"`
	NombreGenerico     string  `json:"nombre_generico"     validate:"required,min=2,max=150"`
	LaboratorioID      *string `json:"laboratorio_id"      validate:"omitempty,uuid"`
	PrincipioActivo    *string `json:"principio_activo"    validate:"omitempty,max=150"`
	Concentracion      *string `json:"concentracion"       validate:"omitempty,max=60"`
	FormaFarmaceutica  *string `json:"forma_farmaceutica"  validate:"omitempty,max=60"`
	ViaAdministracion  *string `json:"via_administracion"  validate:"omitempty,max=60"`
	Presentacion       *string `json:"presentacion"        validate:"omitempty,max=120"`
	Contraindicaciones *string `json:"contraindicaciones"`
	EfectosSecundarios *string `json:"efectos_secundarios"`
	RequiereFormula    bool    `json:"requiere_formula"`
}

// ActualizarProductoRequest lists every mutable product field; codigo and
// activo are not among them.
type ActualizarProductoRequest struct {
	NombreComercial    *string `json:"nombre_comercial"    validate:"omitempty,min=2,max=150"`
	NombreGenerico     *string `json:"nombre_generico"     validate:"omitempty,min=2,max=150"`
	LaboratorioID      *string `json:"laboratorio_id"      validate:"omitempty,uuid"`
	PrincipioActivo    *string `json:"principio_activo"    validate:"omitempty,max=150"`
	Concentracion      *string `json:"concentracion"       validate:"omitempty,max=60"`
	FormaFarmaceutica  *string `json:"forma_farmaceutica"  validate:"omitempty,max=60"`
	ViaAdministracion  *string `json:"via_administracion"  validate:"omitempty,max=60"`
	Presentacion       *string `json:"presentacion"        validate:"omitempty,max=120"`
	Contraindicaciones *string `json:"contraindicaciones"`
	EfectosSecundarios *string `json:"efectos_secundarios"`
	RequiereFormula    *bool   `json:"requiere_formula"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Buscar string `form:"buscar"`
	Activo string `form:"activo"` // "true" (default) | "false" | "all"
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID                 string    `json:"id"`
	LaboratorioID      *string   `json:"laboratorio_id"`
	Codigo             string    `json:"codigo"`
	NombreComercial    string    `json:"nombre_comercial"`
	NombreGenerico     string    `json:"nombre_generico"`
	PrincipioActivo    *string   `json:"principio_activo"`
	Concentracion      *string   `json:"concentracion"`
	FormaFarmaceutica  *string   `json:"forma_farmaceutica"`
	ViaAdministracion  *string   `json:"via_administracion"`
	Presentacion       *string   `json:"presentacion"`
	Contraindicaciones *string   `json:"contraindicaciones"`
	EfectosSecundarios *string   `json:"efectos_secundarios"`
	RequiereFormula    bool      `json:"requiere_formula"`
	Activo             bool      `json:"activo"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type ProductoListResponse struct {
	Data  []ProductoResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

// ProductoDetalleResponse is the product-with-laboratory projection.
type ProductoDetalleResponse struct {
	ProductoResponse
	Laboratorio *LaboratorioResumen `json:"laboratorio"`
}

// ProductoResumen is the product slice embedded in other projections.
type ProductoResumen struct {
	ID                string  `json:"id"`
	Codigo            string  `json:"codigo"`
	NombreComercial   string  `json:"nombre_comercial"`
	NombreGenerico    string  `json:"nombre_generico"`
	Concentracion     *string `json:"concentracion"`
	FormaFarmaceutica *string `json:"forma_farmaceutica"`
	RequiereFormula   bool    `json:"requiere_formula"`
}

type LaboratorioResumen struct {
	ID       string  `json:"id"`
	Nombre   string  `json:"nombre"`
	Telefono *string `json:"telefono"`
	Email    *string `json:"email"`
}
