package dto

import "time"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type DetalleRecetaRequest struct {
	ProductoID        string  `json:"producto_id"        validate:"required,uuid"`
	Dosis             string  `json:"dosis"              validate:"required,max=60"`
	Frecuencia        string  `json:"frecuencia"         validate:"required,max=60"`
	ViaAdministracion *string `json:"via_administracion" validate:"omitempty,max=60"`
	Duracion          *string `json:"duracion"           validate:"omitempty,max=60"`
	Cantidad          int     `json:"cantidad"           validate:"required,gt=0"`
	Observaciones     *string `json:"observaciones"`
	Posologia         *string `json:"posologia"`
}

type CrearRecetaRequest struct {
	PacienteID    string                 `json:"paciente_id"   validate:"required,uuid"`
	MedicoID      string                 `json:"medico_id"     validate:"required,uuid"`
	Codigo        string                 `json:"codigo"        validate:"required,max=40"`
	Diagnostico   string                 `json:"diagnostico"   validate:"required"`
	Instrucciones *string                `json:"instrucciones"`
	Detalles      []DetalleRecetaRequest `json:"detalles"      validate:"required,min=1,dive"`
}

// ActualizarRecetaRequest is a partial update. A nil Detalles leaves the lines
// untouched; a non-nil one replaces them all.
type ActualizarRecetaRequest struct {
	Diagnostico   *string                `json:"diagnostico"   validate:"omitempty,min=1"`
	Instrucciones *string                `json:"instrucciones"`
	Estado        *string                `json:"estado"        validate:"omitempty,oneof=Activa Validada Inactiva"`
	Detalles      []DetalleRecetaRequest `json:"detalles"      validate:"omitempty,dive"`
}

type ReemplazarDetallesRequest struct {
	Detalles []DetalleRecetaRequest `json:"detalles" validate:"required,min=1,dive"`
}

type CambiarEstadoRecetaRequest struct {
	Estado string `json:"estado" validate:"required,oneof=Activa Validada Inactiva"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type RecetaFilter struct {
	PacienteID string `form:"paciente_id" validate:"omitempty,uuid"`
	MedicoID   string `form:"medico_id"   validate:"omitempty,uuid"`
	Estado     string `form:"estado"      validate:"omitempty,oneof=Activa Validada Inactiva"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DetalleRecetaResponse struct {
	ID                string           `json:"id"`
	ProductoID        string           `json:"producto_id"`
	Orden             int              `json:"orden"`
	Dosis             string           `json:"dosis"`
	Frecuencia        string           `json:"frecuencia"`
	ViaAdministracion *string          `json:"via_administracion"`
	Duracion          *string          `json:"duracion"`
	Cantidad          int              `json:"cantidad"`
	Observaciones     *string          `json:"observaciones"`
	Posologia         *string          `json:"posologia"`
	Producto          *ProductoResumen `json:"producto,omitempty"`
}

type RecetaResponse struct {
	ID                string                  `json:"id"`
	PacienteID        string                  `json:"paciente_id"`
	MedicoID          string                  `json:"medico_id"`
	Codigo            string                  `json:"codigo"`
	FechaPrescripcion time.Time               `json:"fecha_prescripcion"`
	Diagnostico       string                  `json:"diagnostico"`
	Instrucciones     *string                 `json:"instrucciones"`
	Estado            string                  `json:"estado"`
	Validada          bool                    `json:"validada"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	Detalles          []DetalleRecetaResponse `json:"detalles"`
}

type RecetaListResponse struct {
	Data  []RecetaResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// RecetaDetalleResponse is the prescription-with-patient-doctor-and-lines
// projection.
type RecetaDetalleResponse struct {
	RecetaResponse
	Paciente *PacienteResumen `json:"paciente"`
	Medico   *MedicoResumen   `json:"medico"`
}

type PacienteResumen struct {
	ID              string  `json:"id"`
	Nombre          string  `json:"nombre"`
	TipoDocumento   string  `json:"tipo_documento"`
	NumeroDocumento string  `json:"numero_documento"`
	TipoSangre      *string `json:"tipo_sangre"`
	Alergias        *string `json:"alergias"`
}

type MedicoResumen struct {
	ID                    string  `json:"id"`
	Nombre                *string `json:"nombre"`
	EspecialidadPrincipal string  `json:"especialidad_principal"`
	RegistroMedico        string  `json:"registro_medico"`
}
