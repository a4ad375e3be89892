package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// LoginRequest accepts either the document number or the email as identifier.
type LoginRequest struct {
	Identificador string `json:"identificador" validate:"required,min=1"`
	Password      string `json:"password"      validate:"required,min=4"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UsuarioResponse struct {
	ID              string  `json:"id"`
	Rol             string  `json:"rol"`
	TipoDocumento   string  `json:"tipo_documento"`
	NumeroDocumento string  `json:"numero_documento"`
	Nombre          string  `json:"nombre"`
	Email           *string `json:"email"`
	Activo          bool    `json:"activo"`
}

type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int             `json:"expires_in"` // seconds
	User        UsuarioResponse `json:"user"`
}
