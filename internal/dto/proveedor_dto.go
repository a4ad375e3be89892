package dto

import "time"

type CrearProveedorRequest struct {
	Nombre         string  `json:"nombre"          validate:"required,min=2,max=120"`
	ContactoNombre *string `json:"contacto_nombre" validate:"omitempty,max=120"`
	Telefono       *string `json:"telefono"        validate:"omitempty,max=30"`
	Email          *string `json:"email"           validate:"omitempty,email"`
	Direccion      *string `json:"direccion"`
}

type ProveedorResponse struct {
	ID             string    `json:"id"`
	Nombre         string    `json:"nombre"`
	ContactoNombre *string   `json:"contacto_nombre"`
	Telefono       *string   `json:"telefono"`
	Email          *string   `json:"email"`
	Direccion      *string   `json:"direccion"`
	Activo         bool      `json:"activo"`
	CreatedAt      time.Time `json:"created_at"`
}

type ProveedorResumen struct {
	ID       string  `json:"id"`
	Nombre   string  `json:"nombre"`
	Telefono *string `json:"telefono"`
	Email    *string `json:"email"`
}
