package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles recognised by the API. Pacientes own a Usuario row but no staff
// route admits them.
const (
	RolAdministrador = "administrador"
	RolFarmaceutico  = "farmaceutico"
	RolMedico        = "medico"
	RolPaciente      = "paciente"
)

// Usuario stores system users with role-based access.
// Pacientes and medicos hang off a Usuario through a 1:1 reference.
type Usuario struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Rol             string    `gorm:"type:varchar(20);not null"`
	TipoDocumento   string    `gorm:"type:varchar(10);not null"`
	NumeroDocumento string    `gorm:"uniqueIndex;not null"`
	PrimerNombre    string    `gorm:"not null"`
	SegundoNombre   *string
	PrimerApellido  string `gorm:"not null"`
	SegundoApellido *string
	Email           *string `gorm:"uniqueIndex"`
	Telefono        *string
	FechaNacimiento *time.Time `gorm:"type:date"`
	Genero          *string
	Direccion       *string
	Ciudad          *string
	PasswordHash    string `gorm:"not null"`
	Activo          bool   `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (u *Usuario) BeforeCreate(*gorm.DB) error {
	asignarID(&u.ID)
	return nil
}

// NombreCompleto joins the non-empty name parts.
func (u Usuario) NombreCompleto() string {
	partes := []string{u.PrimerNombre}
	if u.SegundoNombre != nil && *u.SegundoNombre != "" {
		partes = append(partes, *u.SegundoNombre)
	}
	partes = append(partes, u.PrimerApellido)
	if u.SegundoApellido != nil && *u.SegundoApellido != "" {
		partes = append(partes, *u.SegundoApellido)
	}
	return strings.Join(partes, " ")
}
