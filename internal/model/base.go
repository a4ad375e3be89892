package model

import "github.com/google/uuid"

// asignarID sets a fresh UUID when the primary key is still zero.
func asignarID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
