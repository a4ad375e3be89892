package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_ComparaPorKind(t *testing.T) {
	err := fmt.Errorf("dispensar: %w", InsufficientStock("stock insuficiente en el lote L1"))

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindInsufficientStock, KindOf(err))
}

func TestInternal_ConservaLaCausa(t *testing.T) {
	causa := errors.New("connection reset")
	err := Internal("error de base de datos", causa)

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, causa)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOf_ErrorAjenoEsInterno(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindValidation, KindOf(Field("cantidad", "debe ser mayor a cero")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusBadRequest},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInsufficientStock, http.StatusConflict},
		{KindInvalidState, http.StatusConflict},
		{KindOverCapacity, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
		{Kind("desconocido"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.kind))
		})
	}
}

func TestField(t *testing.T) {
	err := Field("detalles[0].dosis", "requerido")

	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, map[string]string{"detalles[0].dosis": "requerido"}, err.Fields)
}
