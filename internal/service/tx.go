package service

import (
	"context"
	"errors"
	"time"

	"farmacia/internal/apierror"
	"farmacia/internal/dto"

	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction bound to ctx. A cancelled
// context or any error returned by fn rolls the whole transaction back.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// clasificar maps a storage error to the API taxonomy. Errors that are
// already classified pass through untouched.
func clasificar(err error, noEncontrado string) error {
	if err == nil {
		return nil
	}
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierror.NotFound(noEncontrado)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apierror.Conflict("el registro ya existe")
	default:
		return apierror.Internal("error de base de datos", err)
	}
}

// hoy truncates t to midnight UTC, the representation used for every
// calendar date column.
func hoy(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parseFecha(campo, valor string) (time.Time, error) {
	t, err := time.Parse(dto.FormatoFecha, valor)
	if err != nil {
		return time.Time{}, apierror.Field(campo, "fecha inválida, se espera AAAA-MM-DD")
	}
	return t, nil
}

func strPtr(s string) *string { return &s }
