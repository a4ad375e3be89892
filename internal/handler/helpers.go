package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"farmacia/internal/apierror"
	"farmacia/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// maxBodyBytes caps the bodies read whole by bindStrict.
const maxBodyBytes = 1 << 20

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their JSON name so clients see detalles[0].producto_id.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" {
			name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		}
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, apierror.Validation("JSON invalido: "+err.Error(), nil))
		return false
	}
	return validateRequest(c, req)
}

// bindStrict is bindAndValidate for update bodies: any key outside the
// request struct is rejected.
func bindStrict(c *gin.Context, req interface{}) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, apierror.New("El cuerpo excede el tamaño permitido"))
		return false
	}
	if err != nil {
		respondError(c, apierror.Validation("no se pudo leer el cuerpo", nil))
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		respondError(c, apierror.Validation("JSON invalido: "+err.Error(), nil))
		return false
	}
	return validateRequest(c, req)
}

func bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		respondError(c, apierror.Validation("parametros invalidos: "+err.Error(), nil))
		return false
	}
	return validateRequest(c, filter)
}

func validateRequest(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondError(c, apierror.Validation(err.Error(), nil))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[campoValidacion(fe)] = fe.Tag()
	}
	respondError(c, apierror.Validation("Error de validacion", fields))
	return false
}

// campoValidacion drops the root struct name from the namespace:
// CrearRecetaRequest.detalles[0].dosis becomes detalles[0].dosis.
func campoValidacion(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// respondError writes the envelope for err. Internal errors are logged with
// the request id and never echoed to the client.
func respondError(c *gin.Context, err error) {
	kind := apierror.KindOf(err)
	status := apierror.HTTPStatus(kind)

	var apiErr *apierror.Error
	if !errors.As(err, &apiErr) || kind == apierror.KindInternal {
		log.Error().
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Err(err).
			Msg("internal error")
		c.AbortWithStatusJSON(status, &apierror.APIError{Detail: "Error interno del servidor", Code: apierror.KindInternal})
		return
	}

	if kind == apierror.KindValidation {
		body := apierror.NewValidation(apiErr.Fields)
		if apiErr.Message != "" {
			body.Detail = apiErr.Message
		}
		if body.Fields == nil {
			body.Fields = map[string]string{}
		}
		c.AbortWithStatusJSON(status, body)
		return
	}
	c.AbortWithStatusJSON(status, &apierror.APIError{Detail: apiErr.Message, Code: kind})
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apierror.Field(name, "ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

func attachment(c *gin.Context, nombre, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", nombre))
	c.Data(http.StatusOK, contentType, data)
}
