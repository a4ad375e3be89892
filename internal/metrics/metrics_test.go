package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNil_NoOp(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP(http.MethodGet, "/health", 200, time.Millisecond)
		m.ObserveDispensacion("ok", 3)
		m.IncLoteAgotado()
		m.IncMovimiento("dispensacion")
		m.IncJob("email", "ok")
	})
	assert.NotNil(t, m.Handler())
}

func TestObserveDispensacion(t *testing.T) {
	m := New("farmacia")

	m.ObserveDispensacion("ok", 4)
	m.ObserveDispensacion("ok", 2)
	m.ObserveDispensacion("insufficient_stock", 9)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Dispensaciones.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispensaciones.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.UnidadesDispensadas), "solo suma unidades exitosas")
}

func TestHandler(t *testing.T) {
	m := New("farmacia")
	m.IncLoteAgotado()
	m.IncJob("alerta", "dlq")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "farmacia_lotes_agotados_total 1")
	assert.Contains(t, string(body), `farmacia_jobs_procesados_total{resultado="dlq",tipo="alerta"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
