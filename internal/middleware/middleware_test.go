package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

func init() { gin.SetMode(gin.TestMode) }

func signToken(t *testing.T, rol string, dur time.Duration, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": uuid.New().String(), "documento": "1020304050", "rol": rol,
		"exp": time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func hs256(t *testing.T, rol string, dur time.Duration) string {
	return signToken(t, rol, dur, jwt.SigningMethodHS256, []byte(testSecret))
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── JWT / roles ───────────────────────────────────────────────────────────────

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(JWTAuth(testSecret))
	r.GET("/protected", func(c *gin.Context) {
		claims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID, "rol": claims.Rol})
	})
	r.GET("/dispensar", RequireRole("administrador", "farmaceutico"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	r := authRouter()

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"sin token", "", http.StatusUnauthorized},
		{"sin prefijo bearer", hs256(t, "medico", time.Hour), http.StatusUnauthorized},
		{"token valido", "Bearer " + hs256(t, "medico", time.Hour), http.StatusOK},
		{"token expirado", "Bearer " + hs256(t, "medico", -time.Second), http.StatusUnauthorized},
		{"firma con otro secreto", "Bearer " + signToken(t, "medico", time.Hour, jwt.SigningMethodHS256, []byte("otro")), http.StatusUnauthorized},
		{"algoritmo none", "Bearer " + signToken(t, "medico", time.Hour, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType), http.StatusUnauthorized},
		{"basura", "Bearer this.is.garbage", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.header != "" {
				headers["Authorization"] = tt.header
			}
			w := do(r, http.MethodGet, "/protected", headers)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	r := authRouter()

	tests := []struct {
		rol  string
		want int
	}{
		{"administrador", http.StatusOK},
		{"farmaceutico", http.StatusOK},
		{"medico", http.StatusForbidden},
		{"paciente", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.rol, func(t *testing.T) {
			w := do(r, http.MethodGet, "/dispensar", map[string]string{"Authorization": "Bearer " + hs256(t, tt.rol, time.Hour)})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireRole_SinClaims(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRole("administrador"), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/x", nil).Code)
}

// ── Request ID ────────────────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	t.Run("reutiliza el del cliente", func(t *testing.T) {
		w := do(r, http.MethodGet, "/x", map[string]string{RequestIDHeader: "abc-123"})
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", w.Body.String())
	})

	t.Run("genera uno nuevo", func(t *testing.T) {
		w := do(r, http.MethodGet, "/x", nil)
		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})
}

// ── Timeout ───────────────────────────────────────────────────────────────────

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(50 * time.Millisecond))
	r.GET("/x", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		if !ok || time.Until(deadline) > 50*time.Millisecond {
			c.Status(http.StatusInternalServerError)
			return
		}
		<-c.Request.Context().Done()
		c.Status(http.StatusGatewayTimeout)
	})

	assert.Equal(t, http.StatusGatewayTimeout, do(r, http.MethodGet, "/x", nil).Code)
}

func TestTimeout_Deshabilitado(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(0))
	r.GET("/x", func(c *gin.Context) {
		if _, ok := c.Request.Context().Deadline(); ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", nil).Code)
}

// ── Recovery / error handler ──────────────────────────────────────────────────

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
	assert.Contains(t, w.Body.String(), "internal")
}

// ── Rate limiter ──────────────────────────────────────────────────────────────

func TestVentana(t *testing.T) {
	v := &ventana{entradas: map[string]*entrada{}, limite: 2, duracion: time.Minute}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	ok, _ := v.permitir("10.0.0.1", now)
	assert.True(t, ok)
	ok, _ = v.permitir("10.0.0.1", now.Add(time.Second))
	assert.True(t, ok)
	ok, fin := v.permitir("10.0.0.1", now.Add(2*time.Second))
	assert.False(t, ok)
	assert.Equal(t, now.Add(time.Minute), fin)

	// Other IPs have their own window
	ok, _ = v.permitir("10.0.0.2", now)
	assert.True(t, ok)

	// A new window starts after expiry
	ok, _ = v.permitir("10.0.0.1", now.Add(2*time.Minute))
	assert.True(t, ok)

	assert.Equal(t, 1, v.purgar(now.Add(90*time.Second)))
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(1, time.Minute))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", nil).Code)
	w := do(r, http.MethodGet, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}
