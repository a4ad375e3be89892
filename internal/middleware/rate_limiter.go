package middleware

import (
	"net/http"
	"sync"
	"time"

	"farmacia/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Fixed window per IP ───────────────────────────────────────────────────────

type entrada struct {
	count     int
	windowEnd time.Time
}

// ventana counts requests per IP inside fixed windows of duracion.
type ventana struct {
	mu       sync.Mutex
	entradas map[string]*entrada
	limite   int
	duracion time.Duration
}

func nuevaVentana(limite int, duracion time.Duration) *ventana {
	v := &ventana{entradas: make(map[string]*entrada), limite: limite, duracion: duracion}
	registrarVentana(v)
	return v
}

// permitir counts one request for ip and reports whether it is within the
// limit, together with the end of the current window.
func (v *ventana) permitir(ip string, now time.Time) (bool, time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	e, ok := v.entradas[ip]
	if !ok || now.After(e.windowEnd) {
		e = &entrada{windowEnd: now.Add(v.duracion)}
		v.entradas[ip] = e
	}
	e.count++
	return e.count <= v.limite, e.windowEnd
}

func (v *ventana) purgar(now time.Time) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	n := 0
	for ip, e := range v.entradas {
		if now.After(e.windowEnd) {
			delete(v.entradas, ip)
			n++
		}
	}
	return n
}

// ── Limiters ──────────────────────────────────────────────────────────────────

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	v := nuevaVentana(20, time.Minute)
	return func(c *gin.Context) {
		if ok, _ := v.permitir(c.ClientIP(), time.Now()); !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos de login. Intente en 1 minuto."))
			return
		}
		c.Next()
	}
}

// RateLimiter returns a general-purpose per-IP limiter of limit requests per window.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	v := nuevaVentana(limit, window)
	return func(c *gin.Context) {
		ok, fin := v.permitir(c.ClientIP(), time.Now())
		if !ok {
			c.Header("Retry-After", fin.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// ── Purge goroutine ───────────────────────────────────────────────────────────
// Periodically drops expired entries so IPs that never return do not pile up.

const purgeInterval = 5 * time.Minute

var (
	ventanas     []*ventana
	ventanasMu   sync.Mutex
	purgaIniciar sync.Once
)

func registrarVentana(v *ventana) {
	ventanasMu.Lock()
	ventanas = append(ventanas, v)
	ventanasMu.Unlock()
	purgaIniciar.Do(func() { go purgeExpiredEntries() })
}

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for now := range ticker.C {
		ventanasMu.Lock()
		purgadas := 0
		for _, v := range ventanas {
			purgadas += v.purgar(now)
		}
		ventanasMu.Unlock()

		if purgadas > 0 {
			log.Debug().Int("entries_purged", purgadas).Msg("rate limiter entries purged")
		}
	}
}
