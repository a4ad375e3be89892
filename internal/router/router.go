package router

import (
	"time"

	"farmacia/internal/config"
	"farmacia/internal/handler"
	"farmacia/internal/infra"
	"farmacia/internal/metrics"
	"farmacia/internal/middleware"
	"farmacia/internal/model"
	"farmacia/internal/repository"
	"farmacia/internal/service"
	"farmacia/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps carries the infrastructure built by the composition root. Every
// field is optional: a nil Metrics records nothing, a nil Storage skips
// archiving receipts and a nil MailCB hides the breaker from /health.
type Deps struct {
	Metrics *metrics.Metrics
	Storage infra.Storage
	MailCB  *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// rdb may be nil; caching and async alerts are then disabled.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	pacienteRepo := repository.NewPacienteRepository(db)
	medicoRepo := repository.NewMedicoRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	proveedorRepo := repository.NewProveedorRepository(db)
	loteRepo := repository.NewLoteRepository(db)
	movimientoRepo := repository.NewMovimientoLoteRepository(db)
	recetaRepo := repository.NewRecetaRepository(db)
	dispensacionRepo := repository.NewDispensacionRepository(db)

	// Worker dispatcher, injected into services that enqueue async jobs
	var alertas service.AlertaDispatcher
	if rdb != nil {
		alertas = worker.NewDispatcher(rdb)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	productoSvc := service.NewProductoService(productoRepo, rdb)
	proveedorSvc := service.NewProveedorService(proveedorRepo)
	inventarioSvc := service.NewInventarioService(loteRepo, movimientoRepo, productoRepo, proveedorRepo, deps.Metrics)
	recetaSvc := service.NewRecetaService(recetaRepo, pacienteRepo, medicoRepo, productoRepo)
	dispensacionSvc := service.NewDispensacionService(
		dispensacionRepo, recetaRepo, loteRepo, usuarioRepo,
		inventarioSvc, deps.Storage, alertas, deps.Metrics,
	)
	consultaSvc := service.NewConsultaService(recetaRepo, loteRepo, productoRepo, rdb, cfg.CacheTTL)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	recetasH := handler.NewRecetasHandler(recetaSvc, consultaSvc, dispensacionSvc)
	dispensacionesH := handler.NewDispensacionesHandler(dispensacionSvc)
	lotesH := handler.NewLotesHandler(inventarioSvc, consultaSvc)
	productosH := handler.NewProductosHandler(productoSvc, consultaSvc)
	proveedoresH := handler.NewProveedoresHandler(proveedorSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, deps.MailCB))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
	}

	todos := middleware.RequireRole(model.RolAdministrador, model.RolFarmaceutico, model.RolMedico)
	prescriptores := middleware.RequireRole(model.RolAdministrador, model.RolMedico)
	farmacia := middleware.RequireRole(model.RolAdministrador, model.RolFarmaceutico)
	admin := middleware.RequireRole(model.RolAdministrador)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		recetas := v1.Group("/recetas")
		{
			recetas.GET("", todos, recetasH.Listar)
			recetas.GET("/:id", todos, recetasH.Obtener)
			recetas.GET("/:id/dispensaciones", todos, recetasH.ListarDispensaciones)
			recetas.POST("", prescriptores, recetasH.Crear)
			recetas.PUT("/:id", prescriptores, recetasH.Actualizar)
			recetas.PUT("/:id/detalles", prescriptores, recetasH.ReemplazarDetalles)
			recetas.PATCH("/:id/estado", prescriptores, recetasH.CambiarEstado)
			recetas.DELETE("/:id", prescriptores, recetasH.Anular)
			// Pharmacists validate before dispensing
			recetas.POST("/:id/validar", farmacia, recetasH.Validar)
		}

		disp := v1.Group("/dispensaciones")
		{
			disp.POST("", farmacia, dispensacionesH.Dispensar)
			disp.GET("/:id", todos, dispensacionesH.Obtener)
			disp.GET("/:id/comprobante", todos, dispensacionesH.Comprobante)
		}

		lotes := v1.Group("/lotes")
		{
			lotes.GET("", todos, lotesH.Listar)
			lotes.GET("/:id", todos, lotesH.Obtener)
			lotes.GET("/:id/movimientos", farmacia, lotesH.Movimientos)
			lotes.POST("", farmacia, lotesH.Recibir)
			lotes.PUT("/:id", farmacia, lotesH.Actualizar)
			lotes.POST("/:id/ajuste", farmacia, lotesH.Ajuste)
			lotes.DELETE("/:id", admin, lotesH.Desactivar)
		}

		// GET /v1/productos: every role reads the catalog; writes are admin only
		v1.GET("/productos", todos, productosH.Listar)
		v1.GET("/productos/:id", todos, productosH.Obtener)
		prods := v1.Group("/productos", admin)
		{
			prods.POST("", productosH.Crear)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Desactivar)
		}

		v1.GET("/proveedores", farmacia, proveedoresH.Listar)
		v1.GET("/proveedores/:id", farmacia, proveedoresH.Obtener)
		prov := v1.Group("/proveedores", admin)
		{
			prov.POST("", proveedoresH.Crear)
			prov.DELETE("/:id", proveedoresH.Desactivar)
		}
	}

	// Swagger UI, only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
