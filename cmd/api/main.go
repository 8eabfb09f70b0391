// @title                       ERP API - Inventario y Facturación
// @version                     1.0
// @description                 Ledger de existencias, catálogo, facturación y tablero.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"

	_ "github.com/jhoicas/erp-api/docs"
	"github.com/jhoicas/erp-api/internal/application/analytics"
	"github.com/jhoicas/erp-api/internal/application/auth"
	"github.com/jhoicas/erp-api/internal/application/billing"
	"github.com/jhoicas/erp-api/internal/application/inventory"
	"github.com/jhoicas/erp-api/internal/application/usecase"
	"github.com/jhoicas/erp-api/internal/infrastructure/cache"
	"github.com/jhoicas/erp-api/internal/infrastructure/excel"
	"github.com/jhoicas/erp-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/erp-api/internal/infrastructure/pdf"
	"github.com/jhoicas/erp-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/erp-api/internal/interfaces/http"
	"github.com/jhoicas/erp-api/pkg/config"
	"github.com/jhoicas/erp-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// Redis es opcional: sin él no hay caché del tablero y el lock de auditoría es local.
	var (
		dashCache analytics.Cache
		locker    inventory.Locker = cache.NewLocalLocker()
	)
	if cfg.Redis.Enabled() {
		var rdb *redis.Client
		rdb, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		dashCache = cache.NewRedisCache(rdb, cfg.App.Name+":")
		locker = cache.NewRedisLocker(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDRESS vacío: tablero sin caché y auditoría con lock local")
	}

	userRepo := postgres.NewUserRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	invRepo := postgres.NewInventoryRepository(pool)
	movRepo := postgres.NewInventoryMovementRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	dashRepo := postgres.NewDashboardRepository(pool)
	txRunner := postgres.NewTxRunner(pool, cfg.DB.TxTimeout())

	m := metrics.New("erp")
	dashboardUC := analytics.NewDashboardUseCase(dashRepo, invRepo, movRepo, invoiceRepo,
		dashCache, cfg.Dashboard.CacheTTL(), log.Zerolog())
	ledger := inventory.NewService(txRunner, invRepo, movRepo, log.Zerolog(), inventory.Options{
		DefaultReorderLevel: cfg.Inventory.DefaultReorderLevel,
		MovementsMaxLimit:   cfg.Inventory.MovementsMaxLimit,
	}, m, dashboardUC.Observer())

	invoiceUC := billing.NewInvoiceUseCase(txRunner, ledger, productRepo, invoiceRepo, log.Zerolog(), dashboardUC.Invalidate)
	invoicePDFUC := billing.NewPDFUseCase(invoiceRepo, infrapdf.NewMarotoPDFGenerator(cfg.App.Name))
	authUC := auth.NewAuthUseCase(userRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	if cfg.JWT.BootstrapAdmin() {
		created, err := authUC.EnsureAdmin(ctx, cfg.JWT.AdminEmail, cfg.JWT.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("crear admin inicial")
		}
		if created {
			log.Info().Str("email", cfg.JWT.AdminEmail).Msg("admin inicial creado")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))
	app.Use(m.Middleware())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "ERP API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:      authUC,
		UserUC:      usecase.NewUserUseCase(userRepo),
		ProductUC:   usecase.NewProductUseCase(txRunner, productRepo, cfg.Inventory.DefaultReorderLevel, log.Zerolog(), dashboardUC.Invalidate),
		Ledger:      ledger,
		ExportUC:    inventory.NewExportUseCase(ledger, excel.NewInventoryExporter()),
		AuditUC:     inventory.NewAuditUseCase(txRunner, invRepo, locker, cfg.Inventory.AuditLockTTL(), log.Zerolog()),
		InvoiceUC:   invoiceUC,
		PDFUC:       invoicePDFUC,
		DashboardUC: dashboardUC,
		JWTSecret:   cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
