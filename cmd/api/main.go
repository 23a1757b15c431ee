package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/tu-usuario/clinica-pro/internal/application/billing"
	"github.com/tu-usuario/clinica-pro/internal/infrastructure/archive"
	"github.com/tu-usuario/clinica-pro/internal/infrastructure/blob"
	infrapdf "github.com/tu-usuario/clinica-pro/internal/infrastructure/pdf"
	"github.com/tu-usuario/clinica-pro/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/clinica-pro/internal/interfaces/http"
	"github.com/tu-usuario/clinica-pro/pkg/config"
	"github.com/tu-usuario/clinica-pro/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
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

	orgRepo := postgres.NewOrganizationRepository(pool)
	rosterRepo := postgres.NewRosterRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	renderer := infrapdf.NewInvoiceRenderer()
	blobStore := blob.NewLocalStore(cfg.Storage.DocumentsDir, cfg.Storage.PublicBaseURL)
	packager := archive.NewZipPackager()

	batchUC := billing.NewBatchInvoiceUseCase(
		txRunner, orgRepo, rosterRepo, invoiceRepo,
		renderer, blobStore, packager, log,
	)
	createInvoiceUC := billing.NewCreateInvoiceUseCase(txRunner, orgRepo, rosterRepo, invoiceRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 120, // las tandas grandes responden al terminar
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		BatchInvoiceUC:  batchUC,
		CreateInvoiceUC: createInvoiceUC,
		Log:             log,
		JWTSecret:       cfg.JWT.Secret,
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
