package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/export"
	infrakafka "github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.RunMigrations(pool); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	catalogRepo := postgres.NewCatalogRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	levelRepo := postgres.NewStockLevelRepository(pool)
	outboxRepo := postgres.NewOutboxRepository(pool)
	txRunner := postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout)

	intake := ledger.NewIntake(catalogRepo, cfg.Ledger.NoteMaxLength)
	accumulator := ledger.NewAccumulator(txRunner, ledger.AccumulatorConfig{
		Policy:     ledger.Policy{AllowBackorders: cfg.Ledger.AllowBackorders},
		MaxRetries: cfg.Ledger.MaxRetries,
		Timeout:    cfg.Ledger.ApplyTimeout,
	}, log.Component("accumulator"))
	recordUC := ledger.NewRecordMovementUseCase(intake, accumulator)

	resolver := ledger.NewReferenceResolver(catalogRepo, log.Component("references"))
	queryUC := ledger.NewQueryUseCase(movementRepo, levelRepo, resolver, ledger.QueryConfig{
		MaxPerPage: cfg.Ledger.MaxPerPage,
		Timeout:    cfg.Ledger.QueryTimeout,
	})

	// Exportación: CSV por defecto, PDF como reporte imprimible
	exportUC := ledger.NewExportUseCase(queryUC, map[string]ledger.ExportRenderer{
		"csv": export.NewCSVRenderer(),
		"pdf": export.NewPDFRenderer("Movimientos de stock"),
	}, cfg.Ledger.ExportMaxRows)

	var workers sync.WaitGroup
	if cfg.Kafka.Enabled() {
		reader := infrakafka.NewCommandReader(cfg.Kafka)
		writer := infrakafka.NewEventWriter(cfg.Kafka)
		defer reader.Close()
		defer writer.Close()

		consumer := infrakafka.NewCommandConsumer(reader, recordUC, log.Component("kafka-consumer"))
		publisher := infrakafka.NewOutboxPublisher(outboxRepo, writer, cfg.Kafka.OutboxPollInterval, log.Component("outbox"))

		workers.Add(2)
		go func() {
			defer workers.Done()
			if err := consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("consumidor de comandos finalizado")
			}
		}()
		go func() {
			defer workers.Done()
			publisher.Run(ctx)
		}()
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("mensajería kafka habilitada")
	} else {
		log.Info().Msg("KAFKA_BROKERS vacío: consumidor y publicador deshabilitados")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(requestid.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Ledger API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pool.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "service": cfg.App.Name})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		RecordMovement: recordUC,
		Query:          queryUC,
		Export:         exportUC,
		JWTSecret:      cfg.JWT.Secret,
		Log:            log.Component("http"),
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
	stop()
	workers.Wait()

	log.Info().Msg("aplicación detenida")
}
