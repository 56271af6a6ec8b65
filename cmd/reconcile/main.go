// reconcile recalcula el stock de cada clave a partir del ledger y lo compara con la proyección.
// No modifica nada: los desvíos se reportan para investigarlos.
//
// Uso: go run ./cmd/reconcile
// Códigos de salida: 0 sin desvíos, 1 con desvíos, 2 error de ejecución.
package main

import (
	"context"
	"os"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const runTimeout = 10 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name + "-reconcile",
	})

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		return 2
	}
	defer pool.Close()

	uc := ledger.NewReconcileUseCase(
		postgres.NewStockMovementRepository(pool),
		postgres.NewStockLevelRepository(pool),
		log.Component("reconcile"),
	)
	report, err := uc.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("conciliación fallida")
		return 2
	}

	if report.HasDrift() {
		return 1
	}
	return 0
}
