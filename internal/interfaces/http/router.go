package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	RecordMovement *ledger.RecordMovementUseCase
	Query          *ledger.QueryUseCase
	Export         *ledger.ExportUseCase
	JWTSecret      string
	Log            zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))
	writers := RequireRole(entity.RoleAdmin, entity.RoleBodeguero)
	readers := RequireRole(entity.RoleAdmin, entity.RoleBodeguero, entity.RoleVendedor)

	stock := protected.Group("/stock")
	h := NewStockHandler(deps.RecordMovement, deps.Query, deps.Export, deps.Log)

	stock.Post("/movements", writers, h.RecordMovement)
	stock.Get("/movements", readers, h.ListMovements)
	stock.Get("/movements/export", writers, h.ExportMovements)
	stock.Get("/movements/:id", readers, h.GetMovement)

	stock.Get("/levels", readers, h.ListLevels)
	stock.Get("/levels/:product_id/history", readers, h.History)
	stock.Get("/levels/:product_id", readers, h.GetLevel)
}
