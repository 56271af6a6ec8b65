package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockHandler expone el ledger: registrar movimientos, stock actual, historial, búsqueda y exportación.
type StockHandler struct {
	record *ledger.RecordMovementUseCase
	query  *ledger.QueryUseCase
	export *ledger.ExportUseCase
	log    zerolog.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(record *ledger.RecordMovementUseCase, query *ledger.QueryUseCase, export *ledger.ExportUseCase, log zerolog.Logger) *StockHandler {
	return &StockHandler{record: record, query: query, export: export, log: log}
}

// RecordMovement godoc
// @Summary      Registrar movimiento de stock
// @Description  Agrega una fila al ledger y actualiza el stock de la clave en la misma transacción.
//
//	Con idempotency_key repetida devuelve el movimiento original (200, replayed=true).
//
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.RecordMovementRequest  true  "product_id, variant_id, quantity con signo, type, reference_type/reference_id"
// @Success      201   {object}  dto.RecordMovementResponse
// @Success      200   {object}  dto.RecordMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/stock/movements [post]
func (h *StockHandler) RecordMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.RecordMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.record.RecordMovementFromRequest(c.UserContext(), userID, in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	status := fiber.StatusCreated
	if out.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(out)
}

// ListMovements godoc
// @Summary      Buscar movimientos
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id          query  string  false  "UUID del producto"
// @Param        variant_id          query  string  false  "UUID de la variante"
// @Param        only_product_stock  query  bool    false  "solo stock a nivel producto (sin variante)"
// @Param        type                query  string  false  "tipo(s), repetible o separado por comas"
// @Param        q                   query  string  false  "texto libre (nota, referencia, producto, variante, usuario)"
// @Param        since               query  string  false  "RFC3339, inclusivo"
// @Param        until               query  string  false  "RFC3339, inclusivo"
// @Param        sort                query  string  false  "campo o -campo (default -created_at)"
// @Param        page                query  int     false  "página (default 1)"
// @Param        per_page            query  int     false  "tamaño de página (default 20)"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *fiber.Ctx) error {
	params, err := searchParams(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	page, err := h.query.Search(c.UserContext(), params)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(ledger.ToMovementListResponse(page))
}

// ExportMovements godoc
// @Summary      Exportar movimientos filtrados
// @Description  Mismos filtros que el listado. CSV por defecto; format=pdf genera un reporte.
// @Tags         stock
// @Security     Bearer
// @Produce      text/csv
// @Produce      application/pdf
// @Param        format  query  string  false  "csv | pdf"
// @Success      200
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/export [get]
func (h *StockHandler) ExportMovements(c *fiber.Ctx) error {
	params, err := searchParams(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	file, err := h.export.Export(c.UserContext(), params, c.Query("format"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Set("X-Export-Rows", strconv.Itoa(file.Rows))
	if file.Truncated {
		c.Set("X-Export-Truncated", "true")
	}
	return c.Status(fiber.StatusOK).Send(file.Content)
}

// GetMovement godoc
// @Summary      Detalle de un movimiento
// @Description  reference es null si el movimiento no tiene referencia o si el origen ya no existe.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "ID del movimiento"
// @Success      200  {object}  dto.MovementDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/{id} [get]
func (h *StockHandler) GetMovement(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return writeError(c, h.log, &domain.NotFoundError{Resource: "movimiento", ID: c.Params("id")})
	}
	detail, err := h.query.GetMovement(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(ledger.ToMovementDetailResponse(detail))
}

// ListLevels godoc
// @Summary      Listar stock actual por clave
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "UUID del producto"
// @Param        page        query  int     false  "página"
// @Param        per_page    query  int     false  "tamaño de página"
// @Success      200  {object}  dto.StockLevelListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/levels [get]
func (h *StockHandler) ListLevels(c *fiber.Ctx) error {
	page, err := h.query.ListLevels(c.UserContext(), c.Query("product_id"), c.QueryInt("page", 1), c.QueryInt("per_page", ledger.DefaultPerPage))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(ledger.ToStockLevelListResponse(page))
}

// GetLevel godoc
// @Summary      Stock actual de una clave
// @Description  Una clave sin movimientos devuelve quantity 0.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  path   string  true   "UUID del producto"
// @Param        variant_id  query  string  false  "UUID de la variante"
// @Success      200  {object}  dto.CurrentStockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/levels/{product_id} [get]
func (h *StockHandler) GetLevel(c *fiber.Ctx) error {
	level, err := h.query.Level(c.UserContext(), keyFrom(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(ledger.ToCurrentStockResponse(level))
}

// History godoc
// @Summary      Historial de una clave
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        product_id  path   string  true   "UUID del producto"
// @Param        variant_id  query  string  false  "UUID de la variante"
// @Param        page        query  int     false  "página"
// @Param        per_page    query  int     false  "tamaño de página"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stock/levels/{product_id}/history [get]
func (h *StockHandler) History(c *fiber.Ctx) error {
	page, err := h.query.History(c.UserContext(), keyFrom(c), c.QueryInt("page", 1), c.QueryInt("per_page", ledger.DefaultPerPage))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(ledger.ToMovementListResponse(page))
}

func keyFrom(c *fiber.Ctx) entity.InventoryKey {
	return entity.InventoryKey{ProductID: c.Params("product_id"), VariantID: c.Query("variant_id")}
}

// searchParams lee los filtros del query string; type admite ?type=a&type=b y ?type=a,b.
func searchParams(c *fiber.Ctx) (ledger.SearchParams, error) {
	p := ledger.SearchParams{
		ProductID:        c.Query("product_id"),
		VariantID:        c.Query("variant_id"),
		OnlyProductStock: c.QueryBool("only_product_stock", false),
		Query:            c.Query("q"),
		Sort:             c.Query("sort"),
		Page:             c.QueryInt("page", 1),
		PerPage:          c.QueryInt("per_page", ledger.DefaultPerPage),
	}
	for _, raw := range c.Context().QueryArgs().PeekMulti("type") {
		p.Types = append(p.Types, strings.Split(string(raw), ",")...)
	}
	var err error
	if p.Since, err = queryTime(c, "since"); err != nil {
		return p, err
	}
	if p.Until, err = queryTime(c, "until"); err != nil {
		return p, err
	}
	return p, nil
}

func queryTime(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewValidationError(name, "fecha inválida, use RFC3339")
	}
	return &t, nil
}
