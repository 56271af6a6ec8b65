// Package export renderiza la vista filtrada del ledger en formatos descargables.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ ledger.ExportRenderer = (*CSVRenderer)(nil)

var csvHeader = []string{
	"id", "created_at", "product_id", "variant_id", "type", "quantity",
	"stock_before", "stock_after", "user_id", "reference_type", "reference_id", "note",
}

// CSVRenderer una fila por movimiento, cabecera fija, UTF-8 con BOM para Excel.
type CSVRenderer struct{}

// NewCSVRenderer construye el renderer.
func NewCSVRenderer() *CSVRenderer { return &CSVRenderer{} }

// ContentType tipo MIME.
func (r *CSVRenderer) ContentType() string { return "text/csv; charset=utf-8" }

// Extension extensión del archivo.
func (r *CSVRenderer) Extension() string { return "csv" }

// Render escribe las filas. Si el resultado fue truncado se agrega una línea final de aviso.
func (r *CSVRenderer) Render(rows []*entity.StockMovement, meta ledger.ExportMeta) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("csv: cabecera: %w", err)
	}
	for _, m := range rows {
		refType, refID := "", ""
		if m.Reference != nil {
			refType, refID = string(m.Reference.Kind), m.Reference.ID
		}
		record := []string{
			strconv.FormatInt(m.ID, 10),
			m.CreatedAt.UTC().Format(time.RFC3339),
			m.ProductID,
			m.VariantID,
			string(m.Type),
			strconv.FormatInt(m.Quantity, 10),
			strconv.FormatInt(m.StockBefore, 10),
			strconv.FormatInt(m.StockAfter, 10),
			m.UserID,
			refType,
			safeCell(refID),
			safeCell(m.Note),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("csv: fila %d: %w", m.ID, err)
		}
	}
	if meta.Truncated {
		if err := w.Write([]string{fmt.Sprintf("# truncado: %d de %d filas", len(rows), meta.Total)}); err != nil {
			return nil, fmt.Errorf("csv: aviso: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return buf.Bytes(), nil
}

// safeCell neutraliza texto libre que una hoja de cálculo interpretaría como fórmula.
func safeCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
