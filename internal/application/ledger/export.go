package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// DefaultExportMaxRows tope de filas por exportación si no se configura otro.
const DefaultExportMaxRows = 10000

// ExportMeta datos de cabecera del documento exportado.
type ExportMeta struct {
	GeneratedAt time.Time
	Filters     string
	Total       int
	Truncated   bool
}

// ExportRenderer convierte filas del ledger a un formato tabular.
type ExportRenderer interface {
	Render(rows []*entity.StockMovement, meta ExportMeta) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile documento listo para descargar.
type ExportFile struct {
	Content     []byte
	ContentType string
	Filename    string
	Rows        int
	Truncated   bool
}

// ExportUseCase exporta la vista filtrada del ledger usando los mismos datos que ListMovements.
type ExportUseCase struct {
	query     *QueryUseCase
	renderers map[string]ExportRenderer
	maxRows   int
	now       func() time.Time
}

// NewExportUseCase construye el caso de uso; renderers se indexa por formato ("csv", "pdf").
func NewExportUseCase(query *QueryUseCase, renderers map[string]ExportRenderer, maxRows int) *ExportUseCase {
	if maxRows <= 0 {
		maxRows = DefaultExportMaxRows
	}
	return &ExportUseCase{query: query, renderers: renderers, maxRows: maxRows, now: time.Now}
}

// Export recorre las páginas del filtro hasta maxRows y las renderiza en el formato pedido.
func (uc *ExportUseCase) Export(ctx context.Context, params SearchParams, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := uc.renderers[format]
	if !ok {
		return nil, domain.NewValidationError("format", fmt.Sprintf("formato %q no soportado", format))
	}

	// Fija el corte al inicio: lo que se registre mientras se pagina no desplaza los offsets.
	now := uc.now().UTC()
	if (params.Until == nil || params.Until.After(now)) && (params.Since == nil || !params.Since.After(now)) {
		params.Until = &now
	}
	params.Page = 1
	params.PerPage = uc.query.maxPerPage
	var rows []*entity.StockMovement
	total := 0
	for {
		page, err := uc.query.Search(ctx, params)
		if err != nil {
			return nil, err
		}
		total = page.Total
		rows = append(rows, page.Items...)
		if len(rows) >= uc.maxRows || page.Page >= page.LastPage || len(page.Items) == 0 {
			break
		}
		params.Page++
	}
	truncated := total > uc.maxRows
	if len(rows) > uc.maxRows {
		rows = rows[:uc.maxRows]
	}

	content, err := renderer.Render(rows, ExportMeta{
		GeneratedAt: now,
		Filters:     describeFilters(params),
		Total:       total,
		Truncated:   truncated,
	})
	if err != nil {
		return nil, fmt.Errorf("exportar %s: %w", format, err)
	}
	return &ExportFile{
		Content:     content,
		ContentType: renderer.ContentType(),
		Filename:    fmt.Sprintf("stock-movements-%s.%s", now.Format("20060102-150405"), renderer.Extension()),
		Rows:        len(rows),
		Truncated:   truncated,
	}, nil
}

func describeFilters(p SearchParams) string {
	var parts []string
	if p.ProductID != "" {
		parts = append(parts, "producto="+p.ProductID)
	}
	if p.VariantID != "" {
		parts = append(parts, "variante="+p.VariantID)
	}
	if len(p.Types) > 0 {
		parts = append(parts, "tipo="+strings.Join(p.Types, "|"))
	}
	if p.Query != "" {
		parts = append(parts, "texto="+p.Query)
	}
	if p.Since != nil {
		parts = append(parts, "desde="+p.Since.Format(time.RFC3339))
	}
	if p.Until != nil {
		parts = append(parts, "hasta="+p.Until.Format(time.RFC3339))
	}
	if len(parts) == 0 {
		return "sin filtros"
	}
	return strings.Join(parts, ", ")
}
