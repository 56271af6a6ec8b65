package export

import (
	"fmt"
	"strconv"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ ledger.ExportRenderer = (*PDFRenderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
	colorNeg     = &props.Color{Red: 170, Green: 30, Blue: 30}
)

// PDFRenderer reporte A4 apaisado del ledger filtrado usando Maroto v2.
type PDFRenderer struct {
	title string
}

// NewPDFRenderer construye el renderer; title encabeza cada reporte.
func NewPDFRenderer(title string) *PDFRenderer {
	if title == "" {
		title = "Movimientos de stock"
	}
	return &PDFRenderer{title: title}
}

// ContentType tipo MIME.
func (r *PDFRenderer) ContentType() string { return "application/pdf" }

// Extension extensión del archivo.
func (r *PDFRenderer) Extension() string { return "pdf" }

// Render genera el PDF y devuelve sus bytes.
func (r *PDFRenderer) Render(rows []*entity.StockMovement, meta ledger.ExportMeta) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithOrientation(orientation.Horizontal).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle(r.title, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(r.headerRow(meta))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	m.AddRows(tableRows(rows)...)
	if meta.Truncated {
		m.AddRows(line.NewRow(2))
		m.AddRows(text.NewRow(6, fmt.Sprintf("Reporte truncado: %d de %d movimientos.", len(rows), meta.Total),
			props.Text{Size: 8, Style: fontstyle.Italic, Color: colorGray}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título y filtros (izq), fecha de generación y total (der).
func (r *PDFRenderer) headerRow(meta ledger.ExportMeta) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(r.title, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Filtros: "+meta.Filters, props.Text{Size: 8, Top: 9, Color: colorGray}),
		),
		col.New(4).Add(
			text.New("Generado: "+meta.GeneratedAt.Format("02/01/2006 15:04 MST"), props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
			text.New(fmt.Sprintf("Total: %d movimientos", meta.Total), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 9,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("ID", 1, align.Left),
		h("Fecha", 2, align.Left),
		h("Clave", 3, align.Left),
		h("Tipo", 1, align.Left),
		h("Cant.", 1, align.Right),
		h("Antes", 1, align.Right),
		h("Después", 1, align.Right),
		h("Referencia / nota", 2, align.Left),
	)
}

// tableRows: una fila por movimiento.
func tableRows(rows []*entity.StockMovement) []core.Row {
	out := make([]core.Row, 0, len(rows))
	for _, m := range rows {
		qtyStyle := props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1}
		if m.Quantity < 0 {
			qtyStyle.Color = colorNeg
		}
		out = append(out, row.New(6).Add(
			col.New(1).Add(text.New(strconv.FormatInt(m.ID, 10), props.Text{Size: 7, Top: 1, Left: 1})),
			col.New(2).Add(text.New(m.CreatedAt.Format("02/01/2006 15:04"), props.Text{Size: 7, Top: 1})),
			col.New(3).Add(text.New(m.Key().String(), props.Text{Size: 6, Top: 1})),
			col.New(1).Add(text.New(string(m.Type), props.Text{Size: 7, Top: 1})),
			col.New(1).Add(text.New(signed(m.Quantity), qtyStyle)),
			col.New(1).Add(text.New(strconv.FormatInt(m.StockBefore, 10), props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1})),
			col.New(1).Add(text.New(strconv.FormatInt(m.StockAfter, 10), props.Text{Size: 7, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New(detail(m), props.Text{Size: 7, Top: 1, Left: 1})),
		))
	}
	return out
}

func signed(n int64) string {
	if n > 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

func detail(m *entity.StockMovement) string {
	s := m.Note
	if m.Reference != nil {
		ref := string(m.Reference.Kind) + ":" + m.Reference.ID
		if s == "" {
			return ref
		}
		s = ref + " · " + s
	}
	if s == "" {
		return "-"
	}
	return s
}
