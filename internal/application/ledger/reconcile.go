package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Drift desvío detectado entre la proyección y el ledger de una clave.
type Drift struct {
	Key              entity.InventoryKey
	Projection       int64
	ProjectionFound  bool
	ProjectionVer    int64
	LedgerTotal      int64 // línea base (0) + Σ quantity
	LastStockAfter   int64
	Movements        int64
	ChainBreaks      int64
	ArithmeticBreaks int64
	Reasons          []string
}

// ReconciliationReport resultado de una corrida de conciliación.
type ReconciliationReport struct {
	CheckedAt   time.Time
	KeysChecked int
	Drifts      []Drift
}

// HasDrift indica si se encontró algún desvío.
func (r *ReconciliationReport) HasDrift() bool { return len(r.Drifts) > 0 }

// ReconcileUseCase recalcula la proyección a partir del ledger y reporta desvíos.
// Solo lee: un desvío es evidencia de un bug del acumulador y nunca se corrige reescribiendo filas.
type ReconcileUseCase struct {
	movements repository.StockMovementReader
	levels    repository.StockLevelReader
	log       zerolog.Logger
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(movements repository.StockMovementReader, levels repository.StockLevelReader, log zerolog.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{movements: movements, levels: levels, log: log}
}

// Run recorre todas las claves con movimientos o proyección.
func (uc *ReconcileUseCase) Run(ctx context.Context) (*ReconciliationReport, error) {
	summaries, err := uc.movements.KeySummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("conciliación: resumir ledger: %w", err)
	}
	levels, err := uc.levels.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("conciliación: listar proyecciones: %w", err)
	}

	byKey := make(map[entity.InventoryKey]*entity.StockLevel, len(levels))
	for _, l := range levels {
		byKey[l.Key()] = l
	}

	report := &ReconciliationReport{CheckedAt: time.Now().UTC()}
	seen := make(map[entity.InventoryKey]bool, len(summaries))
	for _, s := range summaries {
		seen[s.Key] = true
		report.KeysChecked++
		if d, ok := checkKey(s, byKey[s.Key]); ok {
			report.Drifts = append(report.Drifts, d)
		}
	}
	for key, l := range byKey {
		if seen[key] {
			continue
		}
		report.KeysChecked++
		if d, ok := checkKey(repository.LedgerKeySummary{Key: key}, l); ok {
			report.Drifts = append(report.Drifts, d)
		}
	}

	sort.Slice(report.Drifts, func(i, j int) bool {
		return report.Drifts[i].Key.String() < report.Drifts[j].Key.String()
	})
	for _, d := range report.Drifts {
		uc.log.Error().
			Str("key", d.Key.String()).
			Int64("projection", d.Projection).
			Int64("ledger_total", d.LedgerTotal).
			Int64("drift", d.Projection-d.LedgerTotal).
			Int64("last_stock_after", d.LastStockAfter).
			Int64("movements", d.Movements).
			Str("reasons", strings.Join(d.Reasons, ",")).
			Msg("desvío entre proyección y ledger")
	}
	uc.log.Info().Int("keys", report.KeysChecked).Int("drifts", len(report.Drifts)).Msg("conciliación terminada")
	return report, nil
}

// checkKey compara una clave; la línea base es 0.
func checkKey(s repository.LedgerKeySummary, level *entity.StockLevel) (Drift, bool) {
	d := Drift{
		Key:              s.Key,
		LedgerTotal:      s.SumQuantity,
		LastStockAfter:   s.LastStockAfter,
		Movements:        s.Movements,
		ChainBreaks:      s.ChainBreaks,
		ArithmeticBreaks: s.ArithmeticBreaks,
	}
	if level != nil {
		d.ProjectionFound = true
		d.Projection = level.Quantity
		d.ProjectionVer = level.Version
	}

	switch {
	case !d.ProjectionFound && s.Movements > 0:
		d.Reasons = append(d.Reasons, "missing_projection")
	case d.ProjectionFound && d.Projection != d.LedgerTotal:
		d.Reasons = append(d.Reasons, "projection_mismatch")
	}
	if d.ProjectionFound && d.ProjectionVer != s.Movements {
		d.Reasons = append(d.Reasons, "version_mismatch")
	}
	if s.Movements > 0 && s.LastStockAfter != d.LedgerTotal {
		d.Reasons = append(d.Reasons, "last_row_mismatch")
	}
	if s.ChainBreaks > 0 {
		d.Reasons = append(d.Reasons, "chain_break")
	}
	if s.ArithmeticBreaks > 0 {
		d.Reasons = append(d.Reasons, "arithmetic_break")
	}
	return d, len(d.Reasons) > 0
}
