package ledger

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Es la única vía para escribir en el ledger: Append solo existe dentro de Run.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementAppender,
		levelRepo repository.StockLevelLocker,
		outboxRepo repository.OutboxWriter,
	) error) error
}
