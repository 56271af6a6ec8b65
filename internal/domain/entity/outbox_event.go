package entity

import "time"

// EventStockMovementRecorded nombre del evento publicado por cada movimiento confirmado.
const EventStockMovementRecorded = "stock.movement.recorded"

// OutboxEvent evento pendiente de publicación, escrito en la misma transacción que el movimiento.
type OutboxEvent struct {
	ID          int64
	MovementID  int64
	EventType   string
	PartitionBy string // clave de partición (InventoryKey) para conservar el orden por clave
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}
