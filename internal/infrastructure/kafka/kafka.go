// Package kafka conecta el ledger con el broker: consume comandos RecordMovement de los
// colaboradores y publica los eventos stock.movement.recorded encolados en el outbox.
package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

// MessageReader lo que el consumidor usa de *kafka.Reader.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageWriter lo que el publicador usa de *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewCommandReader lector del tópico de comandos con commit manual (grupo de consumidores).
func NewCommandReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.CommandsTopic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6,
	})
}

// NewEventWriter escritor del tópico de eventos. Hash por clave mantiene el orden por clave de inventario.
func NewEventWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.EventsTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}
