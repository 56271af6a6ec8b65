package kafka_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

const productID = "0b9c3c7e-5a1e-4a8c-9f4d-1c2b3a4d5e6f"

// fakeReader entrega los mensajes en orden y luego bloquea hasta que ctx termine.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	committed []int64
	drained   chan struct{}
}

func newFakeReader(msgs ...kafkago.Message) *fakeReader {
	return &fakeReader{msgs: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	if len(r.msgs) == 0 {
		select {
		case <-r.drained:
		default:
			close(r.drained)
		}
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newLedger(t *testing.T) (*memory.Store, *ledger.RecordMovementUseCase) {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: productID, SKU: "CAM-001", Name: "Camiseta"})
	catalog := memory.NewCatalog(store)
	acc := ledger.NewAccumulator(memory.NewTxRunner(store), ledger.AccumulatorConfig{}, zerolog.Nop())
	return store, ledger.NewRecordMovementUseCase(ledger.NewIntake(catalog, 0), acc)
}

func msg(offset int64, value string) kafkago.Message {
	return kafkago.Message{Topic: "stock.movement.commands", Partition: 0, Offset: offset, Value: []byte(value)}
}

func TestCommandConsumer_AplicaYConfirma(t *testing.T) {
	store, uc := newLedger(t)
	reader := newFakeReader(
		msg(1, `{"product_id":"`+productID+`","quantity":20,"type":"initial"}`),
		msg(2, `no es json`),
		msg(3, `{"product_id":"`+productID+`","quantity":-50,"type":"sale"}`),
		msg(4, `{"product_id":"`+productID+`","quantity":-5,"type":"sale","reference_type":"order","reference_id":"o-9"}`),
		// redelivery del offset 4: misma llave derivada, no duplica
		msg(4, `{"product_id":"`+productID+`","quantity":-5,"type":"sale","reference_type":"order","reference_id":"o-9"}`),
	)
	consumer := kafka.NewCommandConsumer(reader, uc, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error)
	go func() { done <- consumer.Run(ctx) }()

	select {
	case <-reader.drained:
	case <-ctx.Done():
		t.Fatal("el consumidor no procesó todos los mensajes")
	}
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3, 4, 4}, reader.committed)
	rows := store.Movements()
	require.Len(t, rows, 2)
	assert.Equal(t, int64(15), rows[1].StockAfter)
	assert.Equal(t, "kafka:stock.movement.commands:0:4", rows[1].IdempotencyKey)
}

type flakyRecorder struct {
	mu    sync.Mutex
	calls int
	fails int
}

func (r *flakyRecorder) RecordMovementFromRequest(_ context.Context, _ string, in dto.RecordMovementRequest) (*dto.RecordMovementResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls <= r.fails {
		return nil, &domain.ConcurrencyConflictError{Key: in.ProductID, Attempts: 5}
	}
	return &dto.RecordMovementResponse{ID: 1, StockAfter: in.Quantity}, nil
}

func (r *flakyRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestCommandConsumer_ReintentaConflictosTransitorios(t *testing.T) {
	reader := newFakeReader(msg(7, `{"product_id":"`+productID+`","quantity":4,"type":"restock"}`))
	recorder := &flakyRecorder{fails: 2}
	consumer := kafka.NewCommandConsumer(reader, recorder, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error)
	go func() { done <- consumer.Run(ctx) }()

	select {
	case <-reader.drained:
	case <-ctx.Done():
		t.Fatal("el comando no se confirmó")
	}
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 3, recorder.Calls())
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestOutboxPublisher_PublicaYMarca(t *testing.T) {
	store, uc := newLedger(t)
	ctx := context.Background()
	_, err := uc.RecordMovement(ctx, ledger.RecordMovementInput{ProductID: productID, Quantity: 3, Type: "restock"})
	require.NoError(t, err)
	_, err = uc.RecordMovement(ctx, ledger.RecordMovementInput{ProductID: productID, Quantity: 2, Type: "restock"})
	require.NoError(t, err)

	outbox := memory.NewOutboxRepository(store)
	writer := &fakeWriter{}
	pub := kafka.NewOutboxPublisher(outbox, writer, time.Second, zerolog.Nop())

	n, err := pub.PublishPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, writer.msgs, 2)
	assert.Equal(t, productID, string(writer.msgs[0].Key))
	assert.Equal(t, "event_type", writer.msgs[0].Headers[0].Key)
	assert.Equal(t, entity.EventStockMovementRecorded, string(writer.msgs[0].Headers[0].Value))

	n, err = pub.PublishPending(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOutboxPublisher_FalloDelBrokerNoMarca(t *testing.T) {
	store, uc := newLedger(t)
	ctx := context.Background()
	_, err := uc.RecordMovement(ctx, ledger.RecordMovementInput{ProductID: productID, Quantity: 3, Type: "restock"})
	require.NoError(t, err)

	outbox := memory.NewOutboxRepository(store)
	pub := kafka.NewOutboxPublisher(outbox, &fakeWriter{err: errors.New("broker caído")}, time.Second, zerolog.Nop())
	_, err = pub.PublishPending(ctx)
	require.Error(t, err)

	pending, err := outbox.Unpublished(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
