package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/config"
	"github.com/retainly/retention-service/internal/queue"
	"github.com/retainly/retention-service/internal/repository"
	"github.com/retainly/retention-service/internal/store"
)

// Consumer orchestrates a pipeline of stages to process SQS messages
type Consumer struct {
	receiver    *Receiver
	parser      *ParserStage
	applier     *ApplierStage
	batchWriter *BatchWriter
}

// NewConsumer creates a new consumer with a pipeline architecture
func NewConsumer(cfg *config.Config, queueConsumer queue.QueueConsumer, archive repository.EventArchive, states store.StateStore, feedback FeedbackSink, log *zap.Logger) *Consumer {
	receiver := NewReceiver(queueConsumer, ReceiverConfig{
		MaxMessages:     10,
		WaitTimeSeconds: 20,
		BufferSize:      100,
	}, log)

	parser := NewParserStage(queueConsumer, NewJSONEventParser(), log)

	applier := NewApplierStage(states, feedback, log)

	batchWriter := NewBatchWriter(archive, BatchWriterConfig{
		MaxBatchSize: cfg.Consumer.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.Consumer.BatchTimeoutSec) * time.Second,
	}, log)

	return &Consumer{
		receiver:    receiver,
		parser:      parser,
		applier:     applier,
		batchWriter: batchWriter,
	}
}

// Start begins the consumer pipeline
func (c *Consumer) Start(ctx context.Context) error {
	messageChan := make(chan types.Message, 100)
	parsedChan := make(chan *Envelope, 100)
	appliedChan := make(chan *Envelope, 100)

	var wg sync.WaitGroup

	// Start all pipeline stages
	wg.Add(4)

	// Stage 1: Receive messages from SQS
	go func() {
		defer wg.Done()
		c.receiver.Start(ctx, messageChan)
	}()

	// Stage 2: Parse messages into envelopes
	go func() {
		defer wg.Done()
		c.parser.Start(ctx, messageChan, parsedChan)
	}()

	// Stage 3: Fold events into the per-user aggregates
	go func() {
		defer wg.Done()
		c.applier.Start(ctx, parsedChan, appliedChan)
	}()

	// Stage 4: Batch and write to the archive
	go func() {
		defer wg.Done()
		c.batchWriter.Start(ctx, appliedChan)
	}()

	wg.Wait()
	return nil
}
