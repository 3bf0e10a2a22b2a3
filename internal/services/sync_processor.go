package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cadence/internal/amqp"
	"cadence/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync retry processor
type SyncProcessorConfig struct {
	// PollInterval is how often to check for pending transactions (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of transactions to requeue per poll cycle (default: 10)
	BatchSize int
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
	}
}

// SyncProcessor sweeps ledger transactions still marked pending and requeues
// them for export. The fast path is the publish done at write time; this loop
// only catches messages lost to broker hiccups or restarts.
type SyncProcessor struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	config     SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync retry processor
func NewSyncProcessor(storage *storage.SQLiteRepository, amqpClient *amqp.Client, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		storage:    storage,
		amqpClient: amqpClient,
		config:     config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processBatch(ctx)
		}
	}
}

func (p *SyncProcessor) processBatch(ctx context.Context) {
	pending, err := p.storage.GetPendingSyncTransactions(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch pending sync transactions", "error", err)
		return
	}

	if len(pending) == 0 {
		return
	}

	slog.DebugContext(ctx, "Requeueing pending sync transactions", "count", len(pending))

	for _, tx := range pending {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.amqpClient.PublishTransactionSync(ctx, tx.ID, string(tx.Kind)); err != nil {
			slog.WarnContext(ctx, "Failed to requeue sync transaction",
				"transaction_id", tx.ID, "error", err)
			continue
		}
	}
}
