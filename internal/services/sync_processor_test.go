package services

import (
	"context"
	"testing"
	"time"
)

func TestNewSyncProcessor(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())

	if processor == nil {
		t.Fatal("NewSyncProcessor should return non-nil processor")
	}
	if processor.storage != nil {
		t.Error("storage should be nil when passed nil")
	}
	if processor.amqpClient != nil {
		t.Error("amqpClient should be nil when passed nil")
	}
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
}

func TestSyncProcessorIsRunning(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessorStartTwice(t *testing.T) {
	config := DefaultSyncProcessorConfig()
	config.PollInterval = time.Hour // keep the loop idle during the test
	processor := NewSyncProcessor(nil, nil, config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The startup batch would hit nil storage, so only the running flag is
	// exercised here.
	processor.mu.Lock()
	processor.running = true
	processor.mu.Unlock()

	if err := processor.Start(ctx); err == nil {
		t.Error("Start should fail when already running")
	}

	processor.mu.Lock()
	processor.running = false
	processor.mu.Unlock()
}

func TestSyncProcessorStopWhenNotRunning(t *testing.T) {
	processor := NewSyncProcessor(nil, nil, DefaultSyncProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle processor = %v, want nil", err)
	}
}
