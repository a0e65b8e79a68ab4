package defra

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WriteOp is one document queued for background persistence.
type WriteOp struct {
	Collection string
	Document   map[string]any
}

// SinkConfig configures the write sink.
type SinkConfig struct {
	Client       *Client
	QueueSize    int           // Buffer size (default: 256)
	WriteTimeout time.Duration // Per-document write deadline (default: 10s)
	Logger       *slog.Logger
}

// Sink persists documents off the request path. Sends never block the
// caller: when the queue is full the op is dropped with a warning, since
// audit entries are not worth stalling an extraction for.
type Sink struct {
	client       *Client
	logger       *slog.Logger
	writeTimeout time.Duration

	queue chan WriteOp

	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSink creates a new write sink.
func NewSink(cfg SinkConfig) *Sink {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Sink{
		client:       cfg.Client,
		logger:       cfg.Logger,
		writeTimeout: cfg.WriteTimeout,
		queue:        make(chan WriteOp, cfg.QueueSize),
	}
}

// Start begins processing queued writes.
func (s *Sink) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop drains the queue and waits for in-flight writes to finish.
func (s *Sink) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stopping sink, draining queued writes")
		close(s.queue)
		s.wg.Wait()
		s.logger.Info("sink stopped")
	})
}

// Send queues a document for persistence (fire-and-forget).
func (s *Sink) Send(op WriteOp) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("sink closed, dropping write op", "collection", op.Collection)
		}
	}()

	select {
	case s.queue <- op:
	default:
		s.logger.Warn("sink queue full, dropping write op", "collection", op.Collection)
	}
}

func (s *Sink) run() {
	defer s.wg.Done()

	for op := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
		if _, err := s.client.Create(ctx, op.Collection, op.Document); err != nil {
			s.logger.Error("background write failed", "collection", op.Collection, "error", err)
		}
		cancel()
	}
}
