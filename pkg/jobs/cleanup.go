package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DeleteFunc removes a stored file by its reference.
type DeleteFunc func(reference string) error

// CleanerConfig tunes the cleanup worker pool.
type CleanerConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

type removal struct {
	Reference string
	Attempt   int
}

// FileCleaner deletes replaced or orphaned upload files off the request
// path, retrying transient filesystem failures before giving up.
type FileCleaner struct {
	delete     DeleteFunc
	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	removals chan removal
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

// NewFileCleaner builds a cleaner that removes files via the provided delete function.
func NewFileCleaner(delete DeleteFunc, cfg CleanerConfig) *FileCleaner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &FileCleaner{
		delete:     delete,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		removals:   make(chan removal, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (c *FileCleaner) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	c.started = true
	c.logger.Sugar().Infow("file cleaner started", "workers", c.workers)
}

// Stop cancels workers and waits for them to exit.
func (c *FileCleaner) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.mu.Unlock()
	c.wg.Wait()
	c.logger.Sugar().Infow("file cleaner stopped")
}

// Enqueue schedules a file for removal.
func (c *FileCleaner) Enqueue(reference string) error {
	c.mu.Lock()
	ctx := c.ctx
	started := c.started
	c.mu.Unlock()

	if !started {
		return fmt.Errorf("file cleaner not started")
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("file cleaner stopped: %w", ctx.Err())
	case c.removals <- removal{Reference: reference}:
		return nil
	}
}

func (c *FileCleaner) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case rm := <-c.removals:
			if err := c.delete(rm.Reference); err != nil {
				c.handleFailure(rm, err)
			}
		}
	}
}

func (c *FileCleaner) handleFailure(rm removal, err error) {
	rm.Attempt++
	if rm.Attempt > c.maxRetries {
		c.logger.Sugar().Errorw("file removal exceeded retries", "reference", rm.Reference, "error", err)
		return
	}
	c.logger.Sugar().Warnw("file removal failed, retrying", "reference", rm.Reference, "attempt", rm.Attempt, "error", err)

	go func(r removal) {
		timer := time.NewTimer(c.retryDelay)
		defer timer.Stop()
		select {
		case <-c.ctx.Done():
			return
		case <-timer.C:
			select {
			case <-c.ctx.Done():
			case c.removals <- r:
			}
		}
	}(rm)
}
