package yggAuth

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// auditDispatcher hands events to the sink on one goroutine so the
// authentication path never waits on audit output.
type auditDispatcher struct {
	sink       AuditSink
	logger     *zap.Logger
	dropIfFull bool

	queue   chan AuditEvent
	stop    chan struct{}
	stopped sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool

	dropped atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger *zap.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &auditDispatcher{
		sink:       sink,
		logger:     logger,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan AuditEvent, size),
		stop:       make(chan struct{}),
	}
	d.stopped.Add(1)
	go d.loop()
	return d
}

func (d *auditDispatcher) loop() {
	defer d.stopped.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver isolates the loop from a misbehaving sink.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("audit sink panicked",
				zap.String("event_type", event.EventType),
				zap.String("attempt_id", event.AttemptID),
				zap.Any("panic", r),
			)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull it never blocks and logs the drop
// against the event's attempt id; otherwise it waits for space, ctx or Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

func (d *auditDispatcher) drop(event AuditEvent) {
	total := d.dropped.Add(1)
	d.logger.Debug("audit event dropped",
		zap.String("event_type", event.EventType),
		zap.String("attempt_id", event.AttemptID),
		zap.String("state", event.State),
		zap.Uint64("dropped_total", total),
	)
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.stopped.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
