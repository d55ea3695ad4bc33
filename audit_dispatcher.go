package sessiongate

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// auditDispatcher decouples session operations from sink latency: Resolve,
// Establish, and Revoke enqueue their events and move on while a single
// worker drains the queue in order. Overflow under DropIfFull is accounted
// and surfaced back into the stream as a session.audit.dropped event, so a
// lossy audit trail is itself auditable.
type auditDispatcher struct {
	sink         AuditSink
	queue        chan AuditEvent
	done         chan struct{}
	wg           sync.WaitGroup
	now          func() time.Time
	dropWhenFull bool
	dropped      atomic.Uint64
	reported     uint64
	closed       atomic.Bool
	closeOnce    sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, now func() time.Time) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if now == nil {
		now = time.Now
	}

	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}

	d := &auditDispatcher{
		sink:         sink,
		queue:        make(chan AuditEvent, buffer),
		done:         make(chan struct{}),
		now:          now,
		dropWhenFull: cfg.DropIfFull,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					d.reportOverflow()
					return
				}
			}
		}
	}
}

// deliver hands one session event to the sink, then settles any overflow
// that accumulated while the sink was busy. Only the worker goroutine calls
// this, so reported needs no synchronization beyond the atomic total.
func (d *auditDispatcher) deliver(event AuditEvent) {
	d.sink.Emit(context.Background(), event)
	d.reportOverflow()
}

func (d *auditDispatcher) reportOverflow() {
	total := d.dropped.Load()
	if total == d.reported {
		return
	}
	lost := total - d.reported
	d.reported = total

	d.sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventsDropped,
		Timestamp: d.now(),
		Error:     "audit buffer overflow",
		Metadata:  map[string]string{"dropped_events": strconv.FormatUint(lost, 10)},
	})
}

// Emit enqueues one session event for asynchronous delivery. In DropIfFull
// mode a full buffer sheds the event and counts it; otherwise the caller
// blocks until there is room, the request context ends, or the dispatcher
// shuts down.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropWhenFull {
		select {
		case d.queue <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close stops intake, drains every queued event to the sink, and waits for
// the worker to exit. Safe to call more than once.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the number of session events shed under backpressure
// since the dispatcher started.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
