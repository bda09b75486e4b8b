package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/identity"
	"github.com/tbourn/go-claims-backend/internal/observability"
)

// LoadFunc fetches the current state of an approval just before a notice is
// rendered.
type LoadFunc func(ctx context.Context, uniqueNumber string) (*domain.Approval, error)

// Delivery results used as metric labels.
const (
	resultSent    = "sent"
	resultFailed  = "failed"
	resultDropped = "dropped"
	resultSkipped = "skipped"
)

type job struct {
	notice   Notice
	snapshot domain.Approval
}

// Dispatcher plans notices for events and delivers them on a bounded pool of
// workers. Notify never blocks: when the queue is full the notice is dropped
// and counted.
type Dispatcher struct {
	mailer  Mailer
	render  *Renderer
	load    LoadFunc
	log     zerolog.Logger
	timeout time.Duration

	queue chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// DispatcherOptions configures NewDispatcher.
type DispatcherOptions struct {
	Mailer   Mailer
	Renderer *Renderer
	// Load re-reads the approval at render time. When nil or failing, the
	// event snapshot is used.
	Load      LoadFunc
	Workers   int
	QueueSize int
	// SendTimeout bounds one delivery. Zero means 30s.
	SendTimeout time.Duration
	Log         zerolog.Logger
}

// NewDispatcher starts the worker pool. Call Close to drain it.
func NewDispatcher(o DispatcherOptions) *Dispatcher {
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.QueueSize < 1 {
		o.QueueSize = 1
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = 30 * time.Second
	}
	d := &Dispatcher{
		mailer:  o.Mailer,
		render:  o.Renderer,
		load:    o.Load,
		log:     o.Log,
		timeout: o.SendTimeout,
		queue:   make(chan job, o.QueueSize),
	}
	for i := 0; i < o.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify plans ev and enqueues its notices.
func (d *Dispatcher) Notify(_ context.Context, ev Event) {
	notices := Plan(ev)
	if len(notices) == 0 {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range notices {
		if d.closed {
			d.drop(n, "dispatcher closed")
			continue
		}
		select {
		case d.queue <- job{notice: n, snapshot: ev.Approval}:
			observability.NotifyQueueDepth.Inc()
		default:
			d.drop(n, "queue full")
		}
	}
}

func (d *Dispatcher) drop(n Notice, reason string) {
	observability.Notifications.WithLabelValues(string(n.Kind), resultDropped).Inc()
	d.log.Warn().
		Str("unique_number", n.UniqueNumber).
		Str("recipient", n.To).
		Str("kind", string(n.Kind)).
		Str("reason", reason).
		Msg("notification dropped")
}

// Close stops accepting notices and waits until queued ones are delivered or
// ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		observability.NotifyQueueDepth.Dec()
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	n := j.notice
	kind := string(n.Kind)
	logger := d.log.With().
		Str("unique_number", n.UniqueNumber).
		Str("recipient", n.To).
		Str("kind", kind).
		Logger()

	if !identity.IsEmail(identity.Normalize(n.To)) {
		observability.Notifications.WithLabelValues(kind, resultSkipped).Inc()
		logger.Warn().Msg("notification skipped: recipient has no email address")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	current := &j.snapshot
	if d.load != nil {
		if a, err := d.load(ctx, n.UniqueNumber); err == nil {
			current = a
		} else {
			logger.Debug().Err(err).Msg("reload failed; rendering event snapshot")
		}
	}

	msg, err := d.render.Render(n, current)
	if err != nil {
		observability.Notifications.WithLabelValues(kind, resultFailed).Inc()
		logger.Error().Err(err).Msg("notification render failed")
		return
	}
	if err := d.mailer.Send(ctx, msg); err != nil {
		observability.Notifications.WithLabelValues(kind, resultFailed).Inc()
		logger.Error().Err(err).Msg("notification send failed")
		return
	}
	observability.Notifications.WithLabelValues(kind, resultSent).Inc()
	logger.Debug().Msg("notification sent")
}
