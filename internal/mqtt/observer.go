package mqtt

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/sensor-station/internal/session"
)

// DefaultQueueSize is the number of cycles waiting for the publisher
// goroutine before new ones are dropped.
const DefaultQueueSize = 64

// SessionObserver forwards completed measurement cycles to a Publisher from
// its own goroutine, so a slow broker never delays the session. Publish
// failures are logged and never reach the session.
type SessionObserver struct {
	pub Publisher
	log *log.Entry

	mu     sync.Mutex
	queue  chan session.Cycle
	closed bool
	done   chan struct{}
}

var _ session.Observer = (*SessionObserver)(nil)

// NewSessionObserver wraps pub as a session.Observer and starts its
// publishing goroutine. queueSize <= 0 selects DefaultQueueSize.
func NewSessionObserver(pub Publisher, queueSize int) *SessionObserver {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	o := &SessionObserver{
		pub:   pub,
		log:   log.WithField("component", "mqtt"),
		queue: make(chan session.Cycle, queueSize),
		done:  make(chan struct{}),
	}
	go o.loop()
	return o
}

func (o *SessionObserver) loop() {
	defer close(o.done)
	for c := range o.queue {
		if err := o.pub.PublishReading(c); err != nil {
			o.log.WithError(err).Warnf("publish %s reading", c.Measurement.Channel)
		}
	}
}

// ObserveState is a no-op; mode changes are reported through the status page.
func (o *SessionObserver) ObserveState(session.State) {}

// ObserveCycle queues the cycle without blocking. A full queue drops it.
func (o *SessionObserver) ObserveCycle(c session.Cycle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.queue <- c:
	default:
		o.log.Warnf("publish queue full, dropping %s reading", c.Measurement.Channel)
	}
}

// ObserveInvalid is a no-op.
func (o *SessionObserver) ObserveInvalid(byte) {}

// Close stops accepting cycles and waits until the queued ones are published.
func (o *SessionObserver) Close() error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()
	<-o.done
	return nil
}
