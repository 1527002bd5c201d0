package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/sensor-station/internal/session"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int

	// OnConnectionChange, if set, is called with the new state whenever
	// the broker connection comes up or drops.
	OnConnectionChange func(connected bool)

	// OnBufferChange, if set, is called with the outbox counters after
	// messages are queued or sent from it.
	OnBufferChange func(buffered, dropped int)
}

// BufferStats reports the offline outbox counters.
type BufferStats interface {
	Stats() (buffered, dropped int)
}

// RealPublisher publishes to an actual MQTT broker. Messages published
// while the connection is down are queued in an outbox and replayed in
// order on reconnect, followed by a RECONNECTED system event.
type RealPublisher struct {
	client paho.Client
	opts   Options
	log    *log.Entry

	mu        sync.Mutex
	outbox    *outbox
	connected bool
	replaying bool
	connects  int
}

var (
	_ Publisher        = (*RealPublisher)(nil)
	_ ConnectionStatus = (*RealPublisher)(nil)
	_ BufferStats      = (*RealPublisher)(nil)
)

// NewRealPublisher creates a publisher for the given broker. The client keeps
// retrying in the background if the first connection attempt does not
// complete, so an unreachable broker is not fatal.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Broker == "" {
		return nil, fmt.Errorf("mqtt: empty broker address")
	}
	p := newPublisher(o)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(p.opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(WillPayload(time.Now())), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warnf("broker %s not reachable yet, buffering until connected", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// newPublisher applies defaults; the caller sets client.
func newPublisher(o Options) *RealPublisher {
	if o.ClientID == "" {
		o.ClientID = "sensor-station"
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	return &RealPublisher{
		opts:   o,
		log:    log.WithField("component", "mqtt"),
		outbox: newOutbox(o.BufferSize),
	}
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Stats returns the number of queued messages and the number discarded
// from a full outbox since startup.
func (p *RealPublisher) Stats() (buffered, dropped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.len(), p.outbox.dropped
}

// PublishReading sends a measurement cycle to the broker.
func (p *RealPublisher) PublishReading(c session.Cycle) error {
	payload, err := FormatReadingPayload(c)
	if err != nil {
		return fmt.Errorf("format reading payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: TopicReadings, payload: payload})
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// publish sends msg directly only when connected with an empty backlog;
// otherwise it joins the outbox behind older messages.
func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.connected || p.replaying {
		p.outbox.add(msg)
		p.mu.Unlock()
		p.notifyBuffer()
		return nil
	}
	p.mu.Unlock()

	if err := p.send(msg); err != nil {
		p.mu.Lock()
		p.outbox.add(msg)
		p.mu.Unlock()
		p.notifyBuffer()
		return err
	}
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

func (p *RealPublisher) notifyBuffer() {
	if p.opts.OnBufferChange == nil {
		return
	}
	buffered, dropped := p.Stats()
	p.opts.OnBufferChange(buffered, dropped)
}

func (p *RealPublisher) onConnect(paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.connects++
	if p.connects > 1 {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected})
		p.outbox.add(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1})
	}
	start := !p.replaying && p.outbox.len() > 0
	if start {
		p.replaying = true
	}
	p.mu.Unlock()

	p.log.Infof("connected to %s", p.opts.Broker)
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(true)
	}
	if start {
		// Off the paho callback goroutine.
		go p.replay()
	}
}

// replay drains the outbox oldest first. Messages published meanwhile are
// queued behind the backlog and go out in a later batch.
func (p *RealPublisher) replay() {
	sent := 0
	defer func() {
		p.notifyBuffer()
		if sent > 0 {
			p.log.Debugf("replayed %d buffered messages", sent)
		}
	}()

	for {
		p.mu.Lock()
		if !p.connected {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		batch := p.outbox.take()
		if len(batch) == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()

		for i, msg := range batch {
			if err := p.send(msg); err != nil {
				p.log.WithError(err).Warnf("replay stopped, %d messages back in outbox", len(batch)-i)
				p.mu.Lock()
				p.outbox.requeue(batch[i:])
				p.replaying = false
				p.mu.Unlock()
				return
			}
			sent++
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()

	p.log.WithError(err).Warn("connection lost")
	if p.opts.OnConnectionChange != nil {
		p.opts.OnConnectionChange(false)
	}
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
