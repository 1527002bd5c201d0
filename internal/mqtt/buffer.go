package mqtt

import log "github.com/sirupsen/logrus"

// DefaultBufferSize is the number of messages kept while the broker is unreachable.
const DefaultBufferSize = 256

// bufferedMsg is a serialized message waiting for the broker.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox holds unsent messages oldest first in fixed storage. When full,
// adding a message discards the oldest one. Not safe for concurrent use.
type outbox struct {
	slots   []bufferedMsg
	first   int // index of the oldest message
	size    int
	dropped int // messages discarded since startup
	warned  bool
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{slots: make([]bufferedMsg, capacity)}
}

func (o *outbox) add(msg bufferedMsg) {
	c := len(o.slots)
	if o.size < c {
		o.slots[(o.first+o.size)%c] = msg
		o.size++
		return
	}

	o.slots[o.first] = msg
	o.first = (o.first + 1) % c
	o.dropped++
	if !o.warned {
		log.WithField("component", "mqtt").
			Warnf("outbox full (%d messages), discarding oldest", c)
		o.warned = true
	}
}

// requeue puts msgs back ahead of anything added since they were taken.
func (o *outbox) requeue(msgs []bufferedMsg) {
	newer := o.take()
	for _, m := range msgs {
		o.add(m)
	}
	for _, m := range newer {
		o.add(m)
	}
}

// take removes and returns every message, oldest first.
func (o *outbox) take() []bufferedMsg {
	if o.size == 0 {
		return nil
	}
	c := len(o.slots)
	msgs := make([]bufferedMsg, o.size)
	for i := range msgs {
		msgs[i] = o.slots[(o.first+i)%c]
		o.slots[(o.first+i)%c] = bufferedMsg{}
	}
	o.first, o.size, o.warned = 0, 0, false
	return msgs
}

func (o *outbox) len() int {
	return o.size
}
