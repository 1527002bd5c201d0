package mqtt

import (
	"strconv"
	"testing"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{topic: TopicReadings, payload: []byte(strconv.Itoa(i))}
}

func payloads(msgs []bufferedMsg) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.payload)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestOutboxTakeEmpty(t *testing.T) {
	if got := newOutbox(4).take(); got != nil {
		t.Errorf("expected nil, got %d messages", len(got))
	}
}

func TestOutboxKeepsOrder(t *testing.T) {
	o := newOutbox(4)
	for i := 0; i < 3; i++ {
		o.add(msg(i))
	}
	if o.len() != 3 {
		t.Fatalf("len: got %d, want 3", o.len())
	}

	got := payloads(o.take())
	if want := []string{"0", "1", "2"}; !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if o.len() != 0 || o.take() != nil {
		t.Error("take should empty the outbox")
	}
}

func TestOutboxDiscardsOldestWhenFull(t *testing.T) {
	o := newOutbox(3)
	for i := 0; i < 7; i++ {
		o.add(msg(i))
	}

	if o.dropped != 4 {
		t.Errorf("dropped: got %d, want 4", o.dropped)
	}
	got := payloads(o.take())
	if want := []string{"4", "5", "6"}; !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOutboxDroppedIsCumulative(t *testing.T) {
	o := newOutbox(1)
	o.add(msg(0))
	o.add(msg(1))
	o.take()
	o.add(msg(2))
	o.add(msg(3))

	if o.dropped != 2 {
		t.Errorf("dropped across outages: got %d, want 2", o.dropped)
	}
}

func TestOutboxWrapsAfterTake(t *testing.T) {
	o := newOutbox(3)
	o.add(msg(0))
	o.add(msg(1))
	o.take()
	for i := 10; i < 13; i++ {
		o.add(msg(i))
	}

	got := payloads(o.take())
	if want := []string{"10", "11", "12"}; !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOutboxRequeueGoesAheadOfNewer(t *testing.T) {
	o := newOutbox(8)
	o.add(msg(0))
	o.add(msg(1))
	o.add(msg(2))
	taken := o.take()

	// msg 0 went out, 1 and 2 failed; 3 arrived meanwhile.
	o.add(msg(3))
	o.requeue(taken[1:])

	got := payloads(o.take())
	if want := []string{"1", "2", "3"}; !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOutboxMinimumCapacity(t *testing.T) {
	o := newOutbox(0)
	o.add(msg(0))
	o.add(msg(1))

	got := payloads(o.take())
	if want := []string{"1"}; !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOutboxPreservesFields(t *testing.T) {
	o := newOutbox(2)
	o.add(bufferedMsg{topic: TopicSystem, payload: []byte(`{"system":{}}`), qos: 1, retained: true})

	got := o.take()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != `{"system":{}}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}
