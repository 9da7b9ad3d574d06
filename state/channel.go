package state

import (
	"encoding/json"
	"sync"

	"github.com/duragraph/graphrt/pkgerrors"
)

// ChannelKind names one of the three transport semantics a Channel can
// have (spec §3).
type ChannelKind string

const (
	ChannelBroadcast ChannelKind = "broadcast"
	ChannelMPSC      ChannelKind = "mpsc"
	ChannelOneshot   ChannelKind = "oneshot"
)

// Channel is a named, bounded transport between nodes. Values are
// serialized on Send and deserialized on Receive, matching spec §3's
// "serialized on send, deserialized on receive" invariant — this keeps
// a broadcast channel's subscribers from aliasing mutable values.
type Channel struct {
	name string
	kind ChannelKind

	mu          sync.Mutex
	subscribers []chan []byte // broadcast only
	mpsc        chan []byte   // mpsc only
	oneshot     chan []byte   // oneshot only
	satisfied   bool          // oneshot only
}

// NewChannel creates a channel of the given kind with the given bounded
// buffer size per subscriber/queue.
func NewChannel(name string, kind ChannelKind, bufferSize int) *Channel {
	c := &Channel{name: name, kind: kind}
	switch kind {
	case ChannelMPSC:
		c.mpsc = make(chan []byte, bufferSize)
	case ChannelOneshot:
		c.oneshot = make(chan []byte, 1)
	}
	return c
}

// Name returns the channel's id.
func (c *Channel) Name() string { return c.name }

// Kind returns the channel's transport semantics.
func (c *Channel) Kind() ChannelKind { return c.kind }

// Subscribe registers a new broadcast receiver. Only meaningful for
// ChannelBroadcast; it panics to surface a programming error for other
// kinds rather than silently dropping subscriptions.
func (c *Channel) Subscribe(bufferSize int) <-chan []byte {
	if c.kind != ChannelBroadcast {
		panic("state: Subscribe called on non-broadcast channel " + c.name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan []byte, bufferSize)
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// Send encodes value and delivers it according to the channel's kind.
// Broadcast delivers to every subscriber present at send time (spec
// §3); mpsc enqueues for the single reader; oneshot may succeed exactly
// once and returns an error on a second call.
func (c *Channel) Send(value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return pkgerrors.Internal("channel encode failed", err)
	}

	switch c.kind {
	case ChannelBroadcast:
		c.mu.Lock()
		subs := append([]chan []byte{}, c.subscribers...)
		c.mu.Unlock()
		for _, sub := range subs {
			sub <- payload
		}
		return nil

	case ChannelMPSC:
		c.mpsc <- payload
		return nil

	case ChannelOneshot:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.satisfied {
			return pkgerrors.InvalidState("satisfied", "send")
		}
		c.satisfied = true
		c.oneshot <- payload
		close(c.oneshot)
		return nil

	default:
		return pkgerrors.Internal("unknown channel kind", nil)
	}
}

// Receive decodes the next value for mpsc/oneshot channels into out.
func (c *Channel) Receive(out any) error {
	var payload []byte
	switch c.kind {
	case ChannelMPSC:
		payload = <-c.mpsc
	case ChannelOneshot:
		payload = <-c.oneshot
	default:
		return pkgerrors.Internal("Receive called on broadcast channel; use Subscribe", nil)
	}
	return json.Unmarshal(payload, out)
}
