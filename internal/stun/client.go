package stun

import (
	"time"

	"github.com/pion/logging"
	"github.com/sansio/rtc/transport"
)

// Default retry parameters (spec §4.2).
const (
	DefaultRTO         = 300 * time.Millisecond
	DefaultMaxAttempts = 7
	DefaultTimeoutRate = 5 * time.Millisecond
)

// ClientConfig configures a Client's retry behavior.
type ClientConfig struct {
	RTO         time.Duration
	MaxAttempts int
	Logger      logging.LeveledLogger
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.RTO <= 0 {
		c.RTO = DefaultRTO
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.Logger == nil {
		c.Logger = logging.NewDefaultLoggerFactory().NewLogger("stun")
	}
	return c
}

type outstanding struct {
	id      TransactionID
	attempt int
	start   int64
	rto     time.Duration
	raw     []byte
	peer    transport.Tuple
}

// Client wraps an Agent with the retransmit policy described in spec §4.2:
// each outgoing request is retried with linearly-growing deadlines until
// MaxAttempts is exhausted, at which point a TransactionTimeOut event is
// surfaced to the caller instead of being silently retried again.
type Client struct {
	cfg     ClientConfig
	agent   *Agent
	pending map[TransactionID]*outstanding
	writes  []transport.Raw
	events  []ClientEvent
}

// ClientEventKind mirrors Agent events plus the client's own terminal
// timeout (after MaxAttempts).
type ClientEventKind int

const (
	ClientEventSuccess ClientEventKind = iota
	ClientEventTimeout
)

// ClientEvent is a client-level occurrence.
type ClientEvent struct {
	Kind ClientEventKind
	ID   TransactionID
	Msg  *Message
}

// NewClient constructs a Client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		cfg:     cfg.withDefaults(),
		agent:   NewAgent(),
		pending: make(map[TransactionID]*outstanding),
	}
}

// Send queues raw (an already-encoded STUN request) for transmission to
// peer and starts its first transaction attempt.
func (c *Client) Send(now int64, peer transport.Tuple, id TransactionID, raw []byte) error {
	o := &outstanding{id: id, attempt: 0, start: now, rto: c.cfg.RTO, raw: raw, peer: peer}
	c.pending[id] = o
	deadline := now + int64(o.rto)
	if err := c.agent.Start(id, deadline); err != nil {
		delete(c.pending, id)
		return err
	}
	c.writes = append(c.writes, transport.New(now, peer, raw))
	return nil
}

// HandleRead feeds a decoded response to the underlying agent.
func (c *Client) HandleRead(m *Message) {
	if c.agent.Process(m) {
		// event surfaced via PollEvent below, enriched with Msg
	}
	c.drainAgentEvents()
}

// HandleTimeout drives retransmission: every transaction whose deadline
// has passed either gets a new attempt with a freshly queued write, or -
// once MaxAttempts is exhausted - surfaces a terminal timeout.
func (c *Client) HandleTimeout(now int64) {
	c.agent.Collect(now)
	c.drainAgentEvents()
}

func (c *Client) drainAgentEvents() {
	for {
		e, ok := c.agent.PollEvent()
		if !ok {
			return
		}
		switch e.Kind {
		case EventTransactionSuccess:
			o := c.pending[e.ID]
			delete(c.pending, e.ID)
			_ = o
			c.events = append(c.events, ClientEvent{Kind: ClientEventSuccess, ID: e.ID, Msg: e.Msg})
		case EventTransactionTimeOut:
			o, ok := c.pending[e.ID]
			if !ok {
				continue
			}
			if o.attempt+1 < c.cfg.MaxAttempts {
				o.attempt++
				newID := o.id // same raw payload is retransmitted; id is preserved across attempts
				deadline := o.start + int64(o.attempt+1)*int64(o.rto)
				delete(c.pending, e.ID)
				c.pending[newID] = o
				if err := c.agent.Start(newID, deadline); err != nil {
					c.cfg.Logger.Warnf("stun: failed to restart transaction: %v", err)
					continue
				}
				c.writes = append(c.writes, transport.New(o.start, o.peer, o.raw))
			} else {
				delete(c.pending, e.ID)
				c.events = append(c.events, ClientEvent{Kind: ClientEventTimeout, ID: e.ID})
			}
		case EventAgentClosed:
			delete(c.pending, e.ID)
			c.events = append(c.events, ClientEvent{Kind: ClientEventTimeout, ID: e.ID})
		}
	}
}

// PollWrite drains one queued outbound datagram.
func (c *Client) PollWrite() (transport.Raw, bool) {
	if len(c.writes) == 0 {
		return transport.Raw{}, false
	}
	w := c.writes[0]
	c.writes = c.writes[1:]
	return w, true
}

// PollEvent drains one queued client event.
func (c *Client) PollEvent() (ClientEvent, bool) {
	if len(c.events) == 0 {
		return ClientEvent{}, false
	}
	e := c.events[0]
	c.events = c.events[1:]
	return e, true
}

// Close aborts every outstanding transaction.
func (c *Client) Close() {
	c.agent.Close()
	c.drainAgentEvents()
	c.pending = make(map[TransactionID]*outstanding)
}

// Outstanding reports the number of requests still awaiting resolution.
func (c *Client) Outstanding() int { return len(c.pending) }
