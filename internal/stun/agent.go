package stun

import (
	"fmt"

	"github.com/pion/randutil"
)

// EventKind enumerates the asynchronous events an Agent emits via
// poll_event-style draining (spec §4.2).
type EventKind int

const (
	EventTransactionStopped EventKind = iota
	EventTransactionSuccess
	EventTransactionTimeOut
	EventAgentClosed
)

// Event is one agent-level occurrence.
type Event struct {
	Kind EventKind
	ID   TransactionID
	Msg  *Message // set for EventTransactionSuccess
}

type txn struct {
	id       TransactionID
	deadline int64
}

// Agent maintains the map from transaction id to deadline described in
// spec §4.2. It holds no socket and no timer of its own: collect(now) is
// how the caller's clock drives timeout detection.
type Agent struct {
	txns   map[TransactionID]*txn
	events []Event
	closed bool
}

// NewAgent constructs an empty Agent.
func NewAgent() *Agent {
	return &Agent{txns: make(map[TransactionID]*txn)}
}

// GenerateTransactionID produces a random 96-bit transaction id using
// pion/randutil, as the teacher's ICE/STUN layers do for ufrag/pwd/ids.
func GenerateTransactionID() (TransactionID, error) {
	var id TransactionID
	s, err := randutil.GenerateCryptoRandomString(TransactionIDSize, "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz")
	if err != nil {
		return id, err
	}
	copy(id[:], s[:TransactionIDSize])
	return id, nil
}

// Start registers a new outstanding transaction. Fails if the id already
// exists or the agent is closed.
func (a *Agent) Start(id TransactionID, deadline int64) error {
	if a.closed {
		return fmt.Errorf("stun: agent closed")
	}
	if _, ok := a.txns[id]; ok {
		return fmt.Errorf("stun: transaction %x already started", id)
	}
	a.txns[id] = &txn{id: id, deadline: deadline}
	return nil
}

// Stop cancels an outstanding transaction and emits TransactionStopped.
func (a *Agent) Stop(id TransactionID) error {
	if _, ok := a.txns[id]; !ok {
		return fmt.Errorf("stun: no such transaction %x", id)
	}
	delete(a.txns, id)
	a.events = append(a.events, Event{Kind: EventTransactionStopped, ID: id})
	return nil
}

// Process matches an inbound message against its transaction id, removes
// it, and emits a success event. Returns false if no such transaction is
// outstanding (the message is stale or unsolicited).
func (a *Agent) Process(m *Message) bool {
	id := m.TransactionID
	if _, ok := a.txns[id]; !ok {
		return false
	}
	delete(a.txns, id)
	a.events = append(a.events, Event{Kind: EventTransactionSuccess, ID: id, Msg: m})
	return true
}

// Collect expires every transaction whose deadline has passed, emitting
// TransactionTimeOut for each.
func (a *Agent) Collect(now int64) {
	for id, t := range a.txns {
		if t.deadline < now {
			delete(a.txns, id)
			a.events = append(a.events, Event{Kind: EventTransactionTimeOut, ID: id})
		}
	}
}

// Close aborts every outstanding transaction with AgentClosed and rejects
// all further operations.
func (a *Agent) Close() {
	if a.closed {
		return
	}
	for id := range a.txns {
		a.events = append(a.events, Event{Kind: EventAgentClosed, ID: id})
	}
	a.txns = make(map[TransactionID]*txn)
	a.closed = true
}

// PollEvent drains one pending event, if any.
func (a *Agent) PollEvent() (Event, bool) {
	if len(a.events) == 0 {
		return Event{}, false
	}
	e := a.events[0]
	a.events = a.events[1:]
	return e, true
}

// Outstanding reports the number of transactions still awaiting a result.
func (a *Agent) Outstanding() int { return len(a.txns) }
