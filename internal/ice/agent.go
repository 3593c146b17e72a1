package ice

import (
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/pion/logging"
	"github.com/pion/randutil"
	"github.com/sansio/rtc/internal/stun"
	"github.com/sansio/rtc/transport"
)

// Default timing parameters (spec §4.3).
const (
	DefaultCheckInterval            = 200 * time.Millisecond
	DefaultKeepaliveInterval        = 2 * time.Second
	DefaultDisconnectedTimeout      = 5 * time.Second
	DefaultFailedTimeout            = 25 * time.Second
	DefaultMaxBindingRequests       = 7
	DefaultMaxBindingRequestTimeout = 4 * time.Second
)

const ufragPwdCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Config configures an Agent.
type Config struct {
	Role                     Role
	CheckInterval            time.Duration
	KeepaliveInterval        time.Duration
	DisconnectedTimeout      time.Duration
	FailedTimeout            time.Duration
	MaxBindingRequests       int
	MaxBindingRequestTimeout time.Duration
	MDNS                     MDNSResolver
	Logger                   logging.LeveledLogger
}

func (c Config) withDefaults() Config {
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.KeepaliveInterval <= 0 {
		c.KeepaliveInterval = DefaultKeepaliveInterval
	}
	if c.DisconnectedTimeout <= 0 {
		c.DisconnectedTimeout = DefaultDisconnectedTimeout
	}
	if c.FailedTimeout <= 0 {
		c.FailedTimeout = DefaultFailedTimeout
	}
	if c.MaxBindingRequests <= 0 {
		c.MaxBindingRequests = DefaultMaxBindingRequests
	}
	if c.MaxBindingRequestTimeout <= 0 {
		c.MaxBindingRequestTimeout = DefaultMaxBindingRequestTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.NewDefaultLoggerFactory().NewLogger("ice")
	}
	return c
}

type outstandingCheck struct {
	tid        stun.TransactionID
	pairIdx    int
	sentAt     int64
	nominating bool
}

// Agent is the sans-I/O ICE agent described by spec §4.3.
type Agent struct {
	cfg        Config
	role       Role
	tieBreaker uint64

	localUfrag, localPwd   string
	remoteUfrag, remotePwd string

	local  []*Candidate
	remote []*Candidate
	pairs  []*Pair

	selected *Pair

	connState   ConnectionState
	gatherState GatheringState

	lastCheckTime     int64
	lastKeepaliveTime int64
	haveTraffic       bool

	checks map[stun.TransactionID]*outstandingCheck

	mdnsQueries map[QueryID]*Candidate

	writes []transport.Raw
	events []Event

	closed bool
}

// NewAgent constructs an Agent in its initial (New/New) state.
func NewAgent(cfg Config) (*Agent, error) {
	cfg = cfg.withDefaults()
	tb, err := randutil.GenerateCryptoRandomString(8, ufragPwdCharset)
	if err != nil {
		return nil, err
	}
	var tbVal uint64
	for i := 0; i < 8; i++ {
		tbVal = tbVal<<8 | uint64(tb[i])
	}
	lu, err := randutil.GenerateCryptoRandomString(4, ufragPwdCharset)
	if err != nil {
		return nil, err
	}
	lp, err := randutil.GenerateCryptoRandomString(22, ufragPwdCharset)
	if err != nil {
		return nil, err
	}
	return &Agent{
		cfg:         cfg,
		role:        cfg.Role,
		tieBreaker:  tbVal,
		localUfrag:  lu,
		localPwd:    lp,
		connState:   ConnectionNew,
		gatherState: GatheringNew,
		checks:      make(map[stun.TransactionID]*outstandingCheck),
		mdnsQueries: make(map[QueryID]*Candidate),
	}, nil
}

// LocalCredentials returns the local ufrag/pwd for SDP binding.
func (a *Agent) LocalCredentials() (ufrag, pwd string) { return a.localUfrag, a.localPwd }

// SetRemoteCredentials records the remote ufrag/pwd, per spec §4.3 "Pairing".
func (a *Agent) SetRemoteCredentials(ufrag, pwd string) {
	a.remoteUfrag, a.remotePwd = ufrag, pwd
	a.formPairs()
}

// AddLocalCandidate registers a local candidate, moving gathering state
// New -> Gathering and emitting CandidateReady once the candidate is
// usable (i.e. not waiting on mDNS resolution).
func (a *Agent) AddLocalCandidate(c *Candidate) {
	a.local = append(a.local, c)
	if a.gatherState == GatheringNew {
		a.gatherState = GatheringGathering
		a.events = append(a.events, Event{Kind: EventGatheringStateChange, GatheringState: a.gatherState})
	}
	if c.Usable() {
		a.events = append(a.events, Event{Kind: EventCandidateReady, Candidate: c})
	} else if a.cfg.MDNS != nil {
		qid := a.cfg.MDNS.Query(c.mdnsHostname)
		a.mdnsQueries[qid] = c
	}
	a.formPairs()
}

// ResolveMDNSEvent feeds one event from the mDNS query subsystem back into
// the agent, completing the pending candidate's resolution.
func (a *Agent) ResolveMDNSEvent(ev MDNSEvent) {
	c, ok := a.mdnsQueries[ev.Query]
	if !ok {
		return
	}
	delete(a.mdnsQueries, ev.Query)
	if ev.Kind != MDNSAnswered {
		return
	}
	c.ResolveMDNS(net.ParseIP(ev.Addr))
	a.events = append(a.events, Event{Kind: EventCandidateReady, Candidate: c})
	a.formPairs()
}

// GatherComplete transitions gathering to Complete once the host has
// exhausted every configured candidate source (spec §4.3 "Gathering").
func (a *Agent) GatherComplete() {
	if a.gatherState == GatheringComplete {
		return
	}
	a.gatherState = GatheringComplete
	a.events = append(a.events, Event{Kind: EventGatheringStateChange, GatheringState: a.gatherState})
}

// AddRemoteCandidate registers a remote candidate and forms new pairs
// against it.
func (a *Agent) AddRemoteCandidate(c *Candidate) {
	a.remote = append(a.remote, c)
	a.formPairs()
}

func compatible(l, r NetworkType) bool {
	udp := func(n NetworkType) bool { return n == NetworkTypeUDP4 || n == NetworkTypeUDP6 }
	tcp := func(n NetworkType) bool { return n == NetworkTypeTCP4 || n == NetworkTypeTCP6 }
	return (udp(l) && udp(r)) || (tcp(l) && tcp(r))
}

// formPairs builds the Cartesian product of usable local x remote
// candidates of compatible network types not already paired, computes
// priorities, and appends them to the checklist sorted by descending
// priority (spec §4.3 "Pairing").
func (a *Agent) formPairs() {
	if a.remoteUfrag == "" || len(a.remote) == 0 {
		return
	}
	existing := make(map[[2]int]bool, len(a.pairs))
	for _, p := range a.pairs {
		existing[[2]int{p.LocalIndex, p.RemoteIndex}] = true
	}
	added := false
	for li, lc := range a.local {
		if !lc.Usable() {
			continue
		}
		for ri, rc := range a.remote {
			if !compatible(lc.Network, rc.Network) {
				continue
			}
			key := [2]int{li, ri}
			if existing[key] {
				continue
			}
			pr := PairPriority(lc.Priority, rc.Priority, a.role == RoleControlling)
			a.pairs = append(a.pairs, &Pair{LocalIndex: li, RemoteIndex: ri, Priority: pr, State: PairWaiting})
			existing[key] = true
			added = true
		}
	}
	if added {
		sort.SliceStable(a.pairs, func(i, j int) bool { return a.pairs[i].Priority > a.pairs[j].Priority })
		if a.connState == ConnectionNew {
			a.setConnectionState(ConnectionChecking)
		}
	}
}

func (a *Agent) setConnectionState(s ConnectionState) {
	if a.connState == s {
		return
	}
	a.connState = s
	a.events = append(a.events, Event{Kind: EventConnectionStateChange, ConnectionState: s})
}

// PollWrite drains one queued outbound envelope.
func (a *Agent) PollWrite() (transport.Raw, bool) {
	if len(a.writes) == 0 {
		return transport.Raw{}, false
	}
	w := a.writes[0]
	a.writes = a.writes[1:]
	return w, true
}

// PollEvent drains one queued event.
func (a *Agent) PollEvent() (Event, bool) {
	if len(a.events) == 0 {
		return Event{}, false
	}
	e := a.events[0]
	a.events = a.events[1:]
	return e, true
}

// PollTimeout returns the next wakeup the agent needs, or false if idle.
func (a *Agent) PollTimeout() (int64, bool) {
	if a.closed {
		return 0, false
	}
	return a.lastCheckTime + int64(a.cfg.CheckInterval), true
}

// SelectedPair returns the currently selected pair, if any.
func (a *Agent) SelectedPair() (local, remote *Candidate, ok bool) {
	if a.selected == nil {
		return nil, nil, false
	}
	return a.local[a.selected.LocalIndex], a.remote[a.selected.RemoteIndex], true
}

// ConnectionState returns the current ICE-connection state.
func (a *Agent) ConnectionState() ConnectionState { return a.connState }

// GatheringState returns the current ICE-gathering state.
func (a *Agent) GatheringState() GatheringState { return a.gatherState }

// Close tears the agent down: aborts outstanding transactions and stops
// emitting events (spec §5 "Cancellation").
func (a *Agent) Close() {
	a.closed = true
	a.setConnectionState(ConnectionClosed)
	a.checks = make(map[stun.TransactionID]*outstandingCheck)
}

// Restart replaces local credentials and re-enters gathering/checking
// (spec §4.3 "Restart", §8 scenario S6).
func (a *Agent) Restart(ufrag, pwd string, keepLocalCandidates bool) error {
	if a.closed {
		return fmt.Errorf("ice: agent closed")
	}
	a.localUfrag, a.localPwd = ufrag, pwd
	if !keepLocalCandidates {
		a.local = nil
		a.gatherState = GatheringNew
	} else {
		a.gatherState = GatheringGathering
	}
	a.remote = nil
	a.remoteUfrag, a.remotePwd = "", ""
	a.pairs = nil
	a.selected = nil
	a.checks = make(map[stun.TransactionID]*outstandingCheck)
	a.haveTraffic = false
	a.setConnectionState(ConnectionChecking)
	return nil
}
