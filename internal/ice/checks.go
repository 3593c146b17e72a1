package ice

import (
	"net"

	"github.com/sansio/rtc/internal/stun"
	"github.com/sansio/rtc/transport"
)

// HandleTimeout drives connectivity checks, keepalives, liveness timers,
// and binding-request retries/expiry (spec §4.3 "Checks", "Keepalives",
// "Liveness timers").
func (a *Agent) HandleTimeout(now int64) {
	if a.closed {
		return
	}
	a.expireChecks(now)

	if a.connState == ConnectionChecking || a.connState == ConnectionConnected || a.connState == ConnectionCompleted {
		if now-a.lastCheckTime >= int64(a.cfg.CheckInterval) {
			a.lastCheckTime = now
			a.sendNextCheck(now)
		}
	}

	if a.selected != nil {
		a.checkLiveness(now)
		if now-a.lastKeepaliveTime >= int64(a.cfg.KeepaliveInterval) {
			a.lastKeepaliveTime = now
			a.sendKeepalive(now)
		}
	}
}

func (a *Agent) checkLiveness(now int64) {
	last := a.selected.LastRecvTime
	if last == 0 {
		last = a.selected.LastSendTime
	}
	elapsed := now - last
	switch {
	case elapsed > int64(a.cfg.DisconnectedTimeout+a.cfg.FailedTimeout):
		a.setConnectionState(ConnectionFailed)
	case elapsed > int64(a.cfg.DisconnectedTimeout):
		if a.connState != ConnectionFailed {
			a.setConnectionState(ConnectionDisconnected)
		}
	}
}

// pickNextPair selects the highest-priority Waiting pair, or a Failed pair
// eligible for retry, preferring pairs marked for an immediate triggered
// check.
func (a *Agent) pickNextPair() int {
	for i, p := range a.pairs {
		if p.triggeredNow && (p.State == PairWaiting || p.State == PairFailed) {
			return i
		}
	}
	for i, p := range a.pairs {
		if p.State == PairWaiting {
			return i
		}
	}
	return -1
}

func (a *Agent) sendNextCheck(now int64) {
	// A Succeeded pair awaiting nomination takes priority over the
	// ordinary checklist (spec §4.3 "Nomination").
	if a.role == RoleControlling && a.selected == nil {
		for i, p := range a.pairs {
			if p.State == PairSucceeded && p.nominate {
				a.sendCheck(now, i, true)
				return
			}
		}
	}
	idx := a.pickNextPair()
	if idx < 0 {
		a.maybeComplete()
		return
	}
	a.sendCheck(now, idx, false)
}

func (a *Agent) sendCheck(now int64, idx int, nominating bool) {
	p := a.pairs[idx]
	p.triggeredNow = false
	p.State = PairInProgress
	p.checksSent++

	lc := a.local[p.LocalIndex]
	rc := a.remote[p.RemoteIndex]

	tid, err := stun.GenerateTransactionID()
	if err != nil {
		return
	}

	m := &stun.Message{Type: stun.Type{Method: stun.MethodBinding, Class: stun.ClassRequest}, TransactionID: tid}
	m.Add(stun.AttrUsername, []byte(a.remoteUfrag+":"+a.localUfrag))
	if a.role == RoleControlling {
		m.Add(stun.AttrIceControlling, beUint64(a.tieBreaker))
	} else {
		m.Add(stun.AttrIceControlled, beUint64(a.tieBreaker))
	}
	m.Add(stun.AttrPriority, beUint32(lc.Priority))
	if nominating && a.role == RoleControlling {
		m.Add(stun.AttrUseCandidate, nil)
	}
	raw, err := stun.Encode(m, []byte(a.remotePwd), true)
	if err != nil {
		return
	}

	a.checks[tid] = &outstandingCheck{tid: tid, pairIdx: idx, sentAt: now, nominating: nominating}
	peer := transport.Tuple{Peer: rc.ResolvedAddr, Local: lc.ResolvedAddr, Protocol: transport.ProtocolUDP}
	a.writes = append(a.writes, transport.New(now, peer, raw))
	p.LastSendTime = now
}

func (a *Agent) sendKeepalive(now int64) {
	tid, err := stun.GenerateTransactionID()
	if err != nil {
		return
	}
	m := &stun.Message{Type: stun.Type{Method: stun.MethodBinding, Class: stun.ClassIndication}, TransactionID: tid}
	raw, err := stun.Encode(m, nil, false)
	if err != nil {
		return
	}
	lc := a.local[a.selected.LocalIndex]
	rc := a.remote[a.selected.RemoteIndex]
	peer := transport.Tuple{Peer: rc.ResolvedAddr, Local: lc.ResolvedAddr, Protocol: transport.ProtocolUDP}
	a.writes = append(a.writes, transport.New(now, peer, raw))
	a.selected.LastSendTime = now
}

func (a *Agent) expireChecks(now int64) {
	for tid, oc := range a.checks {
		if now-oc.sentAt < int64(a.cfg.MaxBindingRequestTimeout) {
			continue
		}
		delete(a.checks, tid)
		p := a.pairs[oc.pairIdx]
		if p.checksSent >= a.cfg.MaxBindingRequests {
			p.State = PairFailed
		} else {
			p.State = PairWaiting
			p.triggeredNow = true
		}
	}
}

// HandleRead processes an inbound decoded STUN message addressed to this
// agent (requests, triggered checks, responses, role conflicts, and
// nominations — spec §4.3 "Checks", "Triggered checks", "Role conflict",
// "Nomination").
func (a *Agent) HandleRead(now int64, m *stun.Message, from *transport.Tuple) {
	if a.closed {
		return
	}
	switch m.Type.Class {
	case stun.ClassRequest:
		a.handleBindingRequest(now, m, from)
	case stun.ClassSuccess:
		a.handleBindingSuccess(now, m)
	default:
	}
}

func (a *Agent) handleBindingRequest(now int64, m *stun.Message, from *transport.Tuple) {
	u, ok := m.Get(stun.AttrUsername)
	expect := a.localUfrag + ":" + a.remoteUfrag
	if !ok || string(u.Value) != expect {
		return
	}
	if !stun.VerifyMessageIntegrity(m.Raw, []byte(a.localPwd)) {
		return
	}

	if _, conflict := m.Get(stun.AttrIceControlling); conflict && a.role == RoleControlling {
		a.resolveRoleConflict(m)
	}
	if _, conflict := m.Get(stun.AttrIceControlled); conflict && a.role == RoleControlled {
		a.resolveRoleConflict(m)
	}

	idx := a.findOrCreatePair(from, m)

	// Success response: echo XOR-MAPPED-ADDRESS of the source.
	resp := &stun.Message{Type: stun.Type{Method: stun.MethodBinding, Class: stun.ClassSuccess}, TransactionID: m.TransactionID}
	if addr := udpAddrOf(from.Peer); addr != nil {
		resp.Add(stun.AttrXORMappedAddress, stun.EncodeXORMappedAddress(addr, m.TransactionID))
	}
	raw, err := stun.Encode(resp, []byte(a.remotePwd), true)
	if err == nil {
		a.writes = append(a.writes, transport.New(now, *from, raw))
	}

	// Triggered check (RFC 8445 §7.3.1.4): schedule a reverse check if this
	// pair is not already active.
	p := a.pairs[idx]
	p.LastRecvTime = now
	if p.State != PairInProgress {
		p.triggeredNow = true
		if p.State != PairSucceeded {
			p.State = PairWaiting
		}
	}

	if _, use := m.Get(stun.AttrUseCandidate); use && a.role == RoleControlled {
		a.nominate(idx)
	}
}

func (a *Agent) handleBindingSuccess(now int64, m *stun.Message) {
	oc, ok := a.checks[m.TransactionID]
	if !ok {
		return
	}
	delete(a.checks, m.TransactionID)
	p := a.pairs[oc.pairIdx]
	p.State = PairSucceeded
	p.rtt = now - oc.sentAt
	p.LastRecvTime = now

	if oc.nominating {
		a.nominate(oc.pairIdx)
	} else if a.role == RoleControlling && a.selected == nil {
		p.nominate = true
	}
}

func (a *Agent) nominate(idx int) {
	p := a.pairs[idx]
	p.Nominated = true
	if p.State != PairSucceeded {
		return
	}
	a.selected = p
	a.events = append(a.events, Event{
		Kind:       EventSelectedCandidatePairChange,
		LocalPair:  a.local[p.LocalIndex],
		RemotePair: a.remote[p.RemoteIndex],
	})
	a.setConnectionState(ConnectionConnected)
}

// maybeComplete transitions Connected -> Completed once every remaining
// pair is either Failed or of lower priority than the selected pair
// (spec §4.3 "Nomination").
func (a *Agent) maybeComplete() {
	if a.selected == nil || a.connState != ConnectionConnected {
		return
	}
	for _, p := range a.pairs {
		if p == a.selected {
			continue
		}
		if p.State != PairFailed && p.Priority >= a.selected.Priority {
			return
		}
	}
	a.setConnectionState(ConnectionCompleted)
}

// resolveRoleConflict switches local role when the peer's tiebreaker is
// numerically larger (spec §4.3 "Role conflict"). A full RFC 8445 487
// error response to the losing side is left to the caller's STUN-error
// encoding; this method only performs the local role flip and restarts
// checking.
func (a *Agent) resolveRoleConflict(m *stun.Message) {
	var peerTB uint64
	if v, ok := m.Get(stun.AttrIceControlling); ok {
		peerTB = beUint64Decode(v.Value)
	} else if v, ok := m.Get(stun.AttrIceControlled); ok {
		peerTB = beUint64Decode(v.Value)
	}
	if peerTB <= a.tieBreaker {
		return
	}
	if a.role == RoleControlling {
		a.role = RoleControlled
	} else {
		a.role = RoleControlling
	}
	for _, p := range a.pairs {
		if p.State != PairSucceeded {
			p.State = PairWaiting
		}
	}
}

func (a *Agent) findOrCreatePair(from *transport.Tuple, m *stun.Message) int {
	addr := udpAddrOf(from.Peer)
	for i, p := range a.pairs {
		rc := a.remote[p.RemoteIndex]
		if rc.ResolvedAddr != nil && addr != nil && rc.ResolvedAddr.String() == addr.String() {
			return i
		}
	}

	var prio uint32
	if v, ok := m.Get(stun.AttrPriority); ok && len(v.Value) == 4 {
		prio = beUint32Decode(v.Value)
	}
	rc := NewPeerReflexiveCandidate(NetworkTypeUDP4, addr, prio, 1)
	a.remote = append(a.remote, rc)
	ri := len(a.remote) - 1

	li := 0
	for i, lc := range a.local {
		if lc.Usable() {
			li = i
			break
		}
	}
	pr := PairPriority(a.local[li].Priority, rc.Priority, a.role == RoleControlling)
	a.pairs = append(a.pairs, &Pair{LocalIndex: li, RemoteIndex: ri, Priority: pr, State: PairWaiting})
	return len(a.pairs) - 1
}

func udpAddrOf(a net.Addr) *net.UDPAddr {
	if u, ok := a.(*net.UDPAddr); ok {
		return u
	}
	return nil
}
