package ice

// QueryID identifies an outstanding mDNS query.
type QueryID uint64

// MDNSEventKind enumerates the events the mDNS query subsystem emits.
type MDNSEventKind int

const (
	MDNSAnswered MDNSEventKind = iota
	MDNSTimeout
)

// MDNSEvent is one occurrence from the mDNS query subsystem.
type MDNSEvent struct {
	Kind  MDNSEventKind
	Query QueryID
	Addr  string // dotted-decimal or hex IPv6, valid when Kind == MDNSAnswered
}

// MDNSResolver is the external collaborator that resolves ".local" host
// names (spec glossary: "mDNS query subsystem"). Grounded on
// original_source/rtc-mdns/src/lib.rs's query/QueryAnswered/QueryTimeout
// shape. This package never implements the socket/multicast side of mDNS
// (spec §1 Non-goal); it only defines the interface the agent calls into
// and the candidate bookkeeping that reacts to its events.
type MDNSResolver interface {
	Query(hostname string) QueryID
}
