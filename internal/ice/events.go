package ice

// EventKind enumerates the events the agent exposes via poll_event
// (spec §4.3 "Contract to outer driver").
type EventKind int

const (
	EventCandidateReady EventKind = iota
	EventSelectedCandidatePairChange
	EventConnectionStateChange
	EventGatheringStateChange
)

// Event is one agent-level occurrence.
type Event struct {
	Kind            EventKind
	Candidate       *Candidate
	LocalPair       *Candidate
	RemotePair      *Candidate
	ConnectionState ConnectionState
	GatheringState  GatheringState
}
