package rtcerr

// Kind is the error-taxonomy classification from spec §7. Every engine
// error surfaced through handle_*/poll_event carries one of these.
type Kind int

const (
	// KindConfig: invalid construction input. Reported at construction;
	// not recoverable.
	KindConfig Kind = iota
	// KindProtocolParse: malformed wire bytes. The offending datagram is
	// dropped; the connection continues.
	KindProtocolParse
	// KindState: operation invalid in the current state. Returned to the
	// caller; state is unchanged.
	KindState
	// KindSecurity: fingerprint/integrity/auth/replay failure. Fatal for
	// the affected engine.
	KindSecurity
	// KindTimeout: transaction/association retry exhaustion. Fatal for the
	// affected transaction/association.
	KindTimeout
	// KindCapacity: bounded-queue drop. Recoverable.
	KindCapacity
	// KindClosed: operation on a closed engine.
	KindClosed
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindProtocolParse:
		return "protocol-parse"
	case KindState:
		return "state"
	case KindSecurity:
		return "security"
	case KindTimeout:
		return "timeout"
	case KindCapacity:
		return "capacity"
	case KindClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Recoverable reports whether the pipeline should continue operating after
// an error of this kind (spec §7 propagation policy).
func (k Kind) Recoverable() bool {
	switch k {
	case KindProtocolParse, KindCapacity:
		return true
	default:
		return false
	}
}

// Classified is a Kind-tagged error. Engines return/emit this instead of a
// bare error so the peer-connection driver can decide state transitions
// without string-matching.
type Classified struct {
	Kind Kind
	Err  error
}

func (c *Classified) Error() string { return c.Kind.String() + ": " + c.Err.Error() }
func (c *Classified) Unwrap() error { return c.Err }

// New wraps err under kind.
func New(kind Kind, err error) *Classified {
	return &Classified{Kind: kind, Err: err}
}

// As reports whether err is a *Classified of the given kind.
func As(err error, kind Kind) bool {
	var c *Classified
	if e, ok := err.(*Classified); ok {
		c = e
	} else {
		return false
	}
	return c.Kind == kind
}
