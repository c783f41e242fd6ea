package inference

// State tracks where a single decode call is in its lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateDecoding
	StateStoppedEOS
	StateStoppedRepeat
	StateStoppedMaxLength
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateDecoding:
		return "decoding"
	case StateStoppedEOS:
		return "stopped-eos"
	case StateStoppedRepeat:
		return "stopped-repeat"
	case StateStoppedMaxLength:
		return "stopped-max-length"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further tokens will be generated.
func (s State) Terminal() bool {
	return s >= StateStoppedEOS
}
