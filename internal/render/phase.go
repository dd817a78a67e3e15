package render

// Phase is a state of the conversion state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSettling
	PhaseCapturing
	PhaseEncoding
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:      "idle",
	PhaseLoading:   "loading",
	PhaseSettling:  "settling",
	PhaseCapturing: "capturing",
	PhaseEncoding:  "encoding",
	PhaseDone:      "done",
	PhaseFailed:    "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// next lists the forward transitions; PhaseFailed is reachable from any
// non-terminal phase and PhaseIdle may jump to PhaseEncoding on a cache hit.
var next = map[Phase][]Phase{
	PhaseIdle:      {PhaseLoading, PhaseEncoding},
	PhaseLoading:   {PhaseSettling},
	PhaseSettling:  {PhaseCapturing},
	PhaseCapturing: {PhaseEncoding},
	PhaseEncoding:  {PhaseDone},
}

func canTransition(from, to Phase) bool {
	if from.Terminal() {
		return false
	}
	if to == PhaseFailed {
		return true
	}
	for _, p := range next[from] {
		if p == to {
			return true
		}
	}
	return false
}
