package music

// State is the performance state inherited through sequential expansion.
// It is copied at every branch point, so sibling branches never observe
// each other's changes.
type State struct {
	Instrument string `json:"instrument"`
	Velocity   int    `json:"velocity"`
}

// DefaultState returns the initial performance state used when the caller
// supplies none: a sine voice at medium velocity.
func DefaultState() State {
	return State{Instrument: "sine", Velocity: 50}
}

// Event is one emitted sound or rest on the output timeline. Events are
// immutable once emitted; onsets are absolute from the start of expansion.
// An empty Pitches slice means a rest.
type Event struct {
	Onset      Ticks   `json:"onset"`
	Duration   Ticks   `json:"duration"`
	Pitches    []Pitch `json:"pitches"`
	Instrument string  `json:"instrument"`
	Velocity   int     `json:"velocity"`
}

// IsRest reports whether the event is silence.
func (e Event) IsRest() bool {
	return len(e.Pitches) == 0
}

// End returns the absolute tick at which the event stops sounding.
func (e Event) End() Ticks {
	return e.Onset.Add(e.Duration)
}

// TotalDuration returns the end of the last-sounding event, which is the
// total length of a timeline whose events start at tick zero.
func TotalDuration(events []Event) Ticks {
	var total Ticks
	for _, e := range events {
		if end := e.End(); end.Cmp(total) > 0 {
			total = end
		}
	}
	return total
}
