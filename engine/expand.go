package engine

import (
	"math/rand"

	"github.com/jb6248/vibelive/grammar"
	"github.com/jb6248/vibelive/music"
)

// Limits bounds a single expansion so a runaway grammar (a repeat re-entering
// its own definition through a long reference chain) fails with a
// ResourceLimitError instead of exhausting memory.
type Limits struct {
	MaxDepth  int // maximum reference-expansion depth
	MaxEvents int // maximum emitted events
}

// DefaultLimits are generous enough for any realistic piece.
func DefaultLimits() Limits {
	return Limits{MaxDepth: 512, MaxEvents: 1 << 20}
}

// state carries the inherited attributes threaded through expansion: the
// performance state plus the lexical scale and transpose accumulators. It is
// passed by value, so sibling branches cannot observe each other's changes;
// forward inheritance happens only where expand explicitly returns an
// updated state to the next sibling.
type state struct {
	perf      music.State
	scale     music.Ticks
	transpose int
	depth     int
}

// expander walks one expression tree, consuming random draws depth-first,
// left to right, exactly once per choice reached.
type expander struct {
	g      *grammar.Grammar
	rng    *rand.Rand
	limits Limits
	chain  []string
	events []music.Event
}

// run expands the start expression and returns the emitted timeline.
func (x *expander) run(expr grammar.Expr, initial music.State) ([]music.Event, error) {
	st := state{perf: initial, scale: music.OneTick()}
	if _, _, err := x.expand(expr, music.Ticks{}, st); err != nil {
		return nil, err
	}
	return x.events, nil
}

// expand evaluates expr starting at absolute onset `at`, returning the total
// duration it occupies and the performance state to hand to the following
// sibling.
func (x *expander) expand(expr grammar.Expr, at music.Ticks, st state) (music.Ticks, state, error) {
	switch n := expr.(type) {
	case grammar.Sequence:
		total := music.Ticks{}
		for _, term := range n.Terms {
			d, next, err := x.expand(term, at.Add(total), st)
			if err != nil {
				return music.Ticks{}, st, err
			}
			total = total.Add(d)
			st = next
		}
		return total, st, nil

	case grammar.Note:
		dur := st.scale.Mul(n.Dur)
		if dur.Sign() <= 0 {
			return music.Ticks{}, st, &DurationUnderflowError{Duration: dur.String(), Chain: x.chainCopy()}
		}
		if err := x.emit(music.Event{
			Onset:      at,
			Duration:   dur,
			Pitches:    []music.Pitch{n.Pitch.Transpose(st.transpose)},
			Instrument: st.perf.Instrument,
			Velocity:   st.perf.Velocity,
		}); err != nil {
			return music.Ticks{}, st, err
		}
		return dur, st, nil

	case grammar.Rest:
		dur := st.scale.Mul(n.Dur)
		if dur.Sign() <= 0 {
			return music.Ticks{}, st, &DurationUnderflowError{Duration: dur.String(), Chain: x.chainCopy()}
		}
		if err := x.emit(music.Event{
			Onset:      at,
			Duration:   dur,
			Instrument: st.perf.Instrument,
			Velocity:   st.perf.Velocity,
		}); err != nil {
			return music.Ticks{}, st, err
		}
		return dur, st, nil

	case grammar.Chord:
		dur := st.scale
		if dur.Sign() <= 0 {
			return music.Ticks{}, st, &DurationUnderflowError{Duration: dur.String(), Chain: x.chainCopy()}
		}
		pitches := make([]music.Pitch, len(n.Pitches))
		for i, p := range n.Pitches {
			pitches[i] = p.Transpose(st.transpose)
		}
		if err := x.emit(music.Event{
			Onset:      at,
			Duration:   dur,
			Pitches:    pitches,
			Instrument: st.perf.Instrument,
			Velocity:   st.perf.Velocity,
		}); err != nil {
			return music.Ticks{}, st, err
		}
		return dur, st, nil

	case grammar.Control:
		switch n.Key {
		case grammar.ControlInstrument:
			st.perf.Instrument = n.Instrument
		case grammar.ControlVelocity:
			st.perf.Velocity = n.Velocity
		}
		return music.Ticks{}, st, nil

	case grammar.Repeat:
		if n.Count <= 0 {
			return music.Ticks{}, st, &InvalidOperatorArgumentError{
				Op:     "repeat",
				Detail: "count must be positive",
				Pos:    n.Pos,
				Chain:  x.chainCopy(),
			}
		}
		total := music.Ticks{}
		for i := 0; i < n.Count; i++ {
			d, next, err := x.expand(n.Body, at.Add(total), st)
			if err != nil {
				return music.Ticks{}, st, err
			}
			total = total.Add(d)
			st = next
		}
		return total, st, nil

	case grammar.Choice:
		idx := x.rng.Intn(len(n.Alternatives))
		return x.expand(n.Alternatives[idx], at, st)

	case grammar.TimeScale:
		if n.Factor.Sign() <= 0 {
			return music.Ticks{}, st, &InvalidOperatorArgumentError{
				Op:     "time-scale",
				Detail: "factor must be positive",
				Pos:    n.Pos,
				Chain:  x.chainCopy(),
			}
		}
		inner := st
		inner.scale = st.scale.Mul(n.Factor)
		d, next, err := x.expand(n.Body, at, inner)
		if err != nil {
			return music.Ticks{}, st, err
		}
		// The scale is lexical: performance-state changes flow out, the
		// enclosing accumulator does not change.
		next.scale = st.scale
		return d, next, nil

	case grammar.Transpose:
		inner := st
		inner.transpose = st.transpose + n.Semitones
		d, next, err := x.expand(n.Body, at, inner)
		if err != nil {
			return music.Ticks{}, st, err
		}
		next.transpose = st.transpose
		return d, next, nil

	case grammar.Reference:
		if st.depth+1 > x.limits.MaxDepth {
			return music.Ticks{}, st, &ResourceLimitError{
				Limit: "reference depth",
				Value: x.limits.MaxDepth,
				Chain: x.chainCopy(),
			}
		}
		body, err := x.g.Resolve(n.Name)
		if err != nil {
			if undef, ok := err.(*grammar.UndefinedSymbolError); ok {
				undef.Chain = x.chainCopy()
			}
			return music.Ticks{}, st, err
		}
		inner := st
		inner.depth = st.depth + 1
		x.chain = append(x.chain, n.Name)
		d, next, err := x.expand(body, at, inner)
		x.chain = x.chain[:len(x.chain)-1]
		if err != nil {
			return music.Ticks{}, st, err
		}
		next.depth = st.depth
		return d, next, nil
	}
	return music.Ticks{}, st, nil
}

func (x *expander) emit(e music.Event) error {
	if len(x.events) >= x.limits.MaxEvents {
		return &ResourceLimitError{Limit: "event count", Value: x.limits.MaxEvents, Chain: x.chainCopy()}
	}
	x.events = append(x.events, e)
	return nil
}

func (x *expander) chainCopy() []string {
	if len(x.chain) == 0 {
		return nil
	}
	return append([]string{}, x.chain...)
}
