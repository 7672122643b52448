package grammar

import (
	"github.com/jb6248/vibelive/music"
)

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

// Expr is one node of a parsed definition body.
type Expr interface {
	exprNode()
}

// Sequence concatenates its terms in time, left to right.
type Sequence struct {
	Terms []Expr
}

// Reference is a lazy lookup of another definition by name.
type Reference struct {
	Name string
	Pos  Pos
}

// Note is a single pitched sound with a rational duration multiplier.
// DurGiven records whether the source token carried an explicit <d> suffix,
// which disqualifies the enclosing definition from chord interpretation.
type Note struct {
	Pitch    music.Pitch
	Dur      music.Ticks
	DurGiven bool
}

// Rest is silence with a rational duration multiplier.
type Rest struct {
	Dur music.Ticks
}

// Chord is a definition body of bare notes sounding simultaneously for one
// nominal tick.
type Chord struct {
	Pitches []music.Pitch
}

// Repeat re-expands its body Count times in sequence, with fresh random
// draws per repetition.
type Repeat struct {
	Count int
	Body  Expr
	Pos   Pos
}

// Choice selects exactly one alternative uniformly at random each time the
// node is reached.
type Choice struct {
	Alternatives []Expr
	Pos          Pos
}

// TimeScale multiplies every duration produced by its body by Factor.
// Nested scales compose multiplicatively.
type TimeScale struct {
	Factor music.Ticks
	Body   Expr
	Pos    Pos
}

// Transpose shifts every pitch produced by its body by Semitones.
// Nested transposes compose additively.
type Transpose struct {
	Semitones int
	Body      Expr
	Pos       Pos
}

// ControlKey selects which performance-state attribute a Control sets.
type ControlKey int

const (
	ControlInstrument ControlKey = iota
	ControlVelocity
)

// Control mutates the inherited performance state for all subsequent terms
// in the same sequence and everything nested beneath them. It emits no
// event and has zero duration.
type Control struct {
	Key        ControlKey
	Instrument string
	Velocity   int
}

func (Sequence) exprNode()  {}
func (Reference) exprNode() {}
func (Note) exprNode()      {}
func (Rest) exprNode()      {}
func (Chord) exprNode()     {}
func (Repeat) exprNode()    {}
func (Choice) exprNode()    {}
func (TimeScale) exprNode() {}
func (Transpose) exprNode() {}
func (Control) exprNode()   {}
