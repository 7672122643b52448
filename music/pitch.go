package music

import (
	"encoding/json"
	"fmt"
)

// Letter is one of the seven pitch letter classes.
type Letter int

const (
	C Letter = iota
	D
	E
	F
	G
	A
	B
)

// Accidental modifies a pitch letter by one semitone.
type Accidental int

const (
	Natural Accidental = iota
	Sharp
	Flat
)

// DefaultOctave is the absolute octave a note resolves to when its token
// carries no leading octave digit.
const DefaultOctave = 4

// Pitch is an absolute pitch: octave, letter class and accidental.
type Pitch struct {
	Octave     int
	Letter     Letter
	Accidental Accidental
}

// letterSemitones maps each letter class to its semitone offset from C.
var letterSemitones = [7]int{0, 2, 4, 5, 7, 9, 11}

// semitoneSpelling maps a pitch class 0..11 back to a letter and accidental.
// Canonical spelling prefers naturals, then sharps.
var semitoneSpelling = [12]struct {
	letter Letter
	acc    Accidental
}{
	{C, Natural}, {C, Sharp}, {D, Natural}, {D, Sharp}, {E, Natural},
	{F, Natural}, {F, Sharp}, {G, Natural}, {G, Sharp}, {A, Natural},
	{A, Sharp}, {B, Natural},
}

// LetterFromRune maps a note letter character (case-insensitive) to its
// Letter class.
func LetterFromRune(r rune) (Letter, bool) {
	switch r {
	case 'c', 'C':
		return C, true
	case 'd', 'D':
		return D, true
	case 'e', 'E':
		return E, true
	case 'f', 'F':
		return F, true
	case 'g', 'G':
		return G, true
	case 'a', 'A':
		return A, true
	case 'b', 'B':
		return B, true
	}
	return 0, false
}

// Semitone returns the absolute semitone value of the pitch:
// 12*octave + letter offset + accidental offset.
func (p Pitch) Semitone() int {
	s := 12*p.Octave + letterSemitones[p.Letter]
	switch p.Accidental {
	case Sharp:
		s++
	case Flat:
		s--
	}
	return s
}

// FromSemitone converts an absolute semitone value back to a pitch,
// carrying octave boundaries and using the canonical natural/sharp spelling.
func FromSemitone(s int) Pitch {
	octave := s / 12
	class := s % 12
	if class < 0 {
		class += 12
		octave--
	}
	spelling := semitoneSpelling[class]
	return Pitch{Octave: octave, Letter: spelling.letter, Accidental: spelling.acc}
}

// Transpose shifts the pitch by n semitones.
func (p Pitch) Transpose(n int) Pitch {
	if n == 0 {
		return p
	}
	return FromSemitone(p.Semitone() + n)
}

func (l Letter) String() string {
	if l < C || l > B {
		return "?"
	}
	return string("CDEFGAB"[l])
}

func (a Accidental) String() string {
	switch a {
	case Sharp:
		return "#"
	case Flat:
		return "b"
	}
	return ""
}

func (p Pitch) String() string {
	return fmt.Sprintf("%s%s%d", p.Letter, p.Accidental, p.Octave)
}

type pitchJSON struct {
	Octave     int    `json:"octave"`
	Letter     string `json:"letter"`
	Accidental string `json:"accidental"`
}

// MarshalJSON renders the pitch as {octave, letter, accidental}.
func (p Pitch) MarshalJSON() ([]byte, error) {
	acc := "natural"
	switch p.Accidental {
	case Sharp:
		acc = "sharp"
	case Flat:
		acc = "flat"
	}
	return json.Marshal(pitchJSON{
		Octave:     p.Octave,
		Letter:     p.Letter.String(),
		Accidental: acc,
	})
}
