package grammar

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jb6248/vibelive/music"
)

// ParseError is a fatal syntax error with a 1-based source position.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Parse consumes grammar source text and returns the symbol table. The first
// significant line must be the start directive `start NAME`; every following
// significant line is a production `NAME = body`. Blank lines and `//` line
// comments are ignored. Parse performs no reference or cycle validation;
// call Grammar.Validate after parsing completes.
func Parse(src string) (*Grammar, error) {
	g := NewGrammar()
	sawStart := false

	for idx, raw := range strings.Split(src, "\n") {
		lineNo := idx + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		leading := strings.Index(raw, line)

		if !sawStart {
			rest, ok := strings.CutPrefix(line, "start ")
			if !ok {
				return nil, &ParseError{Line: lineNo, Col: leading + 1, Msg: "expected 'start' directive before any production"}
			}
			name := strings.TrimSpace(rest)
			if !isName(name) {
				return nil, &ParseError{Line: lineNo, Col: leading + 7, Msg: fmt.Sprintf("invalid start symbol %q", name)}
			}
			g.Start = name
			sawStart = true
			continue
		}

		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, &ParseError{Line: lineNo, Col: leading + 1, Msg: "expected '=' in production"}
		}
		name := strings.TrimSpace(line[:eq])
		if !isName(name) {
			return nil, &ParseError{Line: lineNo, Col: leading + 1, Msg: fmt.Sprintf("invalid production name %q", name)}
		}

		p := &lineParser{src: line[eq+1:], line: lineNo, base: leading + eq + 2}
		seq, err := p.parseSequence("")
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if !p.eof() {
			return nil, p.errHere("unexpected %q", string(p.peek()))
		}
		g.Define(name, finishBody(seq))
	}

	if !sawStart {
		return nil, &ParseError{Line: 1, Col: 1, Msg: "empty grammar: expected 'start' directive"}
	}
	return g, nil
}

// finishBody applies the named-chord convention: a body of two or more bare
// note tokens, with no rests, controls, references or operators and no
// explicit duration suffixes, sounds simultaneously as one chord. Any other
// body keeps sequential semantics.
func finishBody(seq Sequence) Expr {
	if len(seq.Terms) < 2 {
		return seq
	}
	pitches := make([]music.Pitch, 0, len(seq.Terms))
	for _, term := range seq.Terms {
		note, ok := term.(Note)
		if !ok || note.DurGiven {
			return seq
		}
		pitches = append(pitches, note.Pitch)
	}
	return Chord{Pitches: pitches}
}

// isName reports whether s is a valid symbol name: one or more of the
// nonterminal characters.
func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}

func isNameByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '/' || c == '#' || c == '?':
		return true
	}
	return false
}

// lineParser scans a single production body with column tracking.
type lineParser struct {
	src  string
	line int
	base int // 1-based column of src[0] in the original line
	i    int
}

func (p *lineParser) eof() bool {
	return p.i >= len(p.src)
}

func (p *lineParser) peek() byte {
	return p.src[p.i]
}

func (p *lineParser) col() int {
	return p.base + p.i
}

func (p *lineParser) errHere(format string, args ...any) *ParseError {
	return &ParseError{Line: p.line, Col: p.col(), Msg: fmt.Sprintf(format, args...)}
}

func (p *lineParser) errAt(col int, format string, args ...any) *ParseError {
	return &ParseError{Line: p.line, Col: col, Msg: fmt.Sprintf(format, args...)}
}

func (p *lineParser) skipSpaces() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.i++
	}
}

// parseSequence parses primitives until end of input or one of the stop
// bytes at the current nesting level.
func (p *lineParser) parseSequence(stops string) (Sequence, error) {
	var terms []Expr
	for {
		p.skipSpaces()
		if p.eof() || strings.IndexByte(stops, p.peek()) >= 0 {
			return Sequence{Terms: terms}, nil
		}
		term, err := p.parsePrimitive()
		if err != nil {
			return Sequence{}, err
		}
		terms = append(terms, term)
	}
}

func (p *lineParser) parsePrimitive() (Expr, error) {
	switch p.peek() {
	case '{':
		return p.parseChoice()
	case '[':
		return p.parseOperator()
	case ':':
		return p.parseTerminal()
	case '}', ']', '|', ',':
		return nil, p.errHere("unexpected %q", string(p.peek()))
	default:
		return p.parseReference()
	}
}

// parseChoice parses a `{ alt | alt }` block. Alternatives may be separated
// by '|' or ','. Individual alternatives may be empty (expand to nothing),
// but a block with no content at all is an error.
func (p *lineParser) parseChoice() (Expr, error) {
	pos := Pos{Line: p.line, Col: p.col()}
	p.i++ // consume '{'
	var alts []Expr
	content := false
	for {
		seq, err := p.parseSequence("|,}")
		if err != nil {
			return nil, err
		}
		if len(seq.Terms) > 0 {
			content = true
		}
		alts = append(alts, seq)
		if p.eof() {
			return nil, p.errAt(pos.Col, "unbalanced '{'")
		}
		if p.peek() == '}' {
			p.i++
			break
		}
		p.i++ // consume separator
	}
	if !content {
		return nil, p.errAt(pos.Col, "choice block needs at least one alternative")
	}
	return Choice{Alternatives: alts, Pos: pos}, nil
}

// parseOperator parses `[x2][...]`, `[T-3][...]` or `[>>3/2][...]`.
func (p *lineParser) parseOperator() (Expr, error) {
	pos := Pos{Line: p.line, Col: p.col()}
	p.i++ // consume '['
	end := strings.IndexByte(p.src[p.i:], ']')
	if end < 0 {
		return nil, p.errAt(pos.Col, "unbalanced '['")
	}
	op := p.src[p.i : p.i+end]
	opCol := p.col()
	p.i += end + 1

	if p.eof() || p.peek() != '[' {
		return nil, p.errHere("expected '[' after operator [%s]", op)
	}
	bodyOpen := p.col()
	p.i++
	body, err := p.parseSequence("]")
	if err != nil {
		return nil, err
	}
	if p.eof() {
		return nil, p.errAt(bodyOpen, "unbalanced '['")
	}
	p.i++ // consume ']'

	switch {
	case strings.HasPrefix(op, "x"):
		count, err := strconv.Atoi(op[1:])
		if err != nil {
			return nil, p.errAt(opCol, "expected integer repeat count after 'x', got %q", op[1:])
		}
		return Repeat{Count: count, Body: body, Pos: pos}, nil
	case strings.HasPrefix(op, ">>"):
		speed, err := p.parseFraction(op[2:], opCol)
		if err != nil {
			return nil, err
		}
		// `>>2` means twice as fast: event durations scale by the
		// reciprocal. A non-positive speed is kept as-is and rejected at
		// expansion time.
		factor := speed
		if speed.Sign() > 0 {
			factor = speed.Inv()
		}
		return TimeScale{Factor: factor, Body: body, Pos: pos}, nil
	case strings.HasPrefix(op, "T"):
		n, err := strconv.Atoi(op[1:])
		if err != nil {
			return nil, p.errAt(opCol, "expected integer semitone count after 'T', got %q", op[1:])
		}
		return Transpose{Semitones: n, Body: body, Pos: pos}, nil
	}
	return nil, p.errAt(opCol, "unknown operator %q", op)
}

// parseTerminal parses a `:`-prefixed terminal: a note, a rest `_`, or a
// meta control `::i=` / `::v=`.
func (p *lineParser) parseTerminal() (Expr, error) {
	p.i++ // consume ':'
	if p.eof() {
		return nil, p.errHere("expected note, rest or control after ':'")
	}
	switch p.peek() {
	case ':':
		return p.parseControl()
	case '_':
		p.i++
		dur, _, err := p.parseDurationSuffix()
		if err != nil {
			return nil, err
		}
		return Rest{Dur: dur}, nil
	default:
		return p.parseNote()
	}
}

// parseNote parses `[0-9]* [a-gA-G] (#|b)? (<dur>)?`. The pitch letter is
// consumed before the accidental test so `bb` reads as B-flat, never as two
// letters.
func (p *lineParser) parseNote() (Expr, error) {
	startCol := p.col()

	octave := music.DefaultOctave
	digits := 0
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		digits++
		p.i++
	}
	if digits > 0 {
		octave, _ = strconv.Atoi(p.src[p.i-digits : p.i])
	}

	if p.eof() {
		return nil, p.errAt(startCol, "expected note letter")
	}
	letter, ok := music.LetterFromRune(rune(p.peek()))
	if !ok {
		return nil, p.errHere("%q is not a note letter", string(p.peek()))
	}
	p.i++

	acc := music.Natural
	if !p.eof() {
		switch p.peek() {
		case '#':
			acc = music.Sharp
			p.i++
		case 'b':
			acc = music.Flat
			p.i++
		}
	}

	dur, given, err := p.parseDurationSuffix()
	if err != nil {
		return nil, err
	}

	if !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '|' || c == ',' || c == '}' || c == ']':
		default:
			return nil, p.errHere("malformed note token: unexpected %q", string(c))
		}
	}

	return Note{
		Pitch:    music.Pitch{Octave: octave, Letter: letter, Accidental: acc},
		Dur:      dur,
		DurGiven: given,
	}, nil
}

// parseDurationSuffix parses an optional `<n>` or `<p/q>` duration
// multiplier. Absence means one tick.
func (p *lineParser) parseDurationSuffix() (music.Ticks, bool, error) {
	if p.eof() || p.peek() != '<' {
		return music.OneTick(), false, nil
	}
	openCol := p.col()
	p.i++
	end := strings.IndexByte(p.src[p.i:], '>')
	if end < 0 {
		return music.Ticks{}, false, p.errAt(openCol, "unbalanced '<' in duration")
	}
	text := p.src[p.i : p.i+end]
	dur, err := p.parseFraction(text, openCol+1)
	if err != nil {
		return music.Ticks{}, false, err
	}
	p.i += end + 1
	return dur, true, nil
}

// parseControl parses `::i=NAME` or `::v=INT`.
func (p *lineParser) parseControl() (Expr, error) {
	p.i++ // consume second ':'
	if p.eof() {
		return nil, p.errHere("expected control key after '::'")
	}
	key := p.peek()
	keyCol := p.col()
	p.i++
	if p.eof() || p.peek() != '=' {
		return nil, p.errHere("expected '=' after control key %q", string(key))
	}
	p.i++

	switch key {
	case 'i':
		start := p.i
		for !p.eof() && isInstrumentByte(p.peek(), p.i > start) {
			p.i++
		}
		if p.i == start {
			return nil, p.errHere("expected instrument name after 'i='")
		}
		return Control{Key: ControlInstrument, Instrument: p.src[start:p.i]}, nil
	case 'v':
		start := p.i
		for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
			p.i++
		}
		if p.i == start {
			return nil, p.errHere("expected velocity value after 'v='")
		}
		v, err := strconv.Atoi(p.src[start:p.i])
		if err != nil {
			return nil, p.errAt(start, "invalid velocity %q", p.src[start:p.i])
		}
		return Control{Key: ControlVelocity, Velocity: v}, nil
	}
	return nil, p.errAt(keyCol, "unknown control key %q, expected 'i' or 'v'", string(key))
}

func isInstrumentByte(c byte, tail bool) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		return true
	}
	if !tail {
		return false
	}
	return c >= '0' && c <= '9' || c == '_'
}

// parseReference parses a nonterminal name.
func (p *lineParser) parseReference() (Expr, error) {
	pos := Pos{Line: p.line, Col: p.col()}
	start := p.i
	for !p.eof() && isNameByte(p.peek()) {
		p.i++
	}
	if p.i == start {
		return nil, p.errHere("unexpected %q", string(p.peek()))
	}
	return Reference{Name: p.src[start:p.i], Pos: pos}, nil
}

// parseFraction parses `n` or `n/d` into an exact rational.
func (p *lineParser) parseFraction(text string, col int) (music.Ticks, error) {
	num, den, found := strings.Cut(text, "/")
	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return music.Ticks{}, p.errAt(col, "expected number, got %q", text)
	}
	if !found {
		return music.WholeTicks(n), nil
	}
	d, err := strconv.ParseInt(strings.TrimSpace(den), 10, 64)
	if err != nil {
		return music.Ticks{}, p.errAt(col, "expected fraction numerator/denominator, got %q", text)
	}
	if d == 0 {
		return music.Ticks{}, p.errAt(col, "fraction denominator cannot be zero")
	}
	return music.NewTicks(n, d), nil
}
