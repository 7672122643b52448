// Package render draws an event timeline as a piano-roll image. It is a
// consumer of the engine's output and knows nothing about the grammar.
package render

import (
	"fmt"

	"github.com/fogleman/gg"

	"github.com/jb6248/vibelive/music"
)

type color struct{ r, g, b float64 }

var colorOrange = color{1, 0.5, 0}
var colorGreen = color{0.2, 1, 0.2}
var colorBlue = color{0.5, 0.85, 1}
var colorYellow = color{0.8, 0.6, 0.05}
var colorPink = color{1, 0.6, 0.7}

var palette = []color{colorOrange, colorGreen, colorBlue, colorYellow, colorPink}

const (
	pxPerTick  = 48.0
	pxPerSemi  = 8.0
	marginX    = 20.0
	marginY    = 20.0
	minWidth   = 320.0
	noteInset  = 1.0
	background = 0.15
)

// PianoRoll draws the events onto a new drawing context: time runs left to
// right, pitch bottom to top, one color per instrument in order of first
// appearance. Rest events are skipped. Velocity maps to rectangle opacity.
func PianoRoll(events []music.Event) *gg.Context {
	lo, hi := pitchRange(events)
	rows := hi - lo + 1
	width := marginX*2 + music.TotalDuration(events).Float64()*pxPerTick
	if width < minWidth {
		width = minWidth
	}
	height := marginY*2 + float64(rows)*pxPerSemi

	dc := gg.NewContext(int(width), int(height))
	dc.SetRGB(background, background, background)
	dc.Clear()

	// Octave grid lines behind the notes.
	for s := lo; s <= hi; s++ {
		if s%12 != 0 {
			continue
		}
		y := rowY(s, hi)
		dc.SetRGBA(1, 1, 1, 0.08)
		dc.DrawLine(marginX, y, width-marginX, y)
		dc.SetLineWidth(1)
		dc.Stroke()
	}

	instruments := instrumentIndex(events)
	for _, e := range events {
		if e.IsRest() {
			continue
		}
		c := palette[instruments[e.Instrument]%len(palette)]
		alpha := 0.35 + 0.65*clamp(float64(e.Velocity)/127.0, 0, 1)
		x := marginX + e.Onset.Float64()*pxPerTick
		w := e.Duration.Float64()*pxPerTick - noteInset
		for _, p := range e.Pitches {
			y := rowY(p.Semitone(), hi)
			dc.SetRGBA(c.r, c.g, c.b, alpha)
			dc.DrawRectangle(x, y-pxPerSemi/2+noteInset, w, pxPerSemi-2*noteInset)
			dc.Fill()
		}
	}
	return dc
}

// WritePNG renders the timeline and writes it to path.
func WritePNG(events []music.Event, path string) error {
	if len(events) == 0 {
		return fmt.Errorf("no events to render")
	}
	if err := PianoRoll(events).SavePNG(path); err != nil {
		return fmt.Errorf("writing piano roll: %w", err)
	}
	return nil
}

func rowY(semitone, hi int) float64 {
	return marginY + float64(hi-semitone)*pxPerSemi + pxPerSemi/2
}

// pitchRange returns the lowest and highest sounding semitone, with a
// sensible default window when everything is a rest.
func pitchRange(events []music.Event) (int, int) {
	lo, hi := 0, 0
	found := false
	for _, e := range events {
		for _, p := range e.Pitches {
			s := p.Semitone()
			if !found {
				lo, hi = s, s
				found = true
				continue
			}
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
	}
	if !found {
		// One octave around middle C.
		return 4 * 12, 5 * 12
	}
	// Pad a couple of rows so notes never touch the border.
	return lo - 2, hi + 2
}

// instrumentIndex assigns each instrument a palette slot in order of first
// appearance so colors are stable across runs.
func instrumentIndex(events []music.Event) map[string]int {
	idx := make(map[string]int)
	for _, e := range events {
		if _, seen := idx[e.Instrument]; !seen {
			idx[e.Instrument] = len(idx)
		}
	}
	return idx
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
