package engine

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/jb6248/vibelive/grammar"
	"github.com/jb6248/vibelive/music"
)

// DefaultSeed is used when the caller supplies no seed, so repeated runs of
// the same source are byte-identical by default.
const DefaultSeed int64 = 0x5EED

// Options configures a Compile run.
type Options struct {
	// Start overrides the grammar's start directive when non-empty.
	Start string
	// Seed seeds the random source for choice draws. Nil means DefaultSeed.
	Seed *int64
	// Entropy seeds from the wall clock instead; it takes precedence over
	// Seed and must be requested explicitly.
	Entropy bool
	// Initial is the performance state at the start of expansion.
	// Nil means music.DefaultState().
	Initial *music.State
	// Limits bounds the expansion. The zero value means DefaultLimits.
	Limits Limits
}

// Compile parses source, validates the symbol table, and expands the start
// symbol into a flat event timeline sorted by onset, stable in emission
// order for equal onsets. On failure it returns exactly one diagnostic and
// no events; there is no partial-success mode.
func Compile(source string, opts Options) ([]music.Event, error) {
	g, err := grammar.Parse(source)
	if err != nil {
		return nil, err
	}
	if opts.Start != "" {
		g.Start = opts.Start
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	root, err := g.Resolve(g.Start)
	if err != nil {
		return nil, err
	}

	seed := DefaultSeed
	switch {
	case opts.Entropy:
		seed = time.Now().UnixNano()
	case opts.Seed != nil:
		seed = *opts.Seed
	}

	initial := music.DefaultState()
	if opts.Initial != nil {
		initial = *opts.Initial
	}

	limits := opts.Limits
	if limits.MaxDepth <= 0 {
		limits.MaxDepth = DefaultLimits().MaxDepth
	}
	if limits.MaxEvents <= 0 {
		limits.MaxEvents = DefaultLimits().MaxEvents
	}

	x := &expander{
		g:      g,
		rng:    rand.New(rand.NewSource(seed)),
		limits: limits,
		chain:  []string{g.Start},
	}
	events, err := x.run(root, initial)
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", g.Start, err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Onset.Cmp(events[j].Onset) < 0
	})
	return events, nil
}
