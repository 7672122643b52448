package engine

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jb6248/vibelive/music"
)

// compile expands src with a fixed seed, failing the test on any error.
func compile(t *testing.T, src string, seed int64) []music.Event {
	t.Helper()
	events, err := Compile(src, Options{Seed: &seed})
	require.NoError(t, err)
	return events
}

// timelineJSON renders events for whole-timeline comparison; the JSON form
// carries exact rational onsets and durations.
func timelineJSON(t *testing.T, events []music.Event) string {
	t.Helper()
	data, err := json.Marshal(events)
	require.NoError(t, err)
	return string(data)
}

func TestCompile_FlatSequence(t *testing.T) {
	events := compile(t, "start song\nsong = :c<1> :d<1> :e<1>\n", 1)
	require.Len(t, events, 3)

	expected := []struct {
		onset string
		pitch string
	}{
		{"0", "C4"}, {"1", "D4"}, {"2", "E4"},
	}
	for i, ev := range events {
		assert.Equal(t, expected[i].onset, ev.Onset.String())
		assert.Equal(t, "1", ev.Duration.String())
		require.Len(t, ev.Pitches, 1)
		assert.Equal(t, expected[i].pitch, ev.Pitches[0].String())
		assert.Equal(t, "sine", ev.Instrument)
		assert.Equal(t, 50, ev.Velocity)
	}
}

func TestCompile_ReferencesAreTransparent(t *testing.T) {
	inlined := compile(t, "start song\nsong = :c<1> :d<1> :c<1> :d<1>\n", 7)
	viaRefs := compile(t, "start song\nsong = lead lead\nlead = :c<1> :d<1>\n", 7)
	assert.Equal(t, timelineJSON(t, inlined), timelineJSON(t, viaRefs))
}

func TestCompile_RepeatDecomposition(t *testing.T) {
	repeated := compile(t, "start song\nsong = [x3][:c<1> :d<1>]\n", 7)
	inlined := compile(t, "start song\nsong = :c<1> :d<1> :c<1> :d<1> :c<1> :d<1>\n", 7)
	assert.Equal(t, timelineJSON(t, inlined), timelineJSON(t, repeated))
}

func TestCompile_TransposeAdditivity(t *testing.T) {
	nested := compile(t, "start song\nsong = [T3][[T4][:c]]\n", 1)
	flat := compile(t, "start song\nsong = [T7][:c]\n", 1)
	assert.Equal(t, timelineJSON(t, flat), timelineJSON(t, nested))

	require.Len(t, nested, 1)
	assert.Equal(t, "G4", nested[0].Pitches[0].String())
}

func TestCompile_TransposeCrossesOctaves(t *testing.T) {
	events := compile(t, "start song\nsong = [T-1][:c]\n", 1)
	require.Len(t, events, 1)
	assert.Equal(t, "B3", events[0].Pitches[0].String())
}

func TestCompile_ScaleMultiplicativity(t *testing.T) {
	nested := compile(t, "start song\nsong = [>>2][[>>3][:c]]\n", 1)
	flat := compile(t, "start song\nsong = [>>6][:c]\n", 1)
	assert.Equal(t, timelineJSON(t, flat), timelineJSON(t, nested))

	require.Len(t, nested, 1)
	assert.Equal(t, "1/6", nested[0].Duration.String())
}

func TestCompile_SpeedScalesOnsetsAndDurations(t *testing.T) {
	events := compile(t, "start song\nsong = [>>2][:c<1> :d<1>]\n", 1)
	require.Len(t, events, 2)
	assert.Equal(t, "0", events[0].Onset.String())
	assert.Equal(t, "1/2", events[0].Duration.String())
	assert.Equal(t, "1/2", events[1].Onset.String())
	assert.Equal(t, "1/2", events[1].Duration.String())
}

func TestCompile_FractionalSpeedSlowsDown(t *testing.T) {
	events := compile(t, "start song\nsong = [>>1/2][:c]\n", 1)
	require.Len(t, events, 1)
	assert.Equal(t, "2", events[0].Duration.String())
}

func TestCompile_ScaleIsLexical(t *testing.T) {
	events := compile(t, "start song\nsong = [>>2][:c<1>] :d<1>\n", 1)
	require.Len(t, events, 2)
	assert.Equal(t, "1/2", events[0].Duration.String())
	assert.Equal(t, "1/2", events[1].Onset.String())
	assert.Equal(t, "1", events[1].Duration.String())
}

func TestCompile_TransposeIsLexical(t *testing.T) {
	events := compile(t, "start song\nsong = [T12][:c<1>] :d<1>\n", 1)
	require.Len(t, events, 2)
	assert.Equal(t, "C5", events[0].Pitches[0].String())
	assert.Equal(t, "D4", events[1].Pitches[0].String())
}

func TestCompile_FractionalDurations(t *testing.T) {
	events := compile(t, "start song\nsong = :c<3/2> :d<1/2>\n", 1)
	require.Len(t, events, 2)
	assert.Equal(t, "3/2", events[0].Duration.String())
	assert.Equal(t, "3/2", events[1].Onset.String())
	assert.Equal(t, "2", music.TotalDuration(events).String())
}

func TestCompile_ChordDefinition(t *testing.T) {
	events := compile(t, "start song\nsong = chord chord\nchord = :c :e :g\n", 1)
	require.Len(t, events, 2)

	first := events[0]
	require.Len(t, first.Pitches, 3)
	assert.Equal(t, "C4", first.Pitches[0].String())
	assert.Equal(t, "E4", first.Pitches[1].String())
	assert.Equal(t, "G4", first.Pitches[2].String())
	assert.Equal(t, "1", first.Duration.String())
	assert.Equal(t, "1", events[1].Onset.String())
}

func TestCompile_ChordScalesAndTransposes(t *testing.T) {
	events := compile(t, "start song\nsong = [>>2][[T12][chord]]\nchord = :c :e\n", 1)
	require.Len(t, events, 1)
	assert.Equal(t, "1/2", events[0].Duration.String())
	assert.Equal(t, "C5", events[0].Pitches[0].String())
	assert.Equal(t, "E5", events[0].Pitches[1].String())
}

func TestCompile_RestsOccupyTime(t *testing.T) {
	events := compile(t, "start song\nsong = :c<1> :_ :d<1>\n", 1)
	require.Len(t, events, 3)
	assert.True(t, events[1].IsRest())
	assert.Equal(t, "1", events[1].Onset.String())
	assert.Equal(t, "2", events[2].Onset.String())
}

func TestCompile_ControlsFlowForward(t *testing.T) {
	events := compile(t, "start song\nsong = ::v=90 :c<1> ::i=square :d<1>\n", 1)
	require.Len(t, events, 2)
	assert.Equal(t, "sine", events[0].Instrument)
	assert.Equal(t, 90, events[0].Velocity)
	assert.Equal(t, "square", events[1].Instrument)
	assert.Equal(t, 90, events[1].Velocity)
}

func TestCompile_ControlsHaveZeroDuration(t *testing.T) {
	events := compile(t, "start song\nsong = ::v=90 ::i=square :c\n", 1)
	require.Len(t, events, 1)
	assert.Equal(t, "0", events[0].Onset.String())
}

func TestCompile_ControlsFlowOutOfNesting(t *testing.T) {
	t.Run("out of a transpose body", func(t *testing.T) {
		events := compile(t, "start song\nsong = [T0][::v=99 :c<1>] :d<1>\n", 1)
		require.Len(t, events, 2)
		assert.Equal(t, 99, events[1].Velocity)
	})

	t.Run("out of a reference", func(t *testing.T) {
		events := compile(t, "start song\nsong = loud :d<1>\nloud = ::v=99 :c<1>\n", 1)
		require.Len(t, events, 2)
		assert.Equal(t, 99, events[1].Velocity)
	})

	t.Run("out of a chosen alternative", func(t *testing.T) {
		// A one-alternative choice is deterministic, so the chosen
		// branch's end state must reach the following sibling.
		events := compile(t, "start song\nsong = {::i=square :c<1>} :d<1>\n", 1)
		require.Len(t, events, 2)
		assert.Equal(t, "square", events[1].Instrument)
	})
}

func TestCompile_ChoiceIsExclusive(t *testing.T) {
	src := "start song\nsong = {:c | :d<1> :e<1>}\n"

	sawShort, sawLong := false, false
	for seed := int64(0); seed < 64; seed++ {
		events := compile(t, src, seed)
		switch len(events) {
		case 1:
			assert.Equal(t, "C4", events[0].Pitches[0].String())
			sawShort = true
		case 2:
			assert.Equal(t, "D4", events[0].Pitches[0].String())
			assert.Equal(t, "E4", events[1].Pitches[0].String())
			sawLong = true
		default:
			t.Fatalf("choice produced %d events, want 1 or 2", len(events))
		}
	}
	assert.True(t, sawShort, "no seed in range chose the first alternative")
	assert.True(t, sawLong, "no seed in range chose the second alternative")
}

func TestCompile_ChoiceIsRoughlyUniform(t *testing.T) {
	const draws = 9000
	src := fmt.Sprintf("start song\nsong = [x%d][{:c|:d|:e}]\n", draws)
	events := compile(t, src, 42)
	require.Len(t, events, draws)

	counts := make(map[music.Letter]int)
	for _, ev := range events {
		require.Len(t, ev.Pitches, 1)
		counts[ev.Pitches[0].Letter]++
	}
	for _, letter := range []music.Letter{music.C, music.D, music.E} {
		n := counts[letter]
		assert.InDelta(t, draws/3, n, draws/30, "letter %s drawn %d times", letter, n)
	}
}

func TestCompile_RepeatRedrawsEachIteration(t *testing.T) {
	// Enough iterations over a three-way choice that identical draws for
	// every repetition would be astronomically unlikely.
	events := compile(t, "start song\nsong = [x64][{:c|:d|:e}]\n", 9)
	require.Len(t, events, 64)
	distinct := make(map[music.Letter]bool)
	for _, ev := range events {
		distinct[ev.Pitches[0].Letter] = true
	}
	assert.Greater(t, len(distinct), 1)
}

func TestCompile_Deterministic(t *testing.T) {
	src := "start song\nsong = [x16][{:c|:d|:e|:f}]\n"

	t.Run("same seed, same timeline", func(t *testing.T) {
		a := compile(t, src, 123)
		b := compile(t, src, 123)
		assert.Equal(t, timelineJSON(t, a), timelineJSON(t, b))
	})

	t.Run("default seed is fixed", func(t *testing.T) {
		a, err := Compile(src, Options{})
		require.NoError(t, err)
		seed := DefaultSeed
		b, err := Compile(src, Options{Seed: &seed})
		require.NoError(t, err)
		assert.Equal(t, timelineJSON(t, a), timelineJSON(t, b))
	})

	t.Run("seeds vary the timeline", func(t *testing.T) {
		distinct := make(map[string]bool)
		for seed := int64(0); seed < 20; seed++ {
			distinct[timelineJSON(t, compile(t, src, seed))] = true
		}
		assert.Greater(t, len(distinct), 1)
	})
}

func TestCompile_RepeatedChoiceScenario(t *testing.T) {
	// Each repetition independently picks either a held note or a rest
	// followed by a note; the timeline must be some contiguous pairing of
	// those two shapes.
	events := compile(t, "start song\nsong = [x2][{ :c<2> | :_ :d }]\n", 5)
	require.NotEmpty(t, events)

	cursor := music.Ticks{}
	reps := 0
	for i := 0; i < len(events); reps++ {
		ev := events[i]
		assert.Equal(t, 0, ev.Onset.Cmp(cursor), "repetition %d does not start where the previous ended", reps)

		if !ev.IsRest() {
			assert.Equal(t, "C4", ev.Pitches[0].String())
			assert.Equal(t, "2", ev.Duration.String())
			cursor = ev.End()
			i++
			continue
		}

		assert.Equal(t, "1", ev.Duration.String())
		require.Less(t, i+1, len(events), "rest alternative must be followed by its note")
		next := events[i+1]
		assert.Equal(t, "D4", next.Pitches[0].String())
		assert.Equal(t, "1", next.Duration.String())
		assert.Equal(t, 0, next.Onset.Cmp(ev.End()))
		cursor = next.End()
		i += 2
	}
	assert.Equal(t, 2, reps)
}

func TestCompile_RepeatedChoiceHeldNoteTimeline(t *testing.T) {
	// Find a seed where both repetitions draw the held note, then pin the
	// exact timeline for it.
	src := "start song\nsong = [x2][{ :c<2> | :_ :d }]\n"
	for seed := int64(0); seed < 256; seed++ {
		events := compile(t, src, seed)
		if len(events) != 2 || events[0].IsRest() || events[1].IsRest() {
			continue
		}

		assert.Equal(t, "0", events[0].Onset.String())
		assert.Equal(t, "2", events[0].Duration.String())
		assert.Equal(t, "C4", events[0].Pitches[0].String())
		assert.Equal(t, "2", events[1].Onset.String())
		assert.Equal(t, "2", events[1].Duration.String())
		assert.Equal(t, "C4", events[1].Pitches[0].String())
		assert.Equal(t, "4", music.TotalDuration(events).String())
		return
	}
	t.Fatal("no seed in range drew the held note twice")
}

func TestCompile_OnsetsAreSorted(t *testing.T) {
	events := compile(t, "start song\nsong = [x4][[>>3][:c<1> :_ :d<2>]] :e\n", 3)
	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].Onset.Cmp(events[i].Onset), 0)
	}
}
