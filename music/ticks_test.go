package music

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicks_Arithmetic(t *testing.T) {
	half := NewTicks(1, 2)
	third := NewTicks(1, 3)

	assert.Equal(t, "5/6", half.Add(third).String())
	assert.Equal(t, "1/6", half.Mul(third).String())
	assert.Equal(t, "2", half.Inv().String())
	assert.Equal(t, "3", WholeTicks(3).String())
	// Values reduce to lowest terms.
	assert.Equal(t, "2", NewTicks(4, 2).String())
}

func TestTicks_ZeroValue(t *testing.T) {
	var zero Ticks
	assert.True(t, zero.IsZero())
	assert.Equal(t, 0, zero.Sign())
	assert.Equal(t, "0", zero.String())
	assert.Equal(t, "1", zero.Add(OneTick()).String())
}

func TestTicks_Cmp(t *testing.T) {
	assert.Equal(t, -1, NewTicks(1, 2).Cmp(OneTick()))
	assert.Equal(t, 0, NewTicks(2, 4).Cmp(NewTicks(1, 2)))
	assert.Equal(t, 1, WholeTicks(2).Cmp(NewTicks(3, 2)))
}

func TestTicks_ExactnessSurvivesRepeatedAddition(t *testing.T) {
	// 1/3 added three times is exactly 1, which float arithmetic cannot do.
	third := NewTicks(1, 3)
	sum := third.Add(third).Add(third)
	assert.Equal(t, 0, sum.Cmp(OneTick()))
}

func TestTicks_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		ticks    Ticks
		expected string
	}{
		{name: "integer", ticks: WholeTicks(3), expected: `"3"`},
		{name: "fraction", ticks: NewTicks(3, 2), expected: `"3/2"`},
		{name: "zero value", ticks: Ticks{}, expected: `"0"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.ticks)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestEvent_IsRestAndEnd(t *testing.T) {
	rest := Event{Onset: WholeTicks(2), Duration: NewTicks(1, 2)}
	assert.True(t, rest.IsRest())
	assert.Equal(t, "5/2", rest.End().String())

	note := Event{Pitches: []Pitch{{Octave: 4, Letter: C}}, Duration: OneTick()}
	assert.False(t, note.IsRest())
}

func TestTotalDuration(t *testing.T) {
	events := []Event{
		{Onset: WholeTicks(0), Duration: WholeTicks(4)},
		{Onset: WholeTicks(1), Duration: OneTick()},
		{Onset: WholeTicks(3), Duration: NewTicks(1, 2)},
	}
	assert.Equal(t, "4", TotalDuration(events).String())
	assert.True(t, TotalDuration(nil).IsZero())
}
