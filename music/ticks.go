package music

import (
	"fmt"
	"math/big"
)

// Ticks is an exact rational count of base ticks. The zero value is zero
// ticks. All operations return new values; a Ticks is never mutated after
// creation, so values may be freely shared.
type Ticks struct {
	rat *big.Rat
}

// NewTicks returns num/den ticks. den must be non-zero.
func NewTicks(num, den int64) Ticks {
	return Ticks{rat: big.NewRat(num, den)}
}

// WholeTicks returns n ticks.
func WholeTicks(n int64) Ticks {
	return Ticks{rat: big.NewRat(n, 1)}
}

// OneTick is the nominal duration of a leaf note before any scaling.
func OneTick() Ticks {
	return WholeTicks(1)
}

func (t Ticks) value() *big.Rat {
	if t.rat == nil {
		return new(big.Rat)
	}
	return t.rat
}

// Add returns t + u.
func (t Ticks) Add(u Ticks) Ticks {
	return Ticks{rat: new(big.Rat).Add(t.value(), u.value())}
}

// Mul returns t * u.
func (t Ticks) Mul(u Ticks) Ticks {
	return Ticks{rat: new(big.Rat).Mul(t.value(), u.value())}
}

// Inv returns 1/t. t must be non-zero.
func (t Ticks) Inv() Ticks {
	return Ticks{rat: new(big.Rat).Inv(t.value())}
}

// Cmp compares t and u, returning -1, 0 or +1.
func (t Ticks) Cmp(u Ticks) int {
	return t.value().Cmp(u.value())
}

// Sign returns -1, 0 or +1 depending on the sign of t.
func (t Ticks) Sign() int {
	return t.value().Sign()
}

// IsZero reports whether t is exactly zero ticks.
func (t Ticks) IsZero() bool {
	return t.Sign() == 0
}

// Float64 returns the nearest float64 value, for rendering only; the engine
// itself never rounds.
func (t Ticks) Float64() float64 {
	f, _ := t.value().Float64()
	return f
}

// String renders the exact value, "3" for integers and "3/2" otherwise.
func (t Ticks) String() string {
	return t.value().RatString()
}

// MarshalJSON renders the exact value as a JSON string so fractional tick
// counts survive serialization without rounding.
func (t Ticks) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", t.String())), nil
}
