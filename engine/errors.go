package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jb6248/vibelive/grammar"
)

// InvalidOperatorArgumentError reports an operator whose argument cannot be
// expanded: a non-positive repeat count or a non-positive time-scale factor.
type InvalidOperatorArgumentError struct {
	Op     string
	Detail string
	Pos    grammar.Pos
	Chain  []string
}

func (e *InvalidOperatorArgumentError) Error() string {
	return fmt.Sprintf("invalid %s argument at %d:%d: %s%s",
		e.Op, e.Pos.Line, e.Pos.Col, e.Detail, chainSuffix(e.Chain))
}

// DurationUnderflowError reports a leaf whose duration composed to zero or
// below after scaling.
type DurationUnderflowError struct {
	Duration string
	Chain    []string
}

func (e *DurationUnderflowError) Error() string {
	return fmt.Sprintf("duration underflow: composed duration %s is not positive%s",
		e.Duration, chainSuffix(e.Chain))
}

// ResourceLimitError reports that expansion exceeded the configured
// recursion-depth or event-count ceiling; it bounds guarded-but-divergent
// recursion such as a repeat that re-enters its own definition.
type ResourceLimitError struct {
	Limit string
	Value int
	Chain []string
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("resource limit exceeded: %s %d%s", e.Limit, e.Value, chainSuffix(e.Chain))
}

func chainSuffix(chain []string) string {
	if len(chain) == 0 {
		return ""
	}
	return " (in " + strings.Join(chain, " -> ") + ")"
}

// Exit codes for the command-line wrapper.
const (
	ExitOK            = 0
	ExitParseError    = 1
	ExitUndefined     = 2
	ExitCycle         = 3
	ExitResourceLimit = 4
)

// ExitCode maps a Compile error to the wrapper's exit code. Expansion-time
// operator and duration errors share the generic failure code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var undefined *grammar.UndefinedSymbolError
	if errors.As(err, &undefined) {
		return ExitUndefined
	}
	var cycle *grammar.CycleError
	if errors.As(err, &cycle) {
		return ExitCycle
	}
	var limit *ResourceLimitError
	if errors.As(err, &limit) {
		return ExitResourceLimit
	}
	return ExitParseError
}
