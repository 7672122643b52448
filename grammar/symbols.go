package grammar

import (
	"fmt"
	"sort"
	"strings"
)

// Grammar is the symbol table produced by Parse: a start symbol plus named
// definitions. It is immutable once parsing and validation complete;
// expansion never mutates it.
type Grammar struct {
	Start string
	defs  map[string]Expr
	order []string
}

// NewGrammar returns an empty symbol table.
func NewGrammar() *Grammar {
	return &Grammar{defs: make(map[string]Expr)}
}

// Define binds name to expr. Redefinition is last-wins: any prior binding
// becomes unreachable.
func (g *Grammar) Define(name string, expr Expr) {
	if _, seen := g.defs[name]; !seen {
		g.order = append(g.order, name)
	}
	g.defs[name] = expr
}

// Resolve returns the expression bound to name.
func (g *Grammar) Resolve(name string) (Expr, error) {
	expr, ok := g.defs[name]
	if !ok {
		return nil, &UndefinedSymbolError{Name: name}
	}
	return expr, nil
}

// Names returns the defined symbol names in definition order.
func (g *Grammar) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// UndefinedSymbolError reports a reference to a name with no definition,
// along with the reference chain that reached it.
type UndefinedSymbolError struct {
	Name  string
	Chain []string
}

func (e *UndefinedSymbolError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("undefined symbol %q", e.Name)
	}
	return fmt.Sprintf("undefined symbol %q (via %s)", e.Name, strings.Join(e.Chain, " -> "))
}

// CycleError reports an unguarded reference cycle among the named symbols,
// detected statically before any expansion.
type CycleError struct {
	Symbols []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("reference cycle with no bounding operator: %s", strings.Join(e.Symbols, " -> "))
}

// Validate checks the table after parsing completes: every reference must
// resolve, and the reduced reference graph must be acyclic. The reduced
// graph keeps only unguarded references: edges through Sequence, TimeScale
// and Transpose. A Repeat bounds its body with a finite count and a Choice
// only requires a reference present in every alternative, so references
// guarded by either contribute no static edge; runaway guarded recursion is
// caught at expansion time by the resource ceiling instead.
func (g *Grammar) Validate() error {
	if g.Start != "" {
		if err := g.checkResolved(g.Start, nil, make(map[string]bool)); err != nil {
			return err
		}
	}
	for _, name := range g.order {
		if err := g.checkResolved(name, nil, make(map[string]bool)); err != nil {
			return err
		}
	}
	return g.checkCycles()
}

// checkResolved walks every reference reachable from name, tracking the
// chain for diagnostics.
func (g *Grammar) checkResolved(name string, chain []string, done map[string]bool) error {
	if done[name] {
		return nil
	}
	expr, ok := g.defs[name]
	if !ok {
		return &UndefinedSymbolError{Name: name, Chain: chain}
	}
	done[name] = true
	chain = append(chain, name)
	for _, ref := range collectReferences(expr) {
		if err := g.checkResolved(ref, chain, done); err != nil {
			return err
		}
	}
	return nil
}

// collectReferences returns every referenced name under expr, guarded or not.
func collectReferences(expr Expr) []string {
	var refs []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case Sequence:
			for _, t := range n.Terms {
				walk(t)
			}
		case Reference:
			refs = append(refs, n.Name)
		case Repeat:
			walk(n.Body)
		case Choice:
			for _, alt := range n.Alternatives {
				walk(alt)
			}
		case TimeScale:
			walk(n.Body)
		case Transpose:
			walk(n.Body)
		}
	}
	walk(expr)
	return refs
}

// requiredReferences returns the unguarded references of expr: those that
// every expansion of expr must reach regardless of random draws or repeat
// counts.
func requiredReferences(expr Expr) map[string]bool {
	out := make(map[string]bool)
	switch n := expr.(type) {
	case Sequence:
		for _, t := range n.Terms {
			for ref := range requiredReferences(t) {
				out[ref] = true
			}
		}
	case Reference:
		out[n.Name] = true
	case TimeScale:
		return requiredReferences(n.Body)
	case Transpose:
		return requiredReferences(n.Body)
	case Choice:
		// A reference is required only if present in every alternative.
		if len(n.Alternatives) == 0 {
			return out
		}
		common := requiredReferences(n.Alternatives[0])
		for _, alt := range n.Alternatives[1:] {
			next := requiredReferences(alt)
			for ref := range common {
				if !next[ref] {
					delete(common, ref)
				}
			}
		}
		return common
	case Repeat:
		// Finite count: bounding, no static edge.
	}
	return out
}

// checkCycles runs a depth-first search over the reduced graph and reports
// the first cycle found.
func (g *Grammar) checkCycles() error {
	edges := make(map[string][]string, len(g.defs))
	for name, expr := range g.defs {
		required := requiredReferences(expr)
		targets := make([]string, 0, len(required))
		for ref := range required {
			targets = append(targets, ref)
		}
		sort.Strings(targets)
		edges[name] = targets
	}

	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[string]int, len(g.defs))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = grey
		stack = append(stack, name)
		for _, next := range edges[name] {
			switch color[next] {
			case white:
				if err := visit(next); err != nil {
					return err
				}
			case grey:
				// Slice the stack back to the cycle entry point.
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				cycle = append(cycle, next)
				return &CycleError{Symbols: cycle}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for _, name := range g.order {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}
