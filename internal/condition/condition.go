// Package condition parses and evaluates rule condition expressions against
// data snapshots. The grammar is deliberately tiny: one level of comparison
// terms joined by && or || (never both in one expression), each term being
// identifier, comparison operator, numeric or quoted-string literal.
// Evaluation is fail-closed: a rule must never fire on a malformed or
// faulting condition.
package condition

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PranavSehgalSJSU/272-Project/internal/source"
)

var (
	termPattern    = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*(>=|<=|!=|==|>|<)\s*(.+?)$`)
	numberPattern  = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	stringPattern  = regexp.MustCompile(`^"[^"]*"$|^'[^']*'$`)
	logicalSplit   = regexp.MustCompile(`\s*(&&|\|\|)\s*`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// Op is a comparison operator.
type Op string

const (
	OpEQ Op = "=="
	OpNE Op = "!="
	OpGT Op = ">"
	OpLT Op = "<"
	OpGE Op = ">="
	OpLE Op = "<="
)

// ordering reports whether the operator requires numeric ordering. Equality
// operators work on both value kinds.
func (o Op) ordering() bool {
	return o == OpGT || o == OpLT || o == OpGE || o == OpLE
}

// Term is a single comparison: identifier op literal.
type Term struct {
	Ident string
	Op    Op
	Lit   source.Value
}

// Expr is a parsed condition: comparison terms joined by a single logical
// connective. All=true means && (every term must hold), All=false means ||.
type Expr struct {
	All   bool
	Terms []Term
}

// Parse validates and compiles a condition expression. An empty or blank
// expression parses to nil, which evaluates vacuously true.
func Parse(expression string) (*Expr, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return nil, nil
	}
	normalized := whitespaceRuns.ReplaceAllString(trimmed, " ")

	hasAnd := strings.Contains(normalized, "&&")
	hasOr := strings.Contains(normalized, "||")
	if hasAnd && hasOr {
		return nil, fmt.Errorf("condition mixes && and ||: %q", expression)
	}

	parts := logicalSplit.Split(normalized, -1)
	expr := &Expr{All: !hasOr, Terms: make([]Term, 0, len(parts))}
	for _, part := range parts {
		term, err := parseTerm(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		expr.Terms = append(expr.Terms, term)
	}
	return expr, nil
}

func parseTerm(raw string) (Term, error) {
	m := termPattern.FindStringSubmatch(raw)
	if m == nil {
		return Term{}, fmt.Errorf("invalid comparison %q: want identifier operator literal", raw)
	}

	ident, op, lit := m[1], Op(m[2]), strings.TrimSpace(m[3])

	switch {
	case numberPattern.MatchString(lit):
		n, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return Term{}, fmt.Errorf("invalid numeric literal %q: %w", lit, err)
		}
		return Term{Ident: ident, Op: op, Lit: source.Number(n)}, nil
	case stringPattern.MatchString(lit):
		return Term{Ident: ident, Op: op, Lit: source.String(lit[1 : len(lit)-1])}, nil
	default:
		return Term{}, fmt.Errorf("invalid literal %q: want a number or quoted string", lit)
	}
}

// Validate checks that every identifier the expression references is present
// in the snapshot. It runs before evaluation so configuration mistakes are
// reported instead of silently evaluating false.
func (e *Expr) Validate(snap source.Snapshot) error {
	if e == nil {
		return nil
	}
	for _, term := range e.Terms {
		if _, ok := snap[term.Ident]; !ok {
			return fmt.Errorf("variable %q not present in source data", term.Ident)
		}
	}
	return nil
}

// Eval evaluates the expression against the snapshot. A term whose variable
// is missing at evaluation time is false; a term applying an ordering
// operator to a string is false. Never panics, never errors: fail closed.
func (e *Expr) Eval(snap source.Snapshot) bool {
	if e == nil {
		return true
	}
	for _, term := range e.Terms {
		held := evalTerm(term, snap)
		if e.All && !held {
			return false
		}
		if !e.All && held {
			return true
		}
	}
	return e.All
}

func evalTerm(term Term, snap source.Snapshot) bool {
	val, ok := snap[term.Ident]
	if !ok {
		// Tolerate late-arriving optional fields: the term is false, the
		// expression keeps evaluating.
		return false
	}

	// Mixed or textual operands only support equality.
	if val.Kind == source.KindString || term.Lit.Kind == source.KindString {
		if term.Op.ordering() {
			slog.Warn("Ordering comparison on string operand evaluates false",
				"variable", term.Ident,
				"operator", string(term.Op),
			)
			return false
		}
		left, right := val.Render(), term.Lit.Render()
		if term.Op == OpEQ {
			return left == right
		}
		return left != right
	}

	left, right := val.Num, term.Lit.Num
	switch term.Op {
	case OpEQ:
		return left == right
	case OpNE:
		return left != right
	case OpGT:
		return left > right
	case OpLT:
		return left < right
	case OpGE:
		return left >= right
	case OpLE:
		return left <= right
	}
	return false
}

// Evaluator is the rule-facing entry point: parse, validate, evaluate.
type Evaluator struct{}

// NewEvaluator creates a condition evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate parses the expression, validates it against the snapshot, and
// evaluates it. A blank expression is vacuously true. Parse and validation
// failures are reported as errors with a false result; evaluation itself is
// fail-closed and never errors.
func (ev *Evaluator) Evaluate(expression string, snap source.Snapshot) (bool, error) {
	expr, err := Parse(expression)
	if err != nil {
		return false, err
	}
	if expr == nil {
		return true, nil
	}
	if err := expr.Validate(snap); err != nil {
		return false, err
	}
	return expr.Eval(snap), nil
}
