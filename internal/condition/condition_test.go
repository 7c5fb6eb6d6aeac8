package condition

import (
	"strings"
	"testing"

	"github.com/PranavSehgalSJSU/272-Project/internal/source"
)

func testSnapshot() source.Snapshot {
	return source.Snapshot{
		"temp_c":    source.Number(42),
		"humidity":  source.Number(65),
		"pressure":  source.Number(1013),
		"city":      source.String("Berlin"),
		"condition": source.String("Clear"),
		"status":    source.String("OK"),
	}
}

func TestEvaluateOperators(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{name: "greater than holds", expression: "temp_c > 40", expected: true},
		{name: "greater than fails", expression: "temp_c > 50", expected: false},
		{name: "less than holds", expression: "humidity < 70", expected: true},
		{name: "less than fails", expression: "humidity < 65", expected: false},
		{name: "greater or equal at boundary", expression: "temp_c >= 42", expected: true},
		{name: "less or equal at boundary", expression: "humidity <= 65", expected: true},
		{name: "numeric equality", expression: "pressure == 1013", expected: true},
		{name: "numeric inequality", expression: "pressure != 1000", expected: true},
		{name: "string equality double quotes", expression: `status == "OK"`, expected: true},
		{name: "string equality single quotes", expression: "status == 'OK'", expected: true},
		{name: "string equality fails", expression: `status == "DOWN"`, expected: false},
		{name: "string inequality", expression: `condition != "Rain"`, expected: true},
		{name: "negative literal", expression: "temp_c > -10", expected: true},
		{name: "decimal literal", expression: "temp_c >= 41.5", expected: true},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ev.Evaluate(tt.expression, snap)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expression, err)
			}
			if result != tt.expected {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expression, result, tt.expected)
			}
		})
	}
}

func TestEvaluateLogicalConnectives(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name       string
		expression string
		expected   bool
	}{
		{name: "and all hold", expression: "temp_c > 40 && humidity < 70", expected: true},
		{name: "and one fails", expression: "temp_c > 40 && humidity > 70", expected: false},
		{name: "or one holds", expression: "temp_c > 100 || humidity < 70", expected: true},
		{name: "or none hold", expression: "temp_c > 100 || humidity > 100", expected: false},
		{name: "three terms anded", expression: "temp_c > 40 && humidity < 70 && pressure == 1013", expected: true},
		{name: "string and number mixed terms", expression: `status == "OK" && temp_c > 40`, expected: true},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ev.Evaluate(tt.expression, snap)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expression, err)
			}
			if result != tt.expected {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expression, result, tt.expected)
			}
		})
	}
}

func TestEvaluateEmptyConditionIsTrue(t *testing.T) {
	ev := NewEvaluator()
	for _, expression := range []string{"", "   ", "\t\n"} {
		result, err := ev.Evaluate(expression, testSnapshot())
		if err != nil {
			t.Fatalf("Evaluate(%q) error = %v", expression, err)
		}
		if !result {
			t.Errorf("Evaluate(%q) = false, want true", expression)
		}
	}
}

func TestEvaluateRejectsMalformedExpressions(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantErr    string
	}{
		{name: "mixed connectives", expression: "a > 1 && b > 2 || c > 3", wantErr: "mixes"},
		{name: "bare identifier", expression: "temp_c", wantErr: "invalid comparison"},
		{name: "unquoted string literal", expression: "city == Berlin", wantErr: "invalid literal"},
		{name: "unsupported operator", expression: "temp_c = 42", wantErr: "invalid comparison"},
		{name: "missing right side", expression: "temp_c >", wantErr: "invalid comparison"},
		{name: "unknown variable", expression: "windspeed > 10", wantErr: "not present"},
	}

	ev := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ev.Evaluate(tt.expression, testSnapshot())
			if err == nil {
				t.Fatalf("Evaluate(%q) expected error, got result %v", tt.expression, result)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Evaluate(%q) error = %q, want substring %q", tt.expression, err, tt.wantErr)
			}
			if result {
				t.Errorf("Evaluate(%q) = true on error, want false", tt.expression)
			}
		})
	}
}

func TestEvalFailsClosed(t *testing.T) {
	snap := testSnapshot()

	t.Run("missing variable at evaluation is false", func(t *testing.T) {
		expr, err := Parse("windspeed > 10")
		if err != nil {
			t.Fatalf("Parse error = %v", err)
		}
		if expr.Eval(snap) {
			t.Error("Eval with missing variable = true, want false")
		}
	})

	t.Run("missing variable in or expression skips the term", func(t *testing.T) {
		expr, err := Parse("windspeed > 10 || temp_c > 40")
		if err != nil {
			t.Fatalf("Parse error = %v", err)
		}
		if !expr.Eval(snap) {
			t.Error("Eval = false, want true from the second term")
		}
	})

	t.Run("ordering on string operand is false not a fault", func(t *testing.T) {
		expr, err := Parse(`city > "Aachen"`)
		if err != nil {
			t.Fatalf("Parse error = %v", err)
		}
		if expr.Eval(snap) {
			t.Error("ordering comparison on string = true, want false")
		}
	})

	t.Run("nil expression is vacuously true", func(t *testing.T) {
		var expr *Expr
		if !expr.Eval(snap) {
			t.Error("nil expression Eval = false, want true")
		}
	})
}

func TestParseShape(t *testing.T) {
	t.Run("and sets All", func(t *testing.T) {
		expr, err := Parse("a > 1 && b > 2")
		if err != nil {
			t.Fatalf("Parse error = %v", err)
		}
		if !expr.All {
			t.Error("All = false, want true")
		}
		if len(expr.Terms) != 2 {
			t.Errorf("len(Terms) = %d, want 2", len(expr.Terms))
		}
	})

	t.Run("or clears All", func(t *testing.T) {
		expr, err := Parse("a > 1 || b > 2")
		if err != nil {
			t.Fatalf("Parse error = %v", err)
		}
		if expr.All {
			t.Error("All = true, want false")
		}
	})

	t.Run("whitespace is normalized", func(t *testing.T) {
		expr, err := Parse("  a   >=   1  ")
		if err != nil {
			t.Fatalf("Parse error = %v", err)
		}
		if expr.Terms[0].Ident != "a" || expr.Terms[0].Op != OpGE {
			t.Errorf("Term = %+v, want a >= 1", expr.Terms[0])
		}
	})
}
