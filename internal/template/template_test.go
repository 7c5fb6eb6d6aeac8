package template

import (
	"reflect"
	"testing"

	"github.com/PranavSehgalSJSU/272-Project/internal/source"
)

func TestRenderString(t *testing.T) {
	data := source.Snapshot{
		"temp_c": source.Number(42),
		"city":   source.String("Berlin"),
	}

	tests := []struct {
		name     string
		template string
		data     source.Snapshot
		expected string
	}{
		{
			name:     "substitutes number",
			template: "Temperature is {{temp_c}} degrees",
			data:     data,
			expected: "Temperature is 42 degrees",
		},
		{
			name:     "substitutes string",
			template: "Heat warning for {{city}}",
			data:     data,
			expected: "Heat warning for Berlin",
		},
		{
			name:     "substitutes repeated placeholder",
			template: "{{city}}, {{city}}!",
			data:     data,
			expected: "Berlin, Berlin!",
		},
		{
			name:     "missing variable gets marker",
			template: "Wind at {{windspeed}} in {{city}}",
			data:     data,
			expected: "Wind at [windspeed] in Berlin",
		},
		{
			name:     "nil data strips placeholders",
			template: "Temperature is {{temp_c}} degrees",
			data:     nil,
			expected: "Temperature is  degrees",
		},
		{
			name:     "empty data strips placeholders",
			template: "{{city}} alert",
			data:     source.Snapshot{},
			expected: " alert",
		},
		{
			name:     "no placeholders passes through",
			template: "Static alert text",
			data:     data,
			expected: "Static alert text",
		},
		{
			name:     "empty template",
			template: "",
			data:     data,
			expected: "",
		},
		{
			name:     "malformed placeholder left alone",
			template: "{{temp_c} and {temp_c}}",
			data:     data,
			expected: "{{temp_c} and {temp_c}}",
		},
	}

	tmpl := NewTemplater()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tmpl.RenderString(tt.template, tt.data)
			if result != tt.expected {
				t.Errorf("RenderString(%q) = %q, want %q", tt.template, result, tt.expected)
			}
		})
	}
}

func TestRenderHeaderAndBody(t *testing.T) {
	tmpl := NewTemplater()
	data := source.Snapshot{
		"temp_c": source.Number(38.5),
		"city":   source.String("Madrid"),
	}

	rendered := tmpl.Render("Heat alert: {{city}}", "It is {{temp_c}}C in {{city}}", data)
	if rendered.Header != "Heat alert: Madrid" {
		t.Errorf("Header = %q, want %q", rendered.Header, "Heat alert: Madrid")
	}
	if rendered.Body != "It is 38.5C in Madrid" {
		t.Errorf("Body = %q, want %q", rendered.Body, "It is 38.5C in Madrid")
	}
}

func TestAllVariablesResolvable(t *testing.T) {
	tmpl := NewTemplater()
	data := source.Snapshot{"temp_c": source.Number(20)}

	if !tmpl.AllVariablesResolvable("now {{temp_c}}", data) {
		t.Error("AllVariablesResolvable = false for resolvable template")
	}
	if tmpl.AllVariablesResolvable("wind {{windspeed}}", data) {
		t.Error("AllVariablesResolvable = true for unresolvable template")
	}
	if !tmpl.AllVariablesResolvable("no placeholders", data) {
		t.Error("AllVariablesResolvable = false for placeholder-free template")
	}
}

func TestVariableNames(t *testing.T) {
	tmpl := NewTemplater()

	names := tmpl.VariableNames("{{b}} {{a}} {{b}} {{c}}")
	expected := []string{"b", "a", "c"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("VariableNames = %v, want %v", names, expected)
	}

	if names := tmpl.VariableNames(""); names != nil {
		t.Errorf("VariableNames(empty) = %v, want nil", names)
	}
}
