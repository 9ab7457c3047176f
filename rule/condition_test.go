package rule

import "testing"

func TestMatchesEmptyConditions(t *testing.T) {
	if !Matches(nil, map[string]any{"anything": 1}) {
		t.Fatal("empty condition list should match any payload")
	}
	if !Matches([]Condition{}, nil) {
		t.Fatal("empty condition list should match nil payload")
	}
}

func TestMatchesOperators(t *testing.T) {
	payload := map[string]any{
		"status": "rejected",
		"score":  7.5,
		"count":  3,
		"source": "linkedin",
		"stage":  "phone screen",
		"nested": map[string]any{"city": "Berlin"},
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals match", Condition{"status", OpEquals, "rejected"}, true},
		{"equals miss", Condition{"status", OpEquals, "hired"}, false},
		{"equals numeric coercion", Condition{"count", OpEquals, "3"}, true},
		{"equals numeric coercion float", Condition{"score", OpEquals, "7.5"}, true},
		{"not_equals", Condition{"status", OpNotEquals, "hired"}, true},
		{"not_equals miss", Condition{"status", OpNotEquals, "rejected"}, false},
		{"contains", Condition{"stage", OpContains, "phone"}, true},
		{"contains miss", Condition{"stage", OpContains, "onsite"}, false},
		{"not_contains", Condition{"stage", OpNotContains, "onsite"}, true},
		{"greater_than", Condition{"score", OpGreaterThan, 5}, true},
		{"greater_than equal is false", Condition{"score", OpGreaterThan, 7.5}, false},
		{"greater_than string operand", Condition{"score", OpGreaterThan, "5"}, true},
		{"less_than", Condition{"count", OpLessThan, 10}, true},
		{"less_than non-numeric field", Condition{"status", OpLessThan, 10}, false},
		{"in", Condition{"source", OpIn, []any{"linkedin", "referral"}}, true},
		{"in miss", Condition{"source", OpIn, []any{"indeed"}}, false},
		{"in typed slice", Condition{"source", OpIn, []string{"linkedin"}}, true},
		{"in numeric coercion", Condition{"count", OpIn, []any{"3"}}, true},
		{"not_in", Condition{"source", OpNotIn, []any{"indeed"}}, true},
		{"not_in member", Condition{"source", OpNotIn, []any{"linkedin"}}, false},
		{"exists", Condition{"status", OpExists, nil}, true},
		{"not_exists absent field", Condition{"missing", OpNotExists, nil}, true},
		{"not_exists present field", Condition{"status", OpNotExists, nil}, false},
		{"dotted path", Condition{"nested.city", OpEquals, "Berlin"}, true},
		{"dotted path miss", Condition{"nested.country", OpEquals, "DE"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches([]Condition{tt.cond}, payload)
			if got != tt.want {
				t.Fatalf("Matches(%+v) = %v, want %v", tt.cond, got, tt.want)
			}
		})
	}
}

func TestMatchesAbsentFieldSatisfiesOnlyNotExists(t *testing.T) {
	payload := map[string]any{"present": 1}

	for _, op := range Operators {
		cond := Condition{Field: "absent", Operator: op, Value: 1}
		got := Matches([]Condition{cond}, payload)
		want := op == OpNotExists
		if got != want {
			t.Fatalf("operator %s on absent field = %v, want %v", op, got, want)
		}
	}
}

func TestMatchesInWithNonArrayValue(t *testing.T) {
	payload := map[string]any{"source": "linkedin"}

	// A non-array comparison value evaluates false for both in and not_in.
	if Matches([]Condition{{"source", OpIn, "linkedin"}}, payload) {
		t.Fatal("in with scalar comparison should be false")
	}
	if Matches([]Condition{{"source", OpNotIn, "indeed"}}, payload) {
		t.Fatal("not_in with scalar comparison should be false")
	}
}

func TestMatchesConjunction(t *testing.T) {
	payload := map[string]any{"status": "rejected", "score": 2}

	both := []Condition{
		{"status", OpEquals, "rejected"},
		{"score", OpLessThan, 5},
	}
	if !Matches(both, payload) {
		t.Fatal("expected both conditions to hold")
	}

	oneFails := []Condition{
		{"status", OpEquals, "rejected"},
		{"score", OpGreaterThan, 5},
	}
	if Matches(oneFails, payload) {
		t.Fatal("one failing condition should fail the set")
	}
}

func TestMatchesUnknownOperator(t *testing.T) {
	payload := map[string]any{"f": 1}
	if Matches([]Condition{{"f", Operator("matches_regex"), ".*"}}, payload) {
		t.Fatal("unknown operator should never match")
	}
}

func TestLooseEqualBooleans(t *testing.T) {
	payload := map[string]any{"flag": true}
	if !Matches([]Condition{{"flag", OpEquals, "true"}}, payload) {
		t.Fatal("bool should compare against its string form")
	}
}
