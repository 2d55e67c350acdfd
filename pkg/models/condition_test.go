package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionEvaluate(t *testing.T) {
	scope := map[string]any{
		"species":   "canine",
		"weightKg":  float64(32),
		"ownerName": "",
		"tags":      []any{"senior"},
		"vaccinated": true,
	}

	tests := []struct {
		name      string
		condition Condition
		expected  bool
	}{
		{"equals match", Condition{Field: "species", Operator: OperatorEquals, Value: "canine"}, true},
		{"equals mismatch", Condition{Field: "species", Operator: OperatorEquals, Value: "feline"}, false},
		{"equals coerces numbers", Condition{Field: "weightKg", Operator: OperatorEquals, Value: "32"}, true},
		{"not_equals", Condition{Field: "species", Operator: OperatorNotEquals, Value: "feline"}, true},
		{"greater_than", Condition{Field: "weightKg", Operator: OperatorGreaterThan, Value: 30}, true},
		{"greater_than false", Condition{Field: "weightKg", Operator: OperatorGreaterThan, Value: 40}, false},
		{"less_than", Condition{Field: "weightKg", Operator: OperatorLessThan, Value: 40}, true},
		{"less_than string operand", Condition{Field: "weightKg", Operator: OperatorLessThan, Value: "40"}, true},
		{"contains", Condition{Field: "species", Operator: OperatorContains, Value: "can"}, true},
		{"not_contains", Condition{Field: "species", Operator: OperatorNotContains, Value: "fel"}, true},
		{"is_empty on empty string", Condition{Field: "ownerName", Operator: OperatorIsEmpty}, true},
		{"is_empty on missing field", Condition{Field: "missing", Operator: OperatorIsEmpty}, true},
		{"is_not_empty on bool true", Condition{Field: "vaccinated", Operator: OperatorIsNotEmpty}, true},
		{"is_not_empty on slice", Condition{Field: "tags", Operator: OperatorIsNotEmpty}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.condition.Evaluate(scope)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConditionEvaluateErrors(t *testing.T) {
	scope := map[string]any{"species": "canine"}

	_, err := Condition{Field: "species", Operator: OperatorGreaterThan, Value: 3}.Evaluate(scope)
	require.Error(t, err, "non-numeric comparison must error")

	_, err = Condition{Field: "species", Operator: "between", Value: 3}.Evaluate(scope)
	require.Error(t, err, "unknown operator must error")
}

func TestEvaluateConditionsFolding(t *testing.T) {
	scope := map[string]any{"species": "canine", "weightKg": float64(32)}

	tests := []struct {
		name       string
		conditions []Condition
		expected   bool
	}{
		{"empty list is true", nil, true},
		{
			"implicit AND",
			[]Condition{
				{Field: "species", Operator: OperatorEquals, Value: "canine"},
				{Field: "weightKg", Operator: OperatorGreaterThan, Value: 30},
			},
			true,
		},
		{
			"AND short on false",
			[]Condition{
				{Field: "species", Operator: OperatorEquals, Value: "feline"},
				{Field: "weightKg", Operator: OperatorGreaterThan, Value: 30},
			},
			false,
		},
		{
			"OR rescues false aggregate",
			[]Condition{
				{Field: "species", Operator: OperatorEquals, Value: "feline"},
				{Field: "weightKg", Operator: OperatorGreaterThan, Value: 30, LogicalOperator: "OR"},
			},
			true,
		},
		{
			"left to right with mixed operators",
			[]Condition{
				{Field: "species", Operator: OperatorEquals, Value: "canine"},
				{Field: "weightKg", Operator: OperatorLessThan, Value: 10, LogicalOperator: "OR"},
				{Field: "weightKg", Operator: OperatorGreaterThan, Value: 100},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EvaluateConditions(tt.conditions, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluationScopeVariablesWin(t *testing.T) {
	scope := EvaluationScope(
		map[string]any{"species": "canine"},
		map[string]any{"species": "feline", "clinic": "north"},
	)

	assert.Equal(t, "canine", scope["species"])
	assert.Equal(t, "north", scope["clinic"])
}
