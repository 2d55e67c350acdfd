package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionOperator compares a field from the evaluation scope against a
// configured value.
type ConditionOperator string

const (
	OperatorEquals      ConditionOperator = "equals"
	OperatorNotEquals   ConditionOperator = "not_equals"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorContains    ConditionOperator = "contains"
	OperatorNotContains ConditionOperator = "not_contains"
	OperatorIsEmpty     ConditionOperator = "is_empty"
	OperatorIsNotEmpty  ConditionOperator = "is_not_empty"
)

// Condition is one comparison within a condition action. LogicalOperator
// combines this condition's result with the running aggregate: AND unless
// set to "OR". Conditions fold left to right with no precedence beyond
// evaluation order.
type Condition struct {
	Field           string            `json:"field"`
	Operator        ConditionOperator `json:"operator" validate:"required"`
	Value           any               `json:"value,omitempty"`
	LogicalOperator string            `json:"logicalOperator,omitempty"`
}

// EvaluationScope builds the lookup map for condition evaluation: trigger
// data first, variables overlaid so they win on key collisions.
func EvaluationScope(variables, triggerData map[string]any) map[string]any {
	scope := make(map[string]any, len(variables)+len(triggerData))
	for k, v := range triggerData {
		scope[k] = v
	}

	for k, v := range variables {
		scope[k] = v
	}

	return scope
}

// EvaluateConditions folds the condition list left to right against scope.
// An empty list evaluates to true.
func EvaluateConditions(conditions []Condition, scope map[string]any) (bool, error) {
	result := true

	for i, condition := range conditions {
		matched, err := condition.Evaluate(scope)
		if err != nil {
			return false, fmt.Errorf("condition %d: %w", i, err)
		}

		if i == 0 {
			result = matched

			continue
		}

		if strings.EqualFold(condition.LogicalOperator, "OR") {
			result = result || matched
		} else {
			result = result && matched
		}
	}

	return result, nil
}

// Evaluate applies the condition's operator to the field value from scope.
func (c Condition) Evaluate(scope map[string]any) (bool, error) {
	value, exists := scope[c.Field]

	switch c.Operator {
	case OperatorEquals:
		return stringify(value) == stringify(c.Value), nil
	case OperatorNotEquals:
		return stringify(value) != stringify(c.Value), nil
	case OperatorGreaterThan:
		left, right, err := numericPair(value, c.Value)
		if err != nil {
			return false, err
		}

		return left > right, nil
	case OperatorLessThan:
		left, right, err := numericPair(value, c.Value)
		if err != nil {
			return false, err
		}

		return left < right, nil
	case OperatorContains:
		return strings.Contains(stringify(value), stringify(c.Value)), nil
	case OperatorNotContains:
		return !strings.Contains(stringify(value), stringify(c.Value)), nil
	case OperatorIsEmpty:
		return isEmpty(value, exists), nil
	case OperatorIsNotEmpty:
		return !isEmpty(value, exists), nil
	default:
		return false, fmt.Errorf("unsupported condition operator: %s", c.Operator)
	}
}

func stringify(value any) string {
	if value == nil {
		return ""
	}

	return fmt.Sprintf("%v", value)
}

func numericPair(left, right any) (float64, float64, error) {
	l, err := toFloat(left)
	if err != nil {
		return 0, 0, err
	}

	r, err := toFloat(right)
	if err != nil {
		return 0, 0, err
	}

	return l, r, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot coerce %q to number: %w", v, err)
		}

		return parsed, nil
	case nil:
		return 0, fmt.Errorf("cannot coerce nil to number")
	default:
		return 0, fmt.Errorf("cannot coerce %T to number", value)
	}
}

func isEmpty(value any, exists bool) bool {
	if !exists || value == nil {
		return true
	}

	switch v := value.(type) {
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	case int:
		return v == 0
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
