// Package template renders dynamic values inside action configs. Templates
// see the execution's variables and trigger data plus a couple of helper
// functions.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/vetsuite/vetflow/pkg/models"
)

// RenderWithContext renders input against the execution's data. Both
// "variables" and the shorter "vars" name resolve to execution variables.
func RenderWithContext(input string, executionCtx models.ExecutionContext) (any, error) {
	data := map[string]any{
		"variables":    executionCtx.Variables,
		"vars":         executionCtx.Variables,
		"trigger_data": executionCtx.TriggerData,
		"trigger":      executionCtx.TriggerData,
		"execution": map[string]any{
			"id":            executionCtx.ExecutionID,
			"workflow_name": executionCtx.WorkflowName,
		},
	}

	return Render(input, data)
}

// Render executes the template and coerces the textual result back into a
// JSON value, number, or boolean when it parses as one.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err == nil {
			return jsonResult, nil
		}
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// NeedsTemplating reports whether a string references execution data.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{")
}

// RenderConfig walks a config map and renders every string value that
// contains a template expression. Nested maps and slices are walked too.
func RenderConfig(config map[string]any, executionCtx models.ExecutionContext) (map[string]any, error) {
	rendered, err := renderValue(config, executionCtx)
	if err != nil {
		return nil, err
	}

	out, ok := rendered.(map[string]any)
	if !ok {
		return config, nil
	}

	return out, nil
}

func renderValue(value any, executionCtx models.ExecutionContext) (any, error) {
	switch v := value.(type) {
	case string:
		if !NeedsTemplating(v) {
			return v, nil
		}

		return RenderWithContext(v, executionCtx)
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, inner := range v {
			rendered, err := renderValue(inner, executionCtx)
			if err != nil {
				return nil, err
			}

			out[key] = rendered
		}

		return out, nil
	case []any:
		out := make([]any, len(v))

		for i, inner := range v {
			rendered, err := renderValue(inner, executionCtx)
			if err != nil {
				return nil, err
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return value, nil
	}
}
