package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetsuite/vetflow/pkg/models"
)

func testExecutionContext() models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID:  "exec-1",
		WorkflowName: "New patient welcome",
		Variables: map[string]any{
			"recordId": "rec-42",
			"retries":  float64(3),
		},
		TriggerData: map[string]any{
			"ownerEmail":  "owner@clinic.test",
			"patientName": "Rex",
		},
	}
}

func TestRenderWithContext(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"trigger data", "{{.trigger.ownerEmail}}", "owner@clinic.test"},
		{"trigger_data alias", "{{.trigger_data.patientName}}", "Rex"},
		{"variables", "{{.variables.recordId}}", "rec-42"},
		{"vars alias", "{{.vars.recordId}}", "rec-42"},
		{"execution metadata", "{{.execution.workflow_name}}", "New patient welcome"},
		{"mixed text", "Welcome {{.trigger.patientName}}!", "Welcome Rex!"},
		{"number coercion", "{{.vars.retries}}", float64(3)},
		{"bool coercion", "{{if .vars.recordId}}true{{else}}false{{end}}", true},
		{"upper helper", "{{upper .trigger.patientName}}", "REX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderWithContext(tt.input, testExecutionContext())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderCoercesJSON(t *testing.T) {
	got, err := Render(`{"patient": "{{.name}}"}`, map[string]any{"name": "Rex"})
	require.NoError(t, err)

	m, ok := got.(map[string]any)
	require.True(t, ok, "JSON-shaped output decodes to a map")
	assert.Equal(t, "Rex", m["patient"])
}

func TestRenderParseError(t *testing.T) {
	_, err := Render("{{.unterminated", nil)
	require.Error(t, err)
}

func TestNeedsTemplating(t *testing.T) {
	assert.True(t, NeedsTemplating("hello {{.name}}"))
	assert.False(t, NeedsTemplating("hello name"))
}

func TestRenderConfigWalksNestedValues(t *testing.T) {
	config := map[string]any{
		"to":      "{{.trigger.ownerEmail}}",
		"subject": "static subject",
		"fields": map[string]any{
			"patient": "{{.trigger.patientName}}",
		},
		"tags":  []any{"{{.vars.recordId}}", "fixed"},
		"count": 7,
	}

	rendered, err := RenderConfig(config, testExecutionContext())
	require.NoError(t, err)

	assert.Equal(t, "owner@clinic.test", rendered["to"])
	assert.Equal(t, "static subject", rendered["subject"])
	assert.Equal(t, 7, rendered["count"])

	fields := rendered["fields"].(map[string]any)
	assert.Equal(t, "Rex", fields["patient"])

	tags := rendered["tags"].([]any)
	assert.Equal(t, "rec-42", tags[0])
	assert.Equal(t, "fixed", tags[1])
}

func TestRenderConfigPropagatesErrors(t *testing.T) {
	_, err := RenderConfig(map[string]any{"bad": "{{.broken"}, testExecutionContext())
	require.Error(t, err)
}
