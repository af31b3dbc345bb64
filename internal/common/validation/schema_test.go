package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema() JSONSchema {
	return JSONSchema{
		Type:     "object",
		Required: []string{"orderId", "intake"},
		Properties: map[string]Property{
			"orderId": {Type: "string", MinLength: IntPtr(1)},
			"status":  {Type: "string", Enum: []string{"pending", "confirmed"}},
			"age":     {Types: []string{"string", "number"}},
			"intake": {
				Type: "object",
				Properties: map[string]Property{
					"sleepEnergy": {
						Type:                 "object",
						AdditionalProperties: &Property{Type: "string"},
					},
				},
			},
		},
		AdditionalProperties: true,
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]interface{}
		wantValid bool
		wantInMsg string
	}{
		{
			name: "valid with numeric age",
			input: map[string]interface{}{
				"orderId": "o1", "age": float64(42),
				"intake": map[string]interface{}{"sleepEnergy": map[string]interface{}{"sleep_hours": "often"}},
			},
			wantValid: true,
		},
		{
			name:      "valid with string age",
			input:     map[string]interface{}{"orderId": "o1", "age": "42", "intake": map[string]interface{}{}},
			wantValid: true,
		},
		{
			name:      "missing required",
			input:     map[string]interface{}{"orderId": "o1"},
			wantInMsg: "intake",
		},
		{
			name:      "bad enum",
			input:     map[string]interface{}{"orderId": "o1", "status": "shipped", "intake": map[string]interface{}{}},
			wantInMsg: "status",
		},
		{
			name:      "empty order id",
			input:     map[string]interface{}{"orderId": "", "intake": map[string]interface{}{}},
			wantInMsg: "orderId",
		},
		{
			name: "non-string category answer",
			input: map[string]interface{}{
				"orderId": "o1",
				"intake":  map[string]interface{}{"sleepEnergy": map[string]interface{}{"sleep_hours": true}},
			},
			wantInMsg: "sleep_hours",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateInput(tt.input, testSchema())
			if tt.wantValid {
				assert.True(t, result.Valid, result.GetErrorMessages())
				return
			}
			require.False(t, result.Valid)
			assert.Contains(t, joinMessages(result.GetErrorMessages()), tt.wantInMsg)
		})
	}
}

func TestValidationResult_FieldHelpers(t *testing.T) {
	vr := &ValidationResult{Errors: []ValidationError{
		{Field: "intake.sleepEnergy", Message: "bad"},
		{Field: "orderId", Message: "missing"},
	}}

	assert.True(t, vr.HasErrors("orderId"))
	assert.False(t, vr.HasErrors("intake"))
	assert.Len(t, vr.GetErrorsForField("intake"), 1)
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("jane@example.com"))
	assert.False(t, ValidateEmail("not-an-email"))
}

func joinMessages(msgs []string) string {
	out := ""
	for _, m := range msgs {
		out += m + "\n"
	}
	return out
}
