package notifyreport

import "health-report-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId", "reportId"},
		Properties: map[string]validation.Property{
			"userId":       {Type: "string", MinLength: validation.IntPtr(1)},
			"reportId":     {Type: "string", MinLength: validation.IntPtr(1)},
			"reportUrgent": {Types: []string{"boolean", "null"}},
		},
		AdditionalProperties: true,
	}
}
