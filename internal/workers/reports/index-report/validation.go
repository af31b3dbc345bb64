package indexreport

import "health-report-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId", "reportId"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "string",
				Description: "Owner of the report",
				MinLength:   validation.IntPtr(1),
			},
			"reportId": {
				Type:        "string",
				Description: "Report to index",
				MinLength:   validation.IntPtr(1),
			},
		},
		AdditionalProperties: true,
	}
}
