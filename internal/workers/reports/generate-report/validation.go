package generatereport

import "health-report-workers/internal/common/validation"

var answerValue = &validation.Property{Types: []string{"string", "number", "boolean", "null"}}

func categoryBlock(description string) validation.Property {
	return validation.Property{
		Type:                 "object",
		Description:          description,
		AdditionalProperties: answerValue,
	}
}

// measure accepts raw form text or a number. Numbers may not be negative.
func measure(description string) validation.Property {
	return validation.Property{
		Types:       []string{"string", "number", "null"},
		Description: description,
		Minimum:     validation.FloatPtr(0),
	}
}

// subjectFields are the top-level variables reported back when invalid.
var subjectFields = []string{"userId", "orderId", "orderStatus", "userName", "userEmail"}

// invalidFields names the top-level variables that failed validation. Any
// error under intake counts once as "intake".
func invalidFields(result *validation.ValidationResult) []string {
	var fields []string
	for _, name := range subjectFields {
		if result.HasErrors(name) {
			fields = append(fields, name)
		}
	}
	if len(result.GetErrorsForField("intake")) > 0 {
		fields = append(fields, "intake")
	}
	return fields
}

func text(description string, max int) validation.Property {
	return validation.Property{Type: "string", Description: description, MaxLength: validation.IntPtr(max)}
}

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId", "orderId", "userName", "intake"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "string",
				Description: "Owner of the report",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(128),
			},
			"orderId": {
				Type:        "string",
				Description: "Order the report is generated for",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(128),
			},
			"orderStatus": text("Current order status", 32),
			"userName": {
				Type:        "string",
				Description: "Display name of the subject",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(200),
			},
			"userEmail": text("Email address of the subject", 255),
			"intake": {
				Type:        "object",
				Description: "Questionnaire answers",
				Properties: map[string]validation.Property{
					"age":                measure("Age in years"),
					"height":             measure("Height in cm"),
					"weight":             measure("Weight in kg"),
					"gender":             text("Gender", 64),
					"bloodGroup":         text("Blood group", 16),
					"ethnicity":          text("Ethnicity", 128),
					"smoking":            text("Smoking habit", 128),
					"alcohol":            text("Alcohol consumption", 128),
					"exercise":           text("Exercise frequency", 128),
					"sleepQuality":       text("Sleep quality", 128),
					"stressLevel":        text("Stress level", 128),
					"dietaryPreferences": text("Dietary preference", 256),
					"takingMedications":  text("Whether medications are taken", 16),
					"medications":        text("Current medications", 2000),
					"hasAllergies":       text("Whether allergies are present", 16),
					"allergies":          text("Known allergies", 2000),
					"motivations": {
						Types:       []string{"array", "null"},
						Description: "Reasons for testing",
						Items:       &validation.Property{Type: "string"},
					},
					"otherMotivation":      text("Free-text motivation", 1000),
					"sleepEnergy":          categoryBlock("Sleep and energy answers"),
					"cardiovascularHealth": categoryBlock("Cardiovascular answers"),
					"metabolicHealth":      categoryBlock("Metabolic answers"),
					"digestiveHealth":      categoryBlock("Digestive answers"),
					"cancerImmuneHealth":   categoryBlock("Cancer and immune answers"),
					"neurologicalHealth":   categoryBlock("Neurological answers"),
				},
			},
		},
		AdditionalProperties: true,
	}
}
