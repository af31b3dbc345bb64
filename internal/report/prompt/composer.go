// Package prompt composes the analysis request sent to the narrative
// generator from an intake record.
package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"health-report-workers/internal/common/errors"
	"health-report-workers/internal/models"
	"health-report-workers/internal/report/catalog"
)

const (
	notProvided   = "Not provided"
	noneReported  = "None reported"
	noMotivations = "No specific motivations provided"
	clinicalNote  = "*Clinical Note: This response indicates potential health concern requiring evaluation.*"
)

// Composer is a pure function of its inputs; it holds no mutable state.
type Composer struct {
	catalog *catalog.Catalog
}

func NewComposer(c *catalog.Catalog) *Composer {
	if c == nil {
		c = catalog.Default()
	}
	return &Composer{catalog: c}
}

type view struct {
	Name               string
	Age                string
	Gender             string
	Height             string
	Weight             string
	BloodGroup         string
	Ethnicity          string
	Smoking            string
	Alcohol            string
	Exercise           string
	Medications        string
	Allergies          string
	SleepQuality       string
	StressLevel        string
	DietaryPreferences string
	Motivations        string
	OtherMotivation    string
	Blocks             []string
}

// Compose renders the analysis request for intake. The output is identical
// for identical inputs.
func (c *Composer) Compose(intake *models.IntakeRecord, subjectName string) (string, error) {
	if intake == nil {
		return "", errors.NewInvalidIntakeError("intake record is required")
	}

	v := view{
		Name:               orPlaceholder(subjectName, notProvided),
		Age:                withUnit(intake.Age.String(), "years"),
		Gender:             orPlaceholder(intake.Gender, notProvided),
		Height:             withUnit(intake.Height.String(), "cm"),
		Weight:             withUnit(intake.Weight.String(), "kg"),
		BloodGroup:         orPlaceholder(intake.BloodGroup, notProvided),
		Ethnicity:          orPlaceholder(intake.Ethnicity, notProvided),
		Smoking:            orPlaceholder(intake.Smoking, notProvided),
		Alcohol:            orPlaceholder(intake.Alcohol, notProvided),
		Exercise:           orPlaceholder(intake.Exercise, notProvided),
		Medications:        flagged(intake.TakingMedications, intake.Medications),
		Allergies:          flagged(intake.HasAllergies, intake.Allergies),
		SleepQuality:       orPlaceholder(intake.SleepQuality, notProvided),
		StressLevel:        orPlaceholder(intake.StressLevel, notProvided),
		DietaryPreferences: orPlaceholder(intake.DietaryPreferences, notProvided),
		Motivations:        motivationLine(intake.Motivations),
		OtherMotivation:    strings.TrimSpace(intake.OtherMotivation),
	}

	for _, category := range models.Categories {
		v.Blocks = append(v.Blocks, c.renderBlock(category, intake.Answers(category)))
	}

	var buf bytes.Buffer
	if err := analysisTmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render analysis prompt: %w", err)
	}
	return buf.String(), nil
}

// Misfiled lists known items answered under a block other than the one that
// owns them, as "block.key". Unknown keys belong to no block and are skipped.
func (c *Composer) Misfiled(intake *models.IntakeRecord) []string {
	if intake == nil {
		return nil
	}
	var out []string
	for _, category := range models.Categories {
		for _, a := range intake.Answers(category) {
			if owner, ok := c.catalog.Category(a.Key); ok && owner != category {
				out = append(out, string(category)+"."+a.Key)
			}
		}
	}
	return out
}

// renderBlock always emits the category heading; entries follow in the
// order the record gave them.
func (c *Composer) renderBlock(category models.Category, answers models.CategoryAnswers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n## %s:\n", c.catalog.Heading(category))

	for _, a := range answers {
		if skipAnswer(a.Value) {
			continue
		}
		fmt.Fprintf(&b, "\n**Q: %s**\n", c.catalog.Lookup(a.Key))
		fmt.Fprintf(&b, "**Answer:** %s\n", a.Value)
		if c.catalog.IsElevatedConcern(a.Value) {
			b.WriteString(clinicalNote + "\n")
		}
	}
	return b.String()
}

func skipAnswer(answer string) bool {
	trimmed := strings.TrimSpace(answer)
	return trimmed == "" || strings.EqualFold(trimmed, "undefined")
}

func orPlaceholder(value, placeholder string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return placeholder
}

func withUnit(value, unit string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v + " " + unit
	}
	return notProvided
}

func flagged(flag, value string) string {
	if strings.EqualFold(strings.TrimSpace(flag), "yes") && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return noneReported
}

func motivationLine(motivations []string) string {
	kept := make([]string, 0, len(motivations))
	for _, m := range motivations {
		if m = strings.TrimSpace(m); m != "" {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		return noMotivations
	}
	return "Primary reasons for testing: " + strings.Join(kept, ", ")
}
