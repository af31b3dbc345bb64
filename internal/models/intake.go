package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Category names one of the six questionnaire blocks of an intake record.
type Category string

const (
	CategorySleepEnergy    Category = "sleepEnergy"
	CategoryCardiovascular Category = "cardiovascularHealth"
	CategoryMetabolic      Category = "metabolicHealth"
	CategoryDigestive      Category = "digestiveHealth"
	CategoryCancerImmune   Category = "cancerImmuneHealth"
	CategoryNeurological   Category = "neurologicalHealth"
)

// Categories lists the questionnaire blocks in rendering order.
var Categories = []Category{
	CategorySleepEnergy,
	CategoryCardiovascular,
	CategoryMetabolic,
	CategoryDigestive,
	CategoryCancerImmune,
	CategoryNeurological,
}

// IntakeRecord holds the structured questionnaire answers for one order.
type IntakeRecord struct {
	Age        Measure `json:"age,omitempty"`
	Gender     string  `json:"gender,omitempty"`
	Height     Measure `json:"height,omitempty"`
	Weight     Measure `json:"weight,omitempty"`
	BloodGroup string  `json:"bloodGroup,omitempty"`
	Ethnicity  string  `json:"ethnicity,omitempty"`

	Smoking            string `json:"smoking,omitempty"`
	Alcohol            string `json:"alcohol,omitempty"`
	Exercise           string `json:"exercise,omitempty"`
	SleepQuality       string `json:"sleepQuality,omitempty"`
	StressLevel        string `json:"stressLevel,omitempty"`
	DietaryPreferences string `json:"dietaryPreferences,omitempty"`

	TakingMedications string `json:"takingMedications,omitempty"`
	Medications       string `json:"medications,omitempty"`
	HasAllergies      string `json:"hasAllergies,omitempty"`
	Allergies         string `json:"allergies,omitempty"`

	Motivations     []string `json:"motivations,omitempty"`
	OtherMotivation string   `json:"otherMotivation,omitempty"`

	SleepEnergy          CategoryAnswers `json:"sleepEnergy,omitempty"`
	CardiovascularHealth CategoryAnswers `json:"cardiovascularHealth,omitempty"`
	MetabolicHealth      CategoryAnswers `json:"metabolicHealth,omitempty"`
	DigestiveHealth      CategoryAnswers `json:"digestiveHealth,omitempty"`
	CancerImmuneHealth   CategoryAnswers `json:"cancerImmuneHealth,omitempty"`
	NeurologicalHealth   CategoryAnswers `json:"neurologicalHealth,omitempty"`
}

// Answers returns the block for category c.
func (r *IntakeRecord) Answers(c Category) CategoryAnswers {
	switch c {
	case CategorySleepEnergy:
		return r.SleepEnergy
	case CategoryCardiovascular:
		return r.CardiovascularHealth
	case CategoryMetabolic:
		return r.MetabolicHealth
	case CategoryDigestive:
		return r.DigestiveHealth
	case CategoryCancerImmune:
		return r.CancerImmuneHealth
	case CategoryNeurological:
		return r.NeurologicalHealth
	}
	return nil
}

// AnsweredCount counts non-empty answers across every block.
func (r *IntakeRecord) AnsweredCount() int {
	n := 0
	for _, c := range Categories {
		for _, a := range r.Answers(c) {
			if strings.TrimSpace(a.Value) != "" {
				n++
			}
		}
	}
	return n
}

// Answer is one questionnaire item and the subject's response.
type Answer struct {
	Key   string
	Value string
}

// CategoryAnswers is an ordered item-key to answer map. Decoding keeps the
// key order of the source document.
type CategoryAnswers []Answer

func (c CategoryAnswers) Get(key string) (string, bool) {
	for _, a := range c {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func (c *CategoryAnswers) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("category answers: expected object, got %v", tok)
	}

	answers := CategoryAnswers{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("category answers: key %q: %w", key, err)
		}

		value, err := answerText(raw)
		if err != nil {
			return fmt.Errorf("category answers: key %q: %w", key, err)
		}
		answers = append(answers, Answer{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = answers
	return nil
}

func (c CategoryAnswers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func answerText(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		if v {
			return "yes", nil
		}
		return "no", nil
	default:
		return "", fmt.Errorf("unsupported answer type %T", raw)
	}
}

// Measure is a demographic value that arrives either as a JSON string or a
// JSON number.
type Measure string

func (m *Measure) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*m = ""
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*m = Measure(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("measure: expected string or number: %w", err)
	}
	*m = Measure(n.String())
	return nil
}

func (m Measure) String() string {
	return string(m)
}
