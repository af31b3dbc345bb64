// Package catalog maps questionnaire item keys to their question text.
package catalog

import (
	"strings"

	"health-report-workers/internal/models"
)

type entry struct {
	category models.Category
	question string
}

// Catalog is an immutable lookup table and is safe for concurrent use.
type Catalog struct {
	entries  map[string]entry
	elevated map[string]struct{}
	headings map[models.Category]string
}

var defaultCatalog = &Catalog{
	entries: map[string]entry{
		"sleep_hours":   {models.CategorySleepEnergy, "Do you sleep less than 6 or more than 9 hours per night consistently?"},
		"wake_gasping":  {models.CategorySleepEnergy, "Do you often wake up gasping for air, choking, or with a dry mouth?"},
		"exhausted":     {models.CategorySleepEnergy, "Do you feel exhausted even after a full night's sleep?"},
		"sleep_changes": {models.CategorySleepEnergy, "Have you noticed sudden changes in your sleep pattern in the past month?"},
		"night_sweats":  {models.CategorySleepEnergy, "Do you experience night sweats or abnormal body temperature during sleep?"},

		"chest_pain":          {models.CategoryCardiovascular, "Do you frequently feel chest tightness, pain, or pressure, especially during exertion?"},
		"shortness_breath":    {models.CategoryCardiovascular, "Do you experience shortness of breath when walking short distances or climbing stairs?"},
		"swelling":            {models.CategoryCardiovascular, "Have you noticed swelling in your ankles, feet, or hands recently?"},
		"irregular_heartbeat": {models.CategoryCardiovascular, "Do you experience irregular or rapid heartbeat episodes?"},
		"heart_history":       {models.CategoryCardiovascular, "Do you have a history of high blood pressure, high cholesterol, or diabetes?"},

		"weight_change":   {models.CategoryMetabolic, "Have you experienced unexplained weight loss or gain in the past 3 months?"},
		"thirst_urinate":  {models.CategoryMetabolic, "Do you often feel excessively thirsty or urinate more than normal?"},
		"shaky_dizzy":     {models.CategoryMetabolic, "Do you frequently feel shaky, dizzy, or fatigued without reason?"},
		"temp_tolerance":  {models.CategoryMetabolic, "Have you noticed significant changes in body temperature tolerance (cold or heat)?"},
		"skin_hair_nails": {models.CategoryMetabolic, "Do you have persistent dry skin, thinning hair, or brittle nails?"},

		"indigestion":       {models.CategoryDigestive, "Have you had persistent indigestion, heartburn, or difficulty swallowing?"},
		"blood_stool":       {models.CategoryDigestive, "Have you noticed blood in your stool, dark tar-like stools, or abdominal pain?"},
		"diarrhea_bloating": {models.CategoryDigestive, "Do you have frequent diarrhea, constipation, or unexplained bloating?"},
		"appetite_loss":     {models.CategoryDigestive, "Have you recently lost appetite or feel full very quickly after eating?"},
		"nausea_vomiting":   {models.CategoryDigestive, "Do you experience chronic nausea or vomiting without identifiable cause?"},

		"lumps_swelling": {models.CategoryCancerImmune, "Have you found any lumps, swellings, or thickened areas in your body?"},
		"fever_sweats":   {models.CategoryCancerImmune, "Have you experienced unexplained fever, chills, or night sweats lasting weeks?"},
		"bruise_bleed":   {models.CategoryCancerImmune, "Do you bruise or bleed more easily than usual?"},
		"skin_changes":   {models.CategoryCancerImmune, "Have you noticed any non-healing sores, warts, or skin color changes?"},
		"cough_blood":    {models.CategoryCancerImmune, "Have you experienced persistent cough, hoarseness, or blood in sputum?"},

		"headaches":         {models.CategoryNeurological, "Do you experience frequent headaches, vision changes, or episodes of dizziness?"},
		"numbness_tingling": {models.CategoryNeurological, "Have you felt numbness, tingling, or weakness in your limbs?"},
		"tremors":           {models.CategoryNeurological, "Do you have tremors or uncontrolled muscle movements?"},
		"balance_loss":      {models.CategoryNeurological, "Have you experienced loss of balance or coordination recently?"},
		"pain_joints":       {models.CategoryNeurological, "Do you have persistent pain in joints, bones, or muscles without clear cause?"},
	},
	elevated: map[string]struct{}{
		"often":     {},
		"yes":       {},
		"sometimes": {},
	},
	headings: map[models.Category]string{
		models.CategorySleepEnergy:    "Sleep and Energy Assessment",
		models.CategoryCardiovascular: "Cardiovascular and Circulatory Health Assessment",
		models.CategoryMetabolic:      "Metabolic and Endocrine Health Assessment",
		models.CategoryDigestive:      "Digestive and Abdominal Health Assessment",
		models.CategoryCancerImmune:   "Cancer and Immune System Risk Assessment",
		models.CategoryNeurological:   "Neurological and Musculoskeletal Health Assessment",
	},
}

func Default() *Catalog {
	return defaultCatalog
}

// Lookup returns the canonical question for key. Unknown keys get a
// generated question so composition never blocks on an unseen item.
func (c *Catalog) Lookup(key string) string {
	if e, ok := c.entries[key]; ok {
		return e.question
	}
	return "Question about " + Humanize(key)
}

// Category returns the block that owns key. Unknown keys report false.
func (c *Catalog) Category(key string) (models.Category, bool) {
	e, ok := c.entries[key]
	return e.category, ok
}

// Heading is the questionnaire heading rendered for category.
func (c *Catalog) Heading(category models.Category) string {
	if h, ok := c.headings[category]; ok {
		return h
	}
	return Humanize(string(category))
}

// IsElevatedConcern is advisory: it adds a clinical note, it never filters.
func (c *Catalog) IsElevatedConcern(answer string) bool {
	_, ok := c.elevated[strings.ToLower(answer)]
	return ok
}

// Humanize replaces underscores with spaces.
func Humanize(key string) string {
	return strings.ReplaceAll(key, "_", " ")
}
