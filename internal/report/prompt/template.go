package prompt

import "text/template"

const analysisTemplate = `You are a professional health and wellness analyst. Based on the following comprehensive health assessment, analyze my answers and generate a highly detailed, structured report about my overall health and lifestyle.

INSTRUCTIONS FOR ANALYSIS:
1. Assess my lifestyle based on the following categories: Sleep & Energy, Cardiovascular Health, Metabolic Health, Digestive Health, Cancer Risk Indicators, and Neurological/Musculoskeletal Health

2. Identify which aspects of my lifestyle may be healthy or unhealthy, citing CONCRETE EVIDENCE from my questionnaire answers and personal health data

3. For EACH major health risk area (e.g., heart disease, diabetes, cancer, sleep disorders, neurological issues), estimate and CLEARLY STATE my risk level with supporting rationale:
   - LOW RISK: No concerning patterns or symptoms
   - MODERATE RISK: Some warning signs or lifestyle factors present
   - HIGH RISK: Multiple concerning indicators requiring attention
   - URGENT: Red flags requiring prompt medical consultation

4. Provide PERSONALIZED, ACTIONABLE advice for improving any areas of concern:
   - Sleep hygiene recommendations (specific to my answers)
   - Healthy eating suggestions (based on my dietary preferences and digestive health)
   - Physical activity recommendations (considering my current exercise level and cardiovascular status)
   - Stress management strategies (tailored to my stress level)
   - Preventive screening recommendations (based on risk factors)

5. Highlight ANY URGENT WARNING SIGNS or 'RED FLAGS' that may require PROMPT MEDICAL CONSULTATION

6. Organize the report in clear sections for each health domain with:
   - Bullet points for key findings
   - Concise explanations of why each finding matters
   - Risk level indicators (LOW/MODERATE/HIGH/URGENT)
   - Specific actionable steps

7. Ensure the analysis is thorough, nuanced, evidence-based, and user-friendly (NOT generic)

---

## PERSONAL HEALTH PROFILE:
Name: {{.Name}}
Age: {{.Age}}
Gender: {{.Gender}}
Height: {{.Height}}
Weight: {{.Weight}}
Blood Group: {{.BloodGroup}}
Ethnicity: {{.Ethnicity}}

## LIFESTYLE DATA:
- Smoking Status: {{.Smoking}}
- Alcohol Consumption: {{.Alcohol}}
- Exercise Frequency: {{.Exercise}}
- Current Medications: {{.Medications}}
- Allergies: {{.Allergies}}
- Sleep Quality: {{.SleepQuality}}
- Stress Level: {{.StressLevel}}
- Dietary Preferences: {{.DietaryPreferences}}

## TEST MOTIVATION:
{{.Motivations}}
{{if .OtherMotivation}}
Additional motivation: {{.OtherMotivation}}{{end}}

## COMPREHENSIVE HEALTH QUESTIONNAIRE ANALYSIS:
**Instructions for AI Analysis:** The following are specific health questions with the user's exact responses. Use both the question context AND the specific answer to provide targeted, evidence-based health analysis.
{{range .Blocks}}
{{.}}{{end}}

## ANALYSIS REQUIREMENTS:
- Analyze based on the specific answers provided, but DO NOT include raw question text in the final report
- Explain health significance in professional medical language
- Base risk levels on actual responses, not assumptions
- Provide evidence-based recommendations without quoting questionnaire text
- Keep the report concise and professional - avoid duplication

---

## REPORT FORMAT REQUIREMENT:
Create a concise, professional medical report. DO NOT include raw questionnaire text or citations in the final report.

# Personalized Health Analysis Report

## Executive Summary
Write 2-3 concise paragraphs covering overall health status, main concerns, and key action items. DO NOT quote questionnaire text.

## Sleep and Energy Assessment
**Risk Level:** [LOW/MODERATE/HIGH/URGENT]

Brief professional assessment (2-3 sentences) based on responses without citing questions.

## Cardiovascular Health Assessment
**Risk Level:** [LOW/MODERATE/HIGH/URGENT]

Concise analysis of heart health with key concerns. No questionnaire quotes.

## Metabolic and Digestive Health
**Risk Level:** [LOW/MODERATE/HIGH/URGENT]

Combined assessment covering metabolism and digestive function. Professional language only.

## Cancer and Neurological Risk Assessment
**Risk Level:** [LOW/MODERATE/HIGH/URGENT]

Brief evaluation of risks without quoting questionnaire text.

## Key Recommendations

### Immediate Actions (Next 30 Days)
1. **Most critical action item**
2. **Second priority action**
3. **Third priority action**

### Long-term Goals (3-6 Months)
- **Primary goal** with specific timeline
- **Secondary goal** with measurable target

## Urgent Medical Concerns
> **URGENT:** List red flags requiring immediate medical attention

## Conclusions
Brief 2-3 sentence summary with overall prognosis.

CRITICAL FORMATTING RULES:
- NO questionnaire quotes or question text in the final report
- Keep each section concise (2-3 sentences max)
- Use professional medical language
- NO duplication between sections
- Write as a medical professional would
`

var analysisTmpl = template.Must(template.New("analysis").Option("missingkey=error").Parse(analysisTemplate))
