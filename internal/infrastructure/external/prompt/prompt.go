// Package prompt renders the advisory request for text-generation backends.
package prompt

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/cradlecare/cradlecare-hub/internal/domain/growth"
)

// Version identifies the prompt wording; it is part of the advisory cache key.
const Version = "advisory-v2"

const advisoryTemplate = `You are assisting an ASHA community health worker after a growth check.

Infant data:
- Age: {{.AgeMonths}} months
- Weight: {{printf "%.2f" .WeightKg}} kg (weight-for-age z-score: {{printf "%.2f" .WeightForAge}})
- Height: {{printf "%.2f" .HeightCm}} cm (height-for-age z-score: {{printf "%.2f" .HeightForAge}})

Classification (WHO 2006 child growth standards, already computed):
- Primary risk factor: {{.Factor}}
- Severity: {{.Severity}}

Reference:
- Underweight: weight-for-age z-score at or below -2. Severe at or below -3.
- Stunting: height-for-age z-score at or below -2. Severe at or below -3.

Task: write one clear, actionable suggestion the health worker can follow today.
{{- if .Referral}} The classification is severe: the suggestion must include immediate referral to a primary health centre.{{end}}
Do not change the classification.

Respond ONLY with a JSON object with exactly two string keys, "risk_level" and "suggestion".
Example: {"risk_level": "{{.RiskStatus}}", "suggestion": "..."}`

var advisory = template.Must(template.New("advisory").Parse(advisoryTemplate))

type view struct {
	growth.Summary
	Factor     string
	RiskStatus string
	Referral   bool
}

// Render returns the advisory prompt for s.
func Render(s growth.Summary) (string, error) {
	c := s.Classification()

	var buf bytes.Buffer
	err := advisory.Execute(&buf, view{
		Summary:    s,
		Factor:     c.PrimaryFactor.Label(),
		RiskStatus: c.RiskStatus(),
		Referral:   c.Severity == growth.SeveritySevere,
	})
	if err != nil {
		return "", fmt.Errorf("render advisory prompt: %w", err)
	}
	return buf.String(), nil
}
