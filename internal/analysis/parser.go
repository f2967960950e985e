// Package analysis extracts the four structured answers from a call
// transcript using the Gemini API. Analysis never fails the pipeline:
// every error path degrades to an all-Unknown result.
package analysis

import (
	"encoding/json"
	"strings"

	"dialscout/internal/types"
)

// parsedAnswer matches the JSON object the reasoning model is asked to
// return.
type parsedAnswer struct {
	SpecialistAvailable  string `json:"specialist_available"`
	UltrasoundAvailable  string `json:"ultrasound_available"`
	ConsultationPrice    string `json:"consultation_price"`
	EarliestAvailability string `json:"earliest_availability"`
}

// Parse extracts an AnalysisResult from free-form model output. The
// model is prone to wrapping its answer in prose or markdown code
// fences; both are stripped before parsing. Parse always returns a
// value; unparseable input yields the all-Unknown default.
func Parse(text string) types.AnalysisResult {
	result := types.DefaultAnalysis()

	cleaned := stripFences(text)
	if cleaned == "" {
		return result
	}

	var answer parsedAnswer
	if err := json.Unmarshal([]byte(cleaned), &answer); err != nil {
		return result
	}

	if v := strings.TrimSpace(answer.SpecialistAvailable); v != "" {
		result.SpecialistAvailable = v
	}
	if v := strings.TrimSpace(answer.UltrasoundAvailable); v != "" {
		result.UltrasoundAvailable = v
	}
	if v := strings.TrimSpace(answer.ConsultationPrice); v != "" {
		result.ConsultationPrice = v
	}
	if v := strings.TrimSpace(answer.EarliestAvailability); v != "" {
		result.EarliestAvailability = v
	}
	return result
}

// stripFences removes markdown code fences and surrounding prose,
// returning the first JSON object found in the text.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	// Prose around the object: cut to the outermost braces.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
