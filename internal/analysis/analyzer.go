package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"dialscout/internal/logging"
	"dialscout/internal/types"
)

const analysisPrompt = `Analyze this phone call transcript and extract the following information.
Return ONLY a JSON object with these exact keys:
- specialist_available: "Yes", "No", or "Unknown"
- ultrasound_available: "Yes", "No", or "Unknown"
- consultation_price: the consultation price mentioned (e.g. "R500") or "Unknown"
- earliest_availability: the earliest appointment mentioned (e.g. "Wednesday 2pm") or "Unknown"

Be thorough - look for any mention of prices, fees, costs, availability,
appointments, or specialist availability.

Transcript:
`

// Analyzer sends transcripts to Gemini and parses the structured answer.
type Analyzer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// Config holds analyzer settings.
type Config struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewAnalyzer creates a Gemini-backed analyzer. An empty API key is an
// error here; callers that want the degrade-to-Unknown behavior without
// credentials should skip construction and use types.DefaultAnalysis.
func NewAnalyzer(ctx context.Context, cfg Config) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("analysis API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Analyzer{client: client, model: model, timeout: timeout}, nil
}

// Analyze extracts the four fields from a transcript. It never returns
// an error: a missing transcript, an unreachable model, or unparseable
// output all yield the all-Unknown default.
func (a *Analyzer) Analyze(ctx context.Context, transcript string) types.AnalysisResult {
	if strings.TrimSpace(transcript) == "" {
		return types.DefaultAnalysis()
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.client.Models.GenerateContent(ctx, a.model,
		genai.Text(analysisPrompt+transcript),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(0)),
		})
	if err != nil {
		logging.Get(logging.CategoryAnalysis).Warn("transcript analysis failed: %v", err)
		return types.DefaultAnalysis()
	}

	result := Parse(resp.Text())
	logging.Analysis("specialist=%s ultrasound=%s price=%s availability=%s",
		result.SpecialistAvailable, result.UltrasoundAvailable,
		result.ConsultationPrice, result.EarliestAvailability)
	return result
}
