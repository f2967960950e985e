package telephony

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AssistantProfile is the immutable per-call behavioral configuration.
// The provider accepts a deeply nested object; this struct pins the
// fields a campaign is allowed to vary and validates them before any
// billable request is made.
type AssistantProfile struct {
	Name         string `yaml:"name"`
	SystemPrompt string `yaml:"system_prompt"`
	FirstMessage string `yaml:"first_message"`

	// Model
	ModelProvider string `yaml:"model_provider"` // openai, anthropic, google
	Model         string `yaml:"model"`

	// Voice
	VoiceProvider string `yaml:"voice_provider"` // 11labs, azure, playht
	VoiceID       string `yaml:"voice_id"`

	// Transcriber
	TranscriberProvider string `yaml:"transcriber_provider"` // deepgram
	TranscriberModel    string `yaml:"transcriber_model"`
	Language            string `yaml:"language"`

	// Call limits
	MaxDurationSeconds    int     `yaml:"max_duration_seconds"`
	SilenceTimeoutSeconds int     `yaml:"silence_timeout_seconds"`
	ResponseDelaySeconds  float64 `yaml:"response_delay_seconds"`
}

var validModelProviders = map[string]bool{"openai": true, "anthropic": true, "google": true}
var validVoiceProviders = map[string]bool{"11labs": true, "azure": true, "playht": true}
var validTranscriberProviders = map[string]bool{"deepgram": true}

// DefaultProfile returns the standard practice-outreach assistant.
func DefaultProfile() AssistantProfile {
	return AssistantProfile{
		Name: "Practice Scout Assistant",
		SystemPrompt: `You are calling medical practices on behalf of a patient looking for a specialist appointment.

YOUR GOAL - gather this information:
1. Ask if they have a specialist available for new patients
2. Ask if they offer ultrasound services
3. Ask the consultation price
4. Ask about the EARLIEST available appointment (specific date and time)

If you reach an automated menu, navigate it; never hang up on an IVR.
Only end the call after all four questions are answered or the person says they cannot help.`,
		FirstMessage:          "Hi, good day!",
		ModelProvider:         "openai",
		Model:                 "gpt-4o-mini",
		VoiceProvider:         "11labs",
		VoiceID:               "21m00Tcm4TlvDq8ikWAM",
		TranscriberProvider:   "deepgram",
		TranscriberModel:      "nova-2",
		Language:              "en",
		MaxDurationSeconds:    180,
		SilenceTimeoutSeconds: 30,
		ResponseDelaySeconds:  0.5,
	}
}

// LoadProfile reads a profile from a YAML file, filling gaps with
// defaults.
func LoadProfile(path string) (AssistantProfile, error) {
	profile := DefaultProfile()
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("failed to read assistant profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("failed to parse assistant profile %s: %w", path, err)
	}
	return profile, nil
}

// Validate checks the enumerated fields and limits.
func (p AssistantProfile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.SystemPrompt == "" {
		return fmt.Errorf("system_prompt is required")
	}
	if !validModelProviders[p.ModelProvider] {
		return fmt.Errorf("unknown model_provider %q", p.ModelProvider)
	}
	if p.Model == "" {
		return fmt.Errorf("model is required")
	}
	if !validVoiceProviders[p.VoiceProvider] {
		return fmt.Errorf("unknown voice_provider %q", p.VoiceProvider)
	}
	if p.VoiceID == "" {
		return fmt.Errorf("voice_id is required")
	}
	if !validTranscriberProviders[p.TranscriberProvider] {
		return fmt.Errorf("unknown transcriber_provider %q", p.TranscriberProvider)
	}
	if p.MaxDurationSeconds <= 0 || p.MaxDurationSeconds > 600 {
		return fmt.Errorf("max_duration_seconds must be in (0, 600], got %d", p.MaxDurationSeconds)
	}
	if p.SilenceTimeoutSeconds <= 0 {
		return fmt.Errorf("silence_timeout_seconds must be positive, got %d", p.SilenceTimeoutSeconds)
	}
	if p.ResponseDelaySeconds < 0 {
		return fmt.Errorf("response_delay_seconds must not be negative")
	}
	return nil
}

// payload builds the provider's nested assistant object.
func (p AssistantProfile) payload() map[string]interface{} {
	return map[string]interface{}{
		"name": p.Name,
		"model": map[string]interface{}{
			"provider": p.ModelProvider,
			"model":    p.Model,
			"messages": []map[string]string{
				{"role": "system", "content": p.SystemPrompt},
			},
		},
		"voice": map[string]string{
			"provider": p.VoiceProvider,
			"voiceId":  p.VoiceID,
		},
		"transcriber": map[string]string{
			"provider": p.TranscriberProvider,
			"model":    p.TranscriberModel,
			"language": p.Language,
		},
		"firstMessage":           p.FirstMessage,
		"endCallFunctionEnabled": false,
		"maxDurationSeconds":     p.MaxDurationSeconds,
		"silenceTimeoutSeconds":  p.SilenceTimeoutSeconds,
		"responseDelaySeconds":   p.ResponseDelaySeconds,
	}
}
