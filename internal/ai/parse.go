package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseDiagnosis decodes the model's reply into a Diagnosis. Vision models
// frequently wrap the JSON in markdown code fences even when told not to,
// so fences are stripped before decoding.
func ParseDiagnosis(content string) (*Diagnosis, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var d Diagnosis
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("invalid diagnosis JSON: %w", err)
	}

	if d.CropName == "" && !d.DiseaseDetected && d.DiseaseDescription == "" {
		return nil, fmt.Errorf("diagnosis JSON missing required fields")
	}

	if d.Symptoms == nil {
		d.Symptoms = []string{}
	}
	if d.Treatments == nil {
		d.Treatments = []string{}
	}
	if d.PreventionTips == nil {
		d.PreventionTips = []string{}
	}

	return &d, nil
}

func extractJSON(content string) string {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
