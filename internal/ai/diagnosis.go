package ai

import (
	"context"
)

type DiagnosisService interface {
	DiagnoseImage(ctx context.Context, req DiagnosisRequest) (*Diagnosis, error)
}

// DiagnosisRequest carries one normalized image plus the request context
// the model needs to localize and situate its answer.
type DiagnosisRequest struct {
	ImageDataURL string
	Locale       string
	Latitude     *float64
	Longitude    *float64
}

// Diagnosis is the structured payload returned by the vision model.
type Diagnosis struct {
	CropName           string   `json:"crop_name"`
	DiseaseDetected    bool     `json:"disease_detected"`
	DiseaseName        string   `json:"disease_name"`
	ConfidencePct      float64  `json:"confidence_percentage"`
	DangerLevel        float64  `json:"danger_level"`
	Symptoms           []string `json:"symptoms"`
	Treatments         []string `json:"treatments"`
	PreventionTips     []string `json:"prevention_tips"`
	DiseaseDescription string   `json:"disease_description"`
}
