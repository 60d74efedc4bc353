package models

import (
	"html/template"
	"time"

	"github.com/google/uuid"

	"leafscan/internal/ai"
)

// ScanResult is one completed analysis as stored in history. Immutable
// once appended.
type ScanResult struct {
	ID              string       `json:"id"`
	Timestamp       time.Time    `json:"timestamp"`
	Image           string       `json:"image"`
	CropName        string       `json:"crop_name"`
	DiseaseDetected bool         `json:"disease_detected"`
	DiseaseName     string       `json:"disease_name"`
	ConfidencePct   float64      `json:"confidence_percentage"`
	Analysis        ai.Diagnosis `json:"analysis"`
}

// ImageURL exposes the stored data URL as a trusted src attribute value,
// which html/template would otherwise refuse to emit.
func (r ScanResult) ImageURL() template.URL {
	return template.URL(r.Image)
}

func NewScanResult(image string, diagnosis ai.Diagnosis) *ScanResult {
	return &ScanResult{
		ID:              uuid.New().String(),
		Timestamp:       time.Now(),
		Image:           image,
		CropName:        diagnosis.CropName,
		DiseaseDetected: diagnosis.DiseaseDetected,
		DiseaseName:     diagnosis.DiseaseName,
		ConfidencePct:   diagnosis.ConfidencePct,
		Analysis:        diagnosis,
	}
}
