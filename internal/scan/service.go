package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"leafscan/internal/ai"
	"leafscan/internal/history"
	"leafscan/internal/models"
)

var (
	// ErrBusy rejects a submission while another analysis is in flight.
	// Requests are not queued.
	ErrBusy = errors.New("an analysis is already in progress")

	// ErrStale marks a result that arrived after the scan view moved on.
	// It is discarded without touching history or view state.
	ErrStale = errors.New("analysis result is stale")
)

// ViewState is the three-way scan view: idle, analyzing, or showing a
// result or error.
type ViewState string

const (
	ViewIdle      ViewState = "idle"
	ViewAnalyzing ViewState = "analyzing"
	ViewResults   ViewState = "results"
)

// Service runs the scan flow: normalized image in, diagnosis out,
// history appended on success. One analysis at a time.
type Service struct {
	diagnoser ai.DiagnosisService
	store     *history.Store

	mu            sync.Mutex
	analyzing     bool
	gen           int
	locale        string
	shareLocation bool
	location      *models.Location
	lastResult    *models.ScanResult
	lastError     string
}

func NewService(diagnoser ai.DiagnosisService, store *history.Store, defaultLocale string) *Service {
	if defaultLocale == "" {
		defaultLocale = "en"
	}
	return &Service{
		diagnoser: diagnoser,
		store:     store,
		locale:    defaultLocale,
	}
}

// Snapshot is the scan view model rendered by the presentation layer.
type Snapshot struct {
	State         ViewState
	Result        *models.ScanResult
	Error         string
	Locale        string
	ShareLocation bool
	HasLocation   bool
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:         ViewIdle,
		Result:        s.lastResult,
		Error:         s.lastError,
		Locale:        s.locale,
		ShareLocation: s.shareLocation,
		HasLocation:   s.location != nil,
	}
	if s.analyzing {
		snap.State = ViewAnalyzing
	} else if s.lastResult != nil || s.lastError != "" {
		snap.State = ViewResults
	}
	return snap
}

func (s *Service) SetLocale(locale string) {
	if locale == "" {
		return
	}
	s.mu.Lock()
	s.locale = locale
	s.mu.Unlock()
}

// SetLocationSharing toggles location use. Disabling clears any
// previously captured coordinates so they cannot leak into the next
// analysis call.
func (s *Service) SetLocationSharing(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.shareLocation = enabled
	if !enabled {
		s.location = nil
	}
}

// UpdateLocation records a one-shot position fix. Ignored while sharing
// is disabled.
func (s *Service) UpdateLocation(loc models.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.shareLocation {
		return
	}
	s.location = &loc
}

// Analyze sends one normalized image to the diagnosis service and, on
// success, appends exactly one history entry. A second submission while
// one is pending fails with ErrBusy; a result that outlives its view
// generation fails with ErrStale and leaves history untouched.
func (s *Service) Analyze(ctx context.Context, imageDataURL string) (*models.ScanResult, error) {
	s.mu.Lock()
	if s.analyzing {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.analyzing = true
	s.lastResult = nil
	s.lastError = ""
	s.gen++
	gen := s.gen

	req := ai.DiagnosisRequest{
		ImageDataURL: imageDataURL,
		Locale:       s.locale,
	}
	if s.shareLocation && s.location != nil {
		req.Latitude = &s.location.Latitude
		req.Longitude = &s.location.Longitude
	}
	s.mu.Unlock()

	diagnosis, err := s.diagnoser.DiagnoseImage(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		log.Printf("[SCAN] Discarding stale analysis result (gen %d)", gen)
		return nil, ErrStale
	}
	s.analyzing = false

	if err != nil {
		s.lastError = fmt.Sprintf("Analysis failed: %v", err)
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}

	result, err := s.store.Append(imageDataURL, *diagnosis)
	if err != nil {
		s.lastError = fmt.Sprintf("Failed to save result: %v", err)
		return nil, err
	}

	s.lastResult = result
	return result, nil
}

// Reset returns the scan view to idle. Any in-flight analysis keeps
// running but its result will be discarded as stale.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	s.analyzing = false
	s.lastResult = nil
	s.lastError = ""
}
