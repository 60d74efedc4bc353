package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"leafscan/internal/ai"
	"leafscan/internal/history"
	"leafscan/internal/models"
)

func locationFixture() models.Location {
	return models.Location{Latitude: 52.52, Longitude: 13.405}
}

type mockDiagnoser struct {
	diagnosis *ai.Diagnosis
	err       error

	gotRequests []ai.DiagnosisRequest

	// block, when non-nil, holds DiagnoseImage until closed.
	block chan struct{}
}

func (m *mockDiagnoser) DiagnoseImage(ctx context.Context, req ai.DiagnosisRequest) (*ai.Diagnosis, error) {
	m.gotRequests = append(m.gotRequests, req)
	if m.block != nil {
		<-m.block
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.diagnosis, nil
}

func setupService(t *testing.T, diagnoser ai.DiagnosisService) (*Service, *history.Store) {
	t.Helper()

	db, err := history.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := history.NewStore(db)
	return NewService(diagnoser, store, "en"), store
}

func healthyDiagnosis() *ai.Diagnosis {
	return &ai.Diagnosis{
		CropName:        "Tomato",
		DiseaseDetected: false,
		ConfidencePct:   95,
		Symptoms:        []string{},
		Treatments:      []string{},
		PreventionTips:  []string{},
	}
}

func TestServiceAnalyzeSuccess(t *testing.T) {
	diagnoser := &mockDiagnoser{diagnosis: healthyDiagnosis()}
	service, store := setupService(t, diagnoser)

	result, err := service.Analyze(context.Background(), "data:image/jpeg;base64,Zm9v")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.CropName != "Tomato" {
		t.Errorf("expected crop Tomato, got %q", result.CropName)
	}

	if got := len(store.LoadAll()); got != 1 {
		t.Errorf("expected exactly one history entry, got %d", got)
	}

	snap := service.Snapshot()
	if snap.State != ViewResults {
		t.Errorf("expected results view, got %s", snap.State)
	}
	if snap.Error != "" {
		t.Errorf("expected no error indicator, got %q", snap.Error)
	}
}

func TestServiceAnalyzeFailure(t *testing.T) {
	diagnoser := &mockDiagnoser{err: fmt.Errorf("service unavailable")}
	service, store := setupService(t, diagnoser)

	_, err := service.Analyze(context.Background(), "data:image/jpeg;base64,Zm9v")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if got := len(store.LoadAll()); got != 0 {
		t.Errorf("expected no history entry on failure, got %d", got)
	}

	snap := service.Snapshot()
	if snap.Error == "" {
		t.Error("expected a visible error indicator")
	}
	if snap.State != ViewResults {
		t.Errorf("expected results view with error, got %s", snap.State)
	}
}

func TestServiceAnalyzeBusy(t *testing.T) {
	diagnoser := &mockDiagnoser{diagnosis: healthyDiagnosis(), block: make(chan struct{})}
	service, _ := setupService(t, diagnoser)

	firstDone := make(chan error, 1)
	go func() {
		_, err := service.Analyze(context.Background(), "img-1")
		firstDone <- err
	}()

	waitForState(t, service, ViewAnalyzing)

	if _, err := service.Analyze(context.Background(), "img-2"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy for a second submission, got %v", err)
	}

	close(diagnoser.block)
	if err := <-firstDone; err != nil {
		t.Fatalf("first analysis should have completed: %v", err)
	}

	if len(diagnoser.gotRequests) != 1 {
		t.Errorf("expected the busy submission to never reach the client, got %d requests",
			len(diagnoser.gotRequests))
	}
}

func TestServiceStaleResultDiscarded(t *testing.T) {
	diagnoser := &mockDiagnoser{diagnosis: healthyDiagnosis(), block: make(chan struct{})}
	service, store := setupService(t, diagnoser)

	done := make(chan error, 1)
	go func() {
		_, err := service.Analyze(context.Background(), "img")
		done <- err
	}()

	waitForState(t, service, ViewAnalyzing)

	// The user navigates away before the result arrives.
	service.Reset()
	close(diagnoser.block)

	if err := <-done; !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}

	if got := len(store.LoadAll()); got != 0 {
		t.Errorf("expected stale result to write no history, got %d entries", got)
	}

	snap := service.Snapshot()
	if snap.State != ViewIdle {
		t.Errorf("expected idle view after reset, got %s", snap.State)
	}
	if snap.Result != nil {
		t.Error("expected stale result not to surface")
	}
}

func TestServiceLocationSharing(t *testing.T) {
	diagnoser := &mockDiagnoser{diagnosis: healthyDiagnosis()}
	service, _ := setupService(t, diagnoser)

	service.SetLocationSharing(true)
	service.UpdateLocation(locationFixture())

	if _, err := service.Analyze(context.Background(), "img"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := diagnoser.gotRequests[0]
	if req.Latitude == nil || *req.Latitude != 52.52 {
		t.Error("expected shared location to reach the analysis request")
	}

	// Disabling sharing clears the captured coordinates before the next
	// analysis call.
	service.SetLocationSharing(false)
	service.Reset()

	if _, err := service.Analyze(context.Background(), "img"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req = diagnoser.gotRequests[1]
	if req.Latitude != nil || req.Longitude != nil {
		t.Error("expected no coordinates after sharing was disabled")
	}
}

func TestServiceLocationIgnoredWhileDisabled(t *testing.T) {
	diagnoser := &mockDiagnoser{diagnosis: healthyDiagnosis()}
	service, _ := setupService(t, diagnoser)

	service.UpdateLocation(locationFixture())

	if _, err := service.Analyze(context.Background(), "img"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diagnoser.gotRequests[0].Latitude != nil {
		t.Error("expected a fix recorded while sharing is off to be dropped")
	}
}

func TestServiceLocalePassedThrough(t *testing.T) {
	diagnoser := &mockDiagnoser{diagnosis: healthyDiagnosis()}
	service, _ := setupService(t, diagnoser)

	service.SetLocale("pt")

	if _, err := service.Analyze(context.Background(), "img"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := diagnoser.gotRequests[0].Locale; got != "pt" {
		t.Errorf("expected locale pt, got %q", got)
	}
}

func waitForState(t *testing.T, s *Service, want ViewState) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Snapshot().State == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for view state %s", want)
}
