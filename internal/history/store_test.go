package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"leafscan/internal/ai"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewStore(db)
}

func testDiagnosis(crop string) ai.Diagnosis {
	return ai.Diagnosis{
		CropName:        crop,
		DiseaseDetected: true,
		DiseaseName:     "Leaf Rust",
		ConfidencePct:   90,
		DangerLevel:     40,
		Symptoms:        []string{"orange pustules"},
		Treatments:      []string{"fungicide"},
		PreventionTips:  []string{"resistant varieties"},
	}
}

func TestStoreAppendAndLoadAll(t *testing.T) {
	store := setupTestStore(t)

	result, err := store.Append("data:image/jpeg;base64,Zm9v", testDiagnosis("Tomato"))
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	if result.ID == "" {
		t.Error("expected a generated id")
	}
	if result.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
	if result.CropName != "Tomato" {
		t.Errorf("expected crop Tomato, got %q", result.CropName)
	}

	list := store.LoadAll()
	if len(list) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(list))
	}
	if list[0].ID != result.ID {
		t.Errorf("expected entry %s, got %s", result.ID, list[0].ID)
	}
	if list[0].Analysis.DiseaseName != "Leaf Rust" {
		t.Errorf("expected nested analysis to round-trip, got %q", list[0].Analysis.DiseaseName)
	}
}

func TestStoreNewestFirst(t *testing.T) {
	store := setupTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.Append("img", testDiagnosis(fmt.Sprintf("crop-%d", i))); err != nil {
			t.Fatalf("Failed to append: %v", err)
		}
	}

	list := store.LoadAll()
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	if list[0].CropName != "crop-2" {
		t.Errorf("expected newest entry first, got %q", list[0].CropName)
	}
	if list[2].CropName != "crop-0" {
		t.Errorf("expected oldest entry last, got %q", list[2].CropName)
	}
}

func TestStoreCapEvictsOldest(t *testing.T) {
	store := setupTestStore(t)

	total := MaxEntries + 5
	for i := 0; i < total; i++ {
		if _, err := store.Append("img", testDiagnosis(fmt.Sprintf("crop-%d", i))); err != nil {
			t.Fatalf("Failed to append entry %d: %v", i, err)
		}
	}

	list := store.LoadAll()
	if len(list) != MaxEntries {
		t.Fatalf("expected exactly %d entries, got %d", MaxEntries, len(list))
	}

	if list[0].CropName != fmt.Sprintf("crop-%d", total-1) {
		t.Errorf("expected most recent entry first, got %q", list[0].CropName)
	}
	if list[MaxEntries-1].CropName != fmt.Sprintf("crop-%d", total-MaxEntries) {
		t.Errorf("expected oldest retained entry to be crop-%d, got %q",
			total-MaxEntries, list[MaxEntries-1].CropName)
	}
}

func TestStoreLoadAllMalformed(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.db.conn.Exec(
		`INSERT INTO app_storage (key, value, updated_at) VALUES (?, ?, ?)`,
		storageKey, "{not valid json", time.Now(),
	)
	if err != nil {
		t.Fatalf("Failed to insert malformed payload: %v", err)
	}

	list := store.LoadAll()
	if len(list) != 0 {
		t.Errorf("expected malformed history to read as empty, got %d entries", len(list))
	}

	// Appending on top of a malformed payload starts a fresh list.
	if _, err := store.Append("img", testDiagnosis("Maize")); err != nil {
		t.Fatalf("Failed to append after malformed payload: %v", err)
	}
	if got := len(store.LoadAll()); got != 1 {
		t.Errorf("expected 1 entry after recovery, got %d", got)
	}
}

func TestStoreGetByID(t *testing.T) {
	store := setupTestStore(t)

	result, err := store.Append("img", testDiagnosis("Rice"))
	if err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	if got := store.GetByID(result.ID); got == nil || got.CropName != "Rice" {
		t.Errorf("expected to find entry %s", result.ID)
	}
	if got := store.GetByID("00000000-0000-0000-0000-000000000000"); got != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestStoreClear(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.Append("img", testDiagnosis("Barley")); err != nil {
		t.Fatalf("Failed to append: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}

	if got := len(store.LoadAll()); got != 0 {
		t.Errorf("expected empty history after clear, got %d entries", got)
	}
}
