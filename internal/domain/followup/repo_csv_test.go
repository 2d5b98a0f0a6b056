package followup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/readmit/readmit/internal/engine"
)

func newTestCSVRepo(t *testing.T) (Repository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "patient_followups.csv")
	repo, err := NewRepoCSV(path)
	if err != nil {
		t.Fatalf("NewRepoCSV() error: %v", err)
	}
	return repo, path
}

func TestCSVRepo_CreatesHeader(t *testing.T) {
	_, path := newTestCSVRepo(t)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "Patient ID,Patient Name,Problem Type,Readmission Probability,Risk Label") {
		t.Errorf("unexpected header: %s", data)
	}
}

func TestCSVRepo_AppendAndList(t *testing.T) {
	repo, _ := newTestCSVRepo(t)
	ctx := context.Background()

	older := NewRecord(testReport("P-1", engine.BandLow), testNow.AddDate(0, 0, -2))
	newer := NewRecord(testReport("P-2", engine.BandHigh), testNow)
	for _, r := range []*Record{older, newer} {
		if err := repo.Append(ctx, r); err != nil {
			t.Fatalf("Append() error: %v", err)
		}
	}

	items, total, err := repo.ListActive(ctx, testNow.AddDate(0, -6, 0), 0, 0)
	if err != nil {
		t.Fatalf("ListActive() error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 active, got %d", total)
	}
	if items[0].PatientID != "P-2" {
		t.Errorf("expected newest first, got %s", items[0].PatientID)
	}
	if items[0].ID != newer.ID {
		t.Errorf("expected record id to round-trip")
	}
	if items[0].AdjustedRisk != 0.8123 || items[0].RiskBand != "High" {
		t.Errorf("unexpected values %+v", items[0])
	}

	page, total, _ := repo.ListActive(ctx, testNow.AddDate(0, -6, 0), 1, 1)
	if total != 2 || len(page) != 1 || page[0].PatientID != "P-1" {
		t.Errorf("unexpected page %v (total %d)", page, total)
	}
}

func TestCSVRepo_MarkCompleted(t *testing.T) {
	repo, _ := newTestCSVRepo(t)
	ctx := context.Background()
	repo.Append(ctx, NewRecord(testReport("P-1", engine.BandLow), testNow))
	repo.Append(ctx, NewRecord(testReport("P-2", engine.BandLow), testNow))

	if _, err := repo.MarkCompleted(ctx, "nobody", testNow); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	n, err := repo.MarkCompleted(ctx, "P-1", testNow)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 completed, got %d (%v)", n, err)
	}
	n, err = repo.MarkCompleted(ctx, "P-1", testNow)
	if err != nil || n != 0 {
		t.Errorf("expected idempotent completion, got %d (%v)", n, err)
	}

	items, _, _ := repo.ListActive(ctx, testNow.AddDate(0, -6, 0), 0, 0)
	if len(items) != 1 || items[0].PatientID != "P-2" {
		t.Errorf("expected only P-2 active, got %v", items)
	}

	all, _ := repo.ListAll(ctx)
	for _, r := range all {
		if r.PatientID == "P-1" && (r.Status != StatusCompleted || r.CompletedAt == nil) {
			t.Errorf("expected P-1 completed with timestamp, got %+v", r)
		}
	}
}

func TestCSVRepo_ConcurrentAppends(t *testing.T) {
	repo, _ := newTestCSVRepo(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := NewRecord(testReport(fmt.Sprintf("P-%d", i), engine.BandMedium), testNow)
			if err := repo.Append(ctx, rec); err != nil {
				t.Errorf("Append() error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error: %v", err)
	}
	if len(all) != 50 {
		t.Errorf("expected 50 records, got %d", len(all))
	}
}

func TestCSVRepo_UpgradesLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.csv")
	legacy := "Patient ID,Patient Name,Problem Type,Readmission Probability,Risk Label,Followup Channel,Next Visit,Simulation Date,Hospital Unit,Prediction Date,Status\n" +
		"L-1,Old Patient,Diabetes,0.5123,Medium,SMS + App,5 days,N/A,N/A,2024-06-01,Pending\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	repo, err := NewRepoCSV(path)
	if err != nil {
		t.Fatalf("NewRepoCSV() error: %v", err)
	}
	all, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error: %v", err)
	}
	if len(all) != 1 || all[0].PatientID != "L-1" || all[0].AdjustedRisk != 0.5123 {
		t.Fatalf("unexpected records %+v", all)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(strings.SplitN(string(data), "\n", 2)[0], "Record ID") {
		t.Error("expected header upgraded with Record ID")
	}
	if want := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC); !all[0].PredictionDate.Equal(want) {
		t.Errorf("expected %v, got %v", want, all[0].PredictionDate)
	}
}

func TestCSVRepo_ReordersForeignHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reordered.csv")
	content := "Status,Patient ID,Patient Name,Problem Type,Readmission Probability,Risk Label," +
		"Followup Channel,Next Visit,Simulation Date,Hospital Unit,Prediction Date," +
		"Record ID,Completed At,Created At\n" +
		"Pending,R-1,First Patient,Diabetes,0.7000,High,Phone Call,2 days,N/A,N/A,2024-06-01,,,\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	repo, err := NewRepoCSV(path)
	if err != nil {
		t.Fatalf("NewRepoCSV() error: %v", err)
	}
	data, _ := os.ReadFile(path)
	if got := strings.SplitN(string(data), "\n", 2)[0]; got != strings.Join(csvHeader, ",") {
		t.Errorf("expected canonical header, got %q", got)
	}

	ctx := context.Background()
	if err := repo.Append(ctx, NewRecord(testReport("R-2", engine.BandLow), testNow)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	byID := map[string]*Record{}
	for _, rec := range all {
		byID[rec.PatientID] = rec
	}
	first, second := byID["R-1"], byID["R-2"]
	if first == nil || second == nil {
		t.Fatalf("expected R-1 and R-2, got %+v", all)
	}
	if first.Status != StatusPending || first.AdjustedRisk != 0.7 || first.RiskBand != "High" {
		t.Errorf("unexpected migrated record %+v", first)
	}
	if second.Status != StatusPending || second.PatientName != "Test Patient" || second.RiskBand != "Low" {
		t.Errorf("appended record misaligned: %+v", second)
	}
}
