package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, testReport(), true); err != nil {
		t.Fatal(err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.RunID != "r1" || len(data.Tasks) != 1 {
		t.Fatalf("unexpected export %+v", data)
	}
	task := data.Tasks[0]
	if got := task.Stages["total"].Mean; got != 2 {
		t.Errorf("expected total mean 2, got %v", got)
	}
	if got := task.StepMs["solver"]; len(got) != 3 || got[2] != 2.5 {
		t.Errorf("unexpected solver steps %v", got)
	}
}

func TestWriteJSONWithoutSteps(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, testReport(), false); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf.Bytes(), []byte("step_ms")) {
		t.Error("step series should be omitted")
	}
}

func TestExportFromStore(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Publish(context.Background(), testReport()); err != nil {
		t.Fatal(err)
	}

	r, err := s.Report("r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Summaries) != 1 || len(r.Steps) != 3 {
		t.Fatalf("expected 1 summary and 3 steps, got %d and %d", len(r.Summaries), len(r.Steps))
	}

	path := filepath.Join(dir, "r1.json")
	if err := ExportJSON(path, r, false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export not written: %v", err)
	}
}
