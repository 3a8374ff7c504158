package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/interchange/internal/archive"
	"github.com/taskdeck/interchange/internal/format"
	"github.com/taskdeck/interchange/internal/task"
)

func TestArchiveRoundTrip(t *testing.T) {
	base := time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
	records := []task.Record{
		{
			ID: uuid.New(), Kind: task.KindTask, Title: "On the board",
			Notes:  "Carried through the archive.\n---\nEven past a divider.",
			Status: task.StatusNextAction, Project: "Home", Priority: task.PriorityHigh,
			Positions: map[string]task.Position{"week-47": {X: 120, Y: 80}},
			Created:   base, Modified: base,
		},
		{
			ID: uuid.New(), Kind: task.KindTask, Title: "Off the board",
			Status: task.StatusInbox, Priority: task.PriorityMedium,
			Created: base, Modified: base,
		},
	}

	var buf bytes.Buffer
	result, err := Converter{}.Export(records, ExportOptions{Format: format.NativeArchive}, &buf)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if result.ExportedCount != 2 {
		t.Fatalf("ExportedCount = %d, want 2", result.ExportedCount)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("native archive is lossless, got warnings %v", result.Warnings)
	}

	back, err := Converter{}.Import(buf.Bytes(), ImportOptions{Format: format.NativeArchive, PreserveIDs: true})
	if err != nil {
		t.Fatalf("re-import returned error: %v", err)
	}
	if back.ImportedCount() != 2 {
		t.Fatalf("re-imported %d records, want 2", back.ImportedCount())
	}

	byID := make(map[uuid.UUID]task.Record)
	for _, rec := range back.Records {
		byID[rec.ID] = rec
	}
	got, ok := byID[records[0].ID]
	if !ok {
		t.Fatal("filename identity lost in round trip")
	}
	if got.Title != "On the board" || got.Notes != "Carried through the archive.\n---\nEven past a divider." {
		t.Errorf("record changed in round trip: %+v", got)
	}
	pos, ok := got.Positions["week-47"]
	if !ok || pos.X != 120 || pos.Y != 80 {
		t.Errorf("Positions = %v, want week-47 at (120, 80)", got.Positions)
	}
}

func TestArchiveLayout(t *testing.T) {
	id := uuid.New()
	records := []task.Record{{
		ID: id, Kind: task.KindTask, Title: "Layout check",
		Status: task.StatusInbox, Priority: task.PriorityMedium,
		Positions: map[string]task.Position{"main": {X: 1, Y: 2}},
		Created:   time.Now(), Modified: time.Now(),
	}}

	var buf bytes.Buffer
	if _, err := (Converter{}).Export(records, ExportOptions{Format: format.NativeArchive}, &buf); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	dir := t.TempDir()
	if err := (archive.Zip{}).Extract(buf.Bytes(), dir); err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "tasks", id.String()+".md")); err != nil {
		t.Errorf("task document missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "boards", "main.md")); err != nil {
		t.Errorf("board descriptor missing: %v", err)
	}
}

func TestArchiveCorruptInput(t *testing.T) {
	_, err := Converter{}.Import([]byte("not a zip archive"), ImportOptions{Format: format.NativeArchive, SkipErrors: true})
	if err == nil {
		t.Fatal("corrupt archive should be a structural failure")
	}
}

func TestArchiveBrokenDocumentIsRowError(t *testing.T) {
	good := uuid.New()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "tasks"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, "tasks", name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(good.String()+".md", "---\ntitle: Fine\n---\n")
	writeFile(uuid.New().String()+".md", "no frontmatter here")

	data, err := (archive.Zip{}).Compress(dir)
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}

	result, err := Converter{}.Import(data, ImportOptions{Format: format.NativeArchive, SkipErrors: true, PreserveIDs: true})
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.ImportedCount() != 1 || result.Records[0].ID != good {
		t.Errorf("got %d records, want only the intact document", result.ImportedCount())
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want one per-document error", result.Errors)
	}
	if !result.PartialSuccess() {
		t.Error("one broken document should classify as partial success")
	}
}
