package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteArtifactsRoundTrip(t *testing.T) {
	sessionDir := t.TempDir()
	segments := []Segment{
		seg(0, 0, 3.5, "welcome to the lecture"),
		seg(1, 3.5, 7.25, "today we cover paging"),
	}
	chunks, err := BuildChunks(segments, 1200, 1)
	if err != nil {
		t.Fatalf("BuildChunks: %v", err)
	}

	path, err := WriteArtifacts(sessionDir, segments, chunks)
	if err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	if filepath.Base(path) != SegmentsFile {
		t.Fatalf("expected transcript.json path, got %q", path)
	}

	loaded := LoadSegments(path)
	if len(loaded) != 2 || loaded[1].Text != "today we cover paging" {
		t.Fatalf("unexpected segments after round trip: %+v", loaded)
	}

	text, err := os.ReadFile(filepath.Join(sessionDir, DirName, TextFile))
	if err != nil {
		t.Fatalf("read transcript.txt: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(text), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 text lines, got %d", len(lines))
	}
	if lines[0] != "[0.00-3.50] welcome to the lecture" {
		t.Fatalf("unexpected text line: %q", lines[0])
	}

	loadedChunks := LoadChunks(filepath.Join(sessionDir, DirName, ChunksFile))
	if len(loadedChunks) != len(chunks) {
		t.Fatalf("chunks did not round trip: %d vs %d", len(loadedChunks), len(chunks))
	}
}

func TestWriteArtifactsReplacesPrevious(t *testing.T) {
	sessionDir := t.TempDir()
	first := []Segment{seg(0, 0, 1, "first run")}
	if _, err := WriteArtifacts(sessionDir, first, nil); err != nil {
		t.Fatalf("WriteArtifacts first: %v", err)
	}
	second := []Segment{seg(0, 0, 1, "second run")}
	path, err := WriteArtifacts(sessionDir, second, nil)
	if err != nil {
		t.Fatalf("WriteArtifacts second: %v", err)
	}
	loaded := LoadSegments(path)
	if len(loaded) != 1 || loaded[0].Text != "second run" {
		t.Fatalf("previous transcript should be replaced: %+v", loaded)
	}
	// No staging leftovers in the session directory.
	entries, err := os.ReadDir(sessionDir)
	if err != nil {
		t.Fatalf("read session dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".transcript-") {
			t.Fatalf("staging directory leaked: %s", entry.Name())
		}
	}
}

func TestLoadSegmentsToleratesMissingAndMalformed(t *testing.T) {
	if got := LoadSegments(filepath.Join(t.TempDir(), "missing.json")); got != nil {
		t.Fatalf("expected nil for missing file, got %+v", got)
	}
	badPath := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(badPath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}
	if got := LoadSegments(badPath); got != nil {
		t.Fatalf("expected nil for malformed file, got %+v", got)
	}
}

func TestRewriteChunks(t *testing.T) {
	sessionDir := t.TempDir()
	segments := []Segment{
		seg(0, 0, 1, strings.Repeat("a", 30)),
		seg(1, 1, 2, strings.Repeat("b", 30)),
	}
	if _, err := WriteArtifacts(sessionDir, segments, nil); err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	if err := RewriteChunks(sessionDir, 30, 0); err != nil {
		t.Fatalf("RewriteChunks: %v", err)
	}
	chunks := LoadChunks(filepath.Join(sessionDir, DirName, ChunksFile))
	if len(chunks) != 2 {
		t.Fatalf("expected regenerated chunks, got %d", len(chunks))
	}
}
