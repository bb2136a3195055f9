package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"lectern/internal/fileutil"
)

const (
	// DirName is the transcript artifact directory inside a session directory.
	DirName = "transcript"

	SegmentsFile = "transcript.json"
	TextFile     = "transcript.txt"
	ChunksFile   = "chunks.json"
)

// WriteArtifacts publishes transcript.json, transcript.txt, and chunks.json
// under sessionDir/transcript. Files are staged in a temp directory and the
// directory is swapped into place, so readers never see a partial transcript.
// Returns the path of the published transcript.json.
func WriteArtifacts(sessionDir string, segments []Segment, chunks []Chunk) (string, error) {
	if segments == nil {
		segments = []Segment{}
	}
	if chunks == nil {
		chunks = []Chunk{}
	}

	staging, err := os.MkdirTemp(sessionDir, ".transcript-*")
	if err != nil {
		return "", fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(staging)
	}()

	segmentsJSON, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal segments: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, SegmentsFile), segmentsJSON, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", SegmentsFile, err)
	}

	if err := os.WriteFile(filepath.Join(staging, TextFile), renderText(segments), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", TextFile, err)
	}

	chunksJSON, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal chunks: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, ChunksFile), chunksJSON, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", ChunksFile, err)
	}

	final := filepath.Join(sessionDir, DirName)
	if err := os.RemoveAll(final); err != nil {
		return "", fmt.Errorf("clear previous transcript: %w", err)
	}
	if err := os.Rename(staging, final); err != nil {
		return "", fmt.Errorf("publish transcript: %w", err)
	}
	return filepath.Join(final, SegmentsFile), nil
}

// renderText produces the human-readable transcript: one line per segment
// with second-precision timestamps.
func renderText(segments []Segment) []byte {
	var out []byte
	for _, seg := range segments {
		out = append(out, fmt.Sprintf("[%.2f-%.2f] %s\n", seg.Start, seg.End, seg.Text)...)
	}
	return out
}

// LoadSegments reads transcript.json. Missing or malformed files yield an
// empty slice so callers treat them as "no transcript yet".
func LoadSegments(path string) []Segment {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var segments []Segment
	if err := json.Unmarshal(data, &segments); err != nil {
		return nil
	}
	return segments
}

// LoadChunks reads chunks.json next to a transcript. Missing or malformed
// files yield an empty slice.
func LoadChunks(path string) []Chunk {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var chunks []Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil
	}
	return chunks
}

// RewriteChunks regenerates chunks.json from an existing transcript.json
// without touching the other artifacts.
func RewriteChunks(sessionDir string, maxChars, overlap int) error {
	dir := filepath.Join(sessionDir, DirName)
	segments := LoadSegments(filepath.Join(dir, SegmentsFile))
	chunks, err := BuildChunks(segments, maxChars, overlap)
	if err != nil {
		return err
	}
	if chunks == nil {
		chunks = []Chunk{}
	}
	data, err := json.MarshalIndent(chunks, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	return fileutil.WriteFileAtomic(filepath.Join(dir, ChunksFile), data, 0o644)
}
