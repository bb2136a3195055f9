// Package attachments extracts text from uploaded lecture materials and
// maintains the per-session extraction index used for retrieval.
package attachments

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lectern/internal/fileutil"
	"lectern/internal/logging"
)

const (
	// DirName is the attachments directory inside a session directory.
	DirName = "attachments"

	ExtractedTextFile    = "extracted.txt"
	ExtractedSourcesFile = "extracted_sources.json"
)

// AllowedExtensions lists the attachment types lectern accepts.
var AllowedExtensions = map[string]struct{}{
	".pdf":  {},
	".ppt":  {},
	".pptx": {},
	".doc":  {},
	".docx": {},
}

// Allowed reports whether the file extension is an accepted attachment type.
func Allowed(name string) bool {
	_, ok := AllowedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Source is one extracted excerpt: a PDF page, a presentation slide, or a
// whole document.
type Source struct {
	SourceID string `json:"source_id"`
	Kind     string `json:"kind"`
	FileName string `json:"file_name"`
	MIME     string `json:"mime"`
	Page     *int   `json:"page"`
	Slide    *int   `json:"slide,omitempty"`
	Text     string `json:"text"`
}

// RetrievalText exposes the excerpt text for lexical retrieval.
func (s Source) RetrievalText() string { return s.Text }

// Locator describes where in the file the excerpt came from, for citations.
func (s Source) Locator() string {
	switch {
	case s.Page != nil:
		return fmt.Sprintf("%s, page %d", s.FileName, *s.Page)
	case s.Slide != nil:
		return fmt.Sprintf("%s, slide %d", s.FileName, *s.Slide)
	default:
		return s.FileName
	}
}

// FileInfo summarizes one stored attachment for listings.
type FileInfo struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	HasText bool   `json:"has_text"`
}

// Indexer rebuilds and reads the extraction index of a session.
type Indexer struct {
	logger *slog.Logger
}

// NewIndexer builds an indexer.
func NewIndexer(logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Indexer{logger: logging.WithComponent(logger, "attachments")}
}

// RebuildIndex re-extracts text from every attachment in the session and
// rewrites extracted.txt and extracted_sources.json. Files that cannot be
// parsed are skipped with a warning rather than failing the whole rebuild.
func (ix *Indexer) RebuildIndex(sessionDir string) error {
	attachmentsDir := filepath.Join(sessionDir, DirName)
	if err := os.MkdirAll(attachmentsDir, 0o755); err != nil {
		return fmt.Errorf("ensure attachments dir: %w", err)
	}

	entries, err := os.ReadDir(attachmentsDir)
	if err != nil {
		return fmt.Errorf("read attachments dir: %w", err)
	}

	var textBlocks []string
	sources := make([]Source, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == ExtractedTextFile || name == ExtractedSourcesFile {
			continue
		}
		if !Allowed(name) {
			continue
		}
		path := filepath.Join(attachmentsDir, name)

		var (
			text       string
			fileSource []Source
			extractErr error
		)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			text, fileSource, extractErr = extractPDF(path)
		case ".doc", ".docx":
			text, fileSource, extractErr = extractDOCX(path)
		case ".ppt", ".pptx":
			text, fileSource, extractErr = extractPPTX(path)
		}
		if extractErr != nil {
			ix.logger.Warn("attachment extraction failed",
				slog.String("file", name),
				slog.String("error", extractErr.Error()))
			continue
		}
		if text != "" {
			textBlocks = append(textBlocks, text)
		}
		sources = append(sources, fileSource...)
	}

	joined := strings.Join(textBlocks, "\n\n")
	if err := fileutil.WriteFileAtomic(filepath.Join(attachmentsDir, ExtractedTextFile), []byte(joined), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ExtractedTextFile, err)
	}
	encoded, err := json.MarshalIndent(sources, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(attachmentsDir, ExtractedSourcesFile), encoded, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", ExtractedSourcesFile, err)
	}
	return nil
}

// LoadSources reads extracted_sources.json. Missing or malformed index files
// yield an empty slice.
func LoadSources(sessionDir string) []Source {
	data, err := os.ReadFile(filepath.Join(sessionDir, DirName, ExtractedSourcesFile))
	if err != nil {
		return nil
	}
	var sources []Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil
	}
	return sources
}

// ListFiles reports the stored attachments of a session with a flag for
// whether any text was extracted from them.
func ListFiles(sessionDir string) ([]FileInfo, error) {
	attachmentsDir := filepath.Join(sessionDir, DirName)
	entries, err := os.ReadDir(attachmentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read attachments dir: %w", err)
	}
	sources := LoadSources(sessionDir)
	hasText := make(map[string]bool, len(sources))
	for _, source := range sources {
		hasText[source.FileName] = true
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == ExtractedTextFile || name == ExtractedSourcesFile {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:    name,
			Size:    info.Size(),
			HasText: hasText[name],
		})
	}
	sort.Slice(files, func(a, b int) bool { return files[a].Name < files[b].Name })
	return files, nil
}

func intPtr(v int) *int { return &v }
