package attachments

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeZip(t *testing.T, path string, parts map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range parts {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
}

const docxBody = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t></w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func slideXML(text string) string {
	return `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree><p:sp><p:txBody>
    <a:p><a:r><a:t>` + text + `</a:t></a:r></a:p>
  </p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`
}

func TestExtractDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.docx")
	writeZip(t, path, map[string]string{"word/document.xml": docxBody})

	text, sources, err := extractDOCX(path)
	if err != nil {
		t.Fatalf("extractDOCX: %v", err)
	}
	if text != "First paragraph.\nSecond paragraph." {
		t.Fatalf("unexpected text: %q", text)
	}
	if len(sources) != 1 {
		t.Fatalf("expected one whole-document source, got %d", len(sources))
	}
	if sources[0].SourceID != "att_notes.docx" {
		t.Fatalf("unexpected source id: %q", sources[0].SourceID)
	}
	if sources[0].Page != nil || sources[0].Slide != nil {
		t.Fatalf("docx source has no page or slide: %+v", sources[0])
	}
}

func TestExtractPPTX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pptx")
	writeZip(t, path, map[string]string{
		"ppt/slides/slide1.xml":  slideXML("Title slide"),
		"ppt/slides/slide2.xml":  slideXML(""),
		"ppt/slides/slide10.xml": slideXML("Closing remarks"),
	})

	text, sources, err := extractPPTX(path)
	if err != nil {
		t.Fatalf("extractPPTX: %v", err)
	}
	if !strings.Contains(text, "Title slide") || !strings.Contains(text, "Closing remarks") {
		t.Fatalf("unexpected text: %q", text)
	}
	if len(sources) != 2 {
		t.Fatalf("empty slides must be skipped, got %d sources", len(sources))
	}
	if sources[0].SourceID != "att_deck.pptx_s1" {
		t.Fatalf("unexpected first source id: %q", sources[0].SourceID)
	}
	// Numeric ordering, not lexicographic: slide10 comes after slide1.
	if sources[1].SourceID != "att_deck.pptx_s10" {
		t.Fatalf("unexpected second source id: %q", sources[1].SourceID)
	}
	if sources[1].Locator() != "deck.pptx, slide 10" {
		t.Fatalf("unexpected locator: %q", sources[1].Locator())
	}
}

func TestRebuildIndexWritesArtifacts(t *testing.T) {
	sessionDir := t.TempDir()
	attachmentsDir := filepath.Join(sessionDir, DirName)
	writeZip(t, filepath.Join(attachmentsDir, "notes.docx"), map[string]string{"word/document.xml": docxBody})
	writeZip(t, filepath.Join(attachmentsDir, "deck.pptx"), map[string]string{"ppt/slides/slide1.xml": slideXML("Slide text")})
	// Not an allowed type, must be ignored.
	if err := os.WriteFile(filepath.Join(attachmentsDir, "readme.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write txt: %v", err)
	}

	ix := NewIndexer(nil)
	if err := ix.RebuildIndex(sessionDir); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	extracted, err := os.ReadFile(filepath.Join(attachmentsDir, ExtractedTextFile))
	if err != nil {
		t.Fatalf("read extracted.txt: %v", err)
	}
	if !strings.Contains(string(extracted), "First paragraph.") || !strings.Contains(string(extracted), "Slide text") {
		t.Fatalf("extracted.txt missing content: %q", string(extracted))
	}
	if strings.Contains(string(extracted), "ignore me") {
		t.Fatal("disallowed file types must not be indexed")
	}

	sources := LoadSources(sessionDir)
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}
}

func TestRebuildIndexSkipsCorruptFiles(t *testing.T) {
	sessionDir := t.TempDir()
	attachmentsDir := filepath.Join(sessionDir, DirName)
	if err := os.MkdirAll(attachmentsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(attachmentsDir, "broken.docx"), []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write broken file: %v", err)
	}
	writeZip(t, filepath.Join(attachmentsDir, "good.pptx"), map[string]string{"ppt/slides/slide1.xml": slideXML("Survivor")})

	ix := NewIndexer(nil)
	if err := ix.RebuildIndex(sessionDir); err != nil {
		t.Fatalf("RebuildIndex should survive corrupt files: %v", err)
	}
	sources := LoadSources(sessionDir)
	if len(sources) != 1 || sources[0].FileName != "good.pptx" {
		t.Fatalf("expected only the parsable file, got %+v", sources)
	}
}

func TestListFiles(t *testing.T) {
	sessionDir := t.TempDir()
	attachmentsDir := filepath.Join(sessionDir, DirName)
	writeZip(t, filepath.Join(attachmentsDir, "notes.docx"), map[string]string{"word/document.xml": docxBody})
	if err := os.WriteFile(filepath.Join(attachmentsDir, "scan.pdf"), []byte("%PDF-1.4 garbage"), 0o644); err != nil {
		t.Fatalf("write pdf: %v", err)
	}

	ix := NewIndexer(nil)
	if err := ix.RebuildIndex(sessionDir); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	files, err := ListFiles(sessionDir)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %+v", files)
	}
	// Sorted by name: notes.docx before scan.pdf.
	if files[0].Name != "notes.docx" || !files[0].HasText {
		t.Fatalf("unexpected first file: %+v", files[0])
	}
	if files[1].Name != "scan.pdf" || files[1].HasText {
		t.Fatalf("unparsable pdf should have no text: %+v", files[1])
	}

	// Index artifacts never appear in listings.
	for _, f := range files {
		if f.Name == ExtractedTextFile || f.Name == ExtractedSourcesFile {
			t.Fatalf("index artifact leaked into listing: %+v", f)
		}
	}
}

func TestListFilesMissingDir(t *testing.T) {
	files, err := ListFiles(t.TempDir())
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if files != nil {
		t.Fatalf("expected nil for missing dir, got %+v", files)
	}
}

func TestAllowed(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.PPTX", "c.docx", "d.ppt", "e.doc"} {
		if !Allowed(name) {
			t.Errorf("%s should be allowed", name)
		}
	}
	for _, name := range []string{"a.txt", "b.wav", "noext"} {
		if Allowed(name) {
			t.Errorf("%s should not be allowed", name)
		}
	}
}
