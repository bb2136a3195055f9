// Package export bundles session artifacts into shareable packs.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"lectern/internal/attachments"
	"lectern/internal/store"
	"lectern/internal/transcript"
)

// DirName is the export artifact directory inside a session directory.
const DirName = "exports"

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".aac":  true,
	".flac": true,
	".ogg":  true,
}

// Options selects which artifacts go into a session pack.
type Options struct {
	AINotes        bool `json:"include_ai_notes"`
	PersonalNotes  bool `json:"include_personal_notes"`
	Transcript     bool `json:"include_transcript"`
	Audio          bool `json:"include_audio"`
	Attachments    bool `json:"include_attachments"`
	RawChunks      bool `json:"include_raw_chunks"`
	PromptManifest bool `json:"include_prompt_manifest"`

	// Model names the language model recorded in the prompt manifest.
	Model string `json:"-"`
}

// AllOptions includes every artifact.
func AllOptions() Options {
	return Options{
		AINotes:        true,
		PersonalNotes:  true,
		Transcript:     true,
		Audio:          true,
		Attachments:    true,
		RawChunks:      true,
		PromptManifest: true,
	}
}

// BuildSessionPack writes a ZIP bundle of the selected session artifacts under
// the session's exports directory and returns its path. Missing artifacts are
// skipped, never an error.
func BuildSessionPack(module *store.Module, session *store.Session, sessionDir string, opts Options) (string, error) {
	exportsDir := filepath.Join(sessionDir, DirName)
	if err := os.MkdirAll(exportsDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure exports dir: %w", err)
	}

	safeModule := safeName(module.Name, "Module")
	safeSession := safeName(session.Name, "Session")
	timestamp := time.Now().UTC().Format("20060102-150405")
	fileName := safeFilenameComponent(fmt.Sprintf("Lectern_%s_%s_%s.zip", safeModule, safeSession, timestamp))
	zipPath := filepath.Join(exportsDir, fileName)
	root := fmt.Sprintf("Lectern/%s/%s", safeModule, safeSession)

	archive, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	defer archive.Close()

	writer := zip.NewWriter(archive)
	var files []string

	addFile := func(src, dest string) error {
		in, err := os.Open(src)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := writer.Create(dest)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, in); err != nil {
			return err
		}
		files = append(files, dest)
		return nil
	}
	addOptional := func(src, dest string) error {
		if _, err := os.Stat(src); err != nil {
			return nil
		}
		return addFile(src, dest)
	}

	if opts.AINotes {
		if err := addOptional(filepath.Join(sessionDir, "notes", "ai_notes.md"), root+"/ai_notes.md"); err != nil {
			return "", fmt.Errorf("pack ai notes: %w", err)
		}
	}
	if opts.PersonalNotes {
		if err := addOptional(filepath.Join(sessionDir, "notes", "personal_notes.md"), root+"/personal_notes.md"); err != nil {
			return "", fmt.Errorf("pack personal notes: %w", err)
		}
	}
	if opts.Transcript {
		if err := addOptional(filepath.Join(sessionDir, transcript.DirName, transcript.TextFile), root+"/transcript.txt"); err != nil {
			return "", fmt.Errorf("pack transcript: %w", err)
		}
	}
	if opts.Audio {
		if err := packDir(addFile, filepath.Join(sessionDir, "audio"), root+"/audio", func(name string) bool {
			return audioExtensions[strings.ToLower(filepath.Ext(name))]
		}); err != nil {
			return "", fmt.Errorf("pack audio: %w", err)
		}
	}
	if opts.Attachments {
		if err := packDir(addFile, filepath.Join(sessionDir, attachments.DirName), root+"/attachments", func(name string) bool {
			if name == attachments.ExtractedTextFile || name == attachments.ExtractedSourcesFile {
				return false
			}
			return attachments.Allowed(name)
		}); err != nil {
			return "", fmt.Errorf("pack attachments: %w", err)
		}
	}
	if opts.RawChunks {
		if err := addOptional(filepath.Join(sessionDir, transcript.DirName, transcript.ChunksFile), root+"/raw/chunks.json"); err != nil {
			return "", fmt.Errorf("pack chunks: %w", err)
		}
	}
	if opts.PromptManifest {
		dest := root + "/prompt_manifest.json"
		payload := map[string]any{
			"exported_at": time.Now().UTC().Format(time.RFC3339),
			"meta":        map[string]any{"model": opts.Model},
		}
		if data, err := os.ReadFile(filepath.Join(sessionDir, "notes", "last_answer.json")); err == nil {
			var lastAnswer any
			if err := json.Unmarshal(data, &lastAnswer); err == nil {
				payload["last_answer"] = lastAnswer
			}
		}
		if err := addJSON(writer, dest, payload); err != nil {
			return "", fmt.Errorf("pack prompt manifest: %w", err)
		}
		files = append(files, dest)
	}

	manifestDest := root + "/manifest.json"
	listed := append(append([]string(nil), files...), manifestDest)
	sort.Strings(listed)
	manifest := map[string]any{
		"module":      map[string]any{"id": module.ID, "name": module.Name},
		"session":     map[string]any{"id": session.ID, "name": session.Name},
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"included": map[string]bool{
			"include_ai_notes":        opts.AINotes,
			"include_personal_notes":  opts.PersonalNotes,
			"include_transcript":      opts.Transcript,
			"include_audio":           opts.Audio,
			"include_attachments":     opts.Attachments,
			"include_raw_chunks":      opts.RawChunks,
			"include_prompt_manifest": opts.PromptManifest,
		},
		"files": listed,
	}
	if err := addJSON(writer, manifestDest, manifest); err != nil {
		return "", fmt.Errorf("pack manifest: %w", err)
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize export: %w", err)
	}
	return zipPath, nil
}

func packDir(addFile func(src, dest string) error, dir, destPrefix string, include func(name string) bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !include(entry.Name()) {
			continue
		}
		if err := addFile(filepath.Join(dir, entry.Name()), destPrefix+"/"+entry.Name()); err != nil {
			return err
		}
	}
	return nil
}

func addJSON(writer *zip.Writer, dest string, payload any) error {
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	out, err := writer.Create(dest)
	if err != nil {
		return err
	}
	_, err = out.Write(encoded)
	return err
}

func safeName(value, fallback string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = fallback
	}
	safe := strings.TrimSpace(strings.NewReplacer("/", "_", "\\", "_").Replace(raw))
	if safe == "" {
		return fallback
	}
	return safe
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeFilenameComponent(value string) string {
	safe := unsafeFilename.ReplaceAllString(value, "_")
	safe = strings.Trim(safe, "._")
	if safe == "" {
		return "export"
	}
	return safe
}
