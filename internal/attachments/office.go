package attachments

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Office Open XML containers are ZIP archives; the text lives in well-known
// XML parts. No third-party Go library in common use parses these, so the
// parts are walked directly with archive/zip and encoding/xml.

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// extractDOCX reads word/document.xml and joins paragraph text. The whole
// document is a single citable source.
func extractDOCX(path string) (string, []Source, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, fmt.Errorf("open docx: %w", err)
	}
	defer archive.Close()

	var document *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return "", nil, fmt.Errorf("open docx: word/document.xml missing")
	}

	paragraphs, err := collectParagraphText(document, "p", "t")
	if err != nil {
		return "", nil, fmt.Errorf("parse docx: %w", err)
	}
	text := strings.Join(paragraphs, "\n")
	if text == "" {
		return "", nil, nil
	}

	fileName := filepath.Base(path)
	source := Source{
		SourceID: fmt.Sprintf("att_%s", fileName),
		Kind:     "attachment",
		FileName: fileName,
		MIME:     mimeDOCX,
		Text:     text,
	}
	return text, []Source{source}, nil
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractPPTX reads each ppt/slides/slideN.xml part; every slide with text
// becomes its own citable source.
func extractPPTX(path string) (string, []Source, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, fmt.Errorf("open pptx: %w", err)
	}
	defer archive.Close()

	type slidePart struct {
		index int
		file  *zip.File
	}
	var slides []slidePart
	for _, f := range archive.File {
		match := slidePattern.FindStringSubmatch(f.Name)
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		slides = append(slides, slidePart{index: index, file: f})
	}
	sort.Slice(slides, func(a, b int) bool { return slides[a].index < slides[b].index })

	fileName := filepath.Base(path)
	var textBlocks []string
	var sources []Source
	for _, slide := range slides {
		runs, err := collectParagraphText(slide.file, "p", "t")
		if err != nil {
			return "", nil, fmt.Errorf("parse pptx slide %d: %w", slide.index, err)
		}
		text := strings.TrimSpace(strings.Join(runs, "\n"))
		if text == "" {
			continue
		}
		textBlocks = append(textBlocks, text)
		sources = append(sources, Source{
			SourceID: fmt.Sprintf("att_%s_s%d", fileName, slide.index),
			Kind:     "attachment",
			FileName: fileName,
			MIME:     mimePPTX,
			Slide:    intPtr(slide.index),
			Text:     text,
		})
	}
	return strings.Join(textBlocks, "\n\n"), sources, nil
}

// collectParagraphText streams an XML part, gathering character data inside
// <t> elements and grouping it by enclosing <p> paragraphs. Element names are
// matched by local name, which covers both the w: and a: namespaces.
func collectParagraphText(part *zip.File, paragraphLocal, textLocal string) ([]string, error) {
	reader, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	decoder := xml.NewDecoder(reader)
	var paragraphs []string
	var current strings.Builder
	inText := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch tok := token.(type) {
		case xml.StartElement:
			if tok.Name.Local == textLocal {
				inText = true
			}
		case xml.EndElement:
			switch tok.Name.Local {
			case textLocal:
				inText = false
			case paragraphLocal:
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		case xml.CharData:
			if inText {
				current.Write(tok)
			}
		}
	}
	// Text outside a closed paragraph still counts.
	if text := strings.TrimSpace(current.String()); text != "" {
		paragraphs = append(paragraphs, text)
	}
	return paragraphs, nil
}
