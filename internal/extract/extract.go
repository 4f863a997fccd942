// Package extract normalizes supported uploads into raw document text.
// The accepted input union is fixed: PDF, ZIP of PDFs, plain text, and
// JSON. Anything else is rejected before the pipeline starts.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"personabrief/internal/core"
	"personabrief/internal/logger"
)

// FromFile reads and extracts the file at path into a Document.
func FromFile(path string) (*core.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return FromBytes(filepath.Base(path), data)
}

// FromBytes extracts document text from an in-memory upload. The format is
// chosen by filename extension.
func FromBytes(filename string, data []byte) (*core.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", core.ErrInvalidInput, filename)
	}

	var text string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = pdfText(data)
	case ".zip":
		text, err = zipText(data)
	case ".txt", ".md", ".log":
		text = string(data)
	case ".json":
		text, err = jsonText(data)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q (accepted: pdf, zip, txt, json)", core.ErrInvalidInput, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	text = cleanText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: no text could be extracted from %s", core.ErrInvalidInput, filename)
	}

	return &core.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		Text:      text,
		DateAdded: time.Now().UTC(),
	}, nil
}

// pdfText extracts plain text from every page, skipping pages that fail
// rather than dropping the whole document.
func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to parse PDF: %v", core.ErrInvalidInput, err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("failed to extract PDF page", "page", i, "error", err.Error())
			continue
		}
		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}
	return textBuilder.String(), nil
}

// zipText concatenates the text of every PDF inside the archive. Non-PDF
// members are ignored; an archive with no PDFs is invalid input.
func zipText(data []byte) (string, error) {
	archive, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: failed to open ZIP: %v", core.ErrInvalidInput, err)
	}

	var parts []string
	for _, member := range archive.File {
		if !strings.HasSuffix(strings.ToLower(member.Name), ".pdf") {
			continue
		}

		rc, err := member.Open()
		if err != nil {
			logger.Warn("failed to open ZIP member", "name", member.Name, "error", err.Error())
			continue
		}
		memberData := new(bytes.Buffer)
		_, copyErr := memberData.ReadFrom(rc)
		rc.Close()
		if copyErr != nil {
			logger.Warn("failed to read ZIP member", "name", member.Name, "error", copyErr.Error())
			continue
		}

		text, err := pdfText(memberData.Bytes())
		if err != nil {
			logger.Warn("failed to extract PDF from ZIP", "name", member.Name, "error", err.Error())
			continue
		}
		parts = append(parts, text)
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no readable PDFs found in ZIP", core.ErrInvalidInput)
	}
	return strings.Join(parts, "\n\n"), nil
}

// jsonText pretty-prints JSON so structure survives into the summary
// prompt as readable text.
func jsonText(data []byte) (string, error) {
	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("%w: malformed JSON: %v", core.ErrInvalidInput, err)
	}
	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: failed to render JSON: %v", core.ErrInvalidInput, err)
	}
	return string(pretty), nil
}

// cleanText drops blank and near-empty lines left behind by PDF
// extraction.
func cleanText(raw string) string {
	lines := strings.Split(raw, "\n")
	var cleaned []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
