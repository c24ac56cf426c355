package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"docqa-service/internal/logger"
	"docqa-service/models"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

// PDFLoader stages uploads in a per-session temp directory and extracts their
// text page by page. The directory is removed on every exit path.
type PDFLoader struct {
	tempRoot       string // "" means os.TempDir()
	popplerTimeout time.Duration
}

func NewPDFLoader(tempRoot string) *PDFLoader {
	return &PDFLoader{tempRoot: tempRoot, popplerTimeout: 30 * time.Second}
}

// IsPDF reports whether a filename carries the .pdf extension, ignoring case.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Load returns one document per file, in upload order.
func (l *PDFLoader) Load(ctx context.Context, sessionID string, files []models.UploadedFile) ([]models.Document, error) {
	for _, f := range files {
		if !IsPDF(f.Filename) {
			return nil, fmt.Errorf("%w: %q is not a PDF", ErrUnsupportedFormat, f.Filename)
		}
	}

	dir, err := os.MkdirTemp(l.tempRoot, "session_"+sessionID+"_")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("Failed to remove staging dir", "dir", dir, "error", err)
		}
	}()

	docs := make([]models.Document, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(dir, fmt.Sprintf("doc_%d.pdf", i))
		if err := os.WriteFile(path, f.Content, 0o600); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", f.Filename, err)
		}

		pages, method, err := l.extract(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Filename, err)
		}
		logger.Debug("Extracted document", "file", f.Filename, "pages", len(pages), "method", method)

		docs = append(docs, models.Document{
			Index:    i,
			Filename: f.Filename,
			Pages:    pages,
			Method:   method,
		})
	}
	return docs, nil
}

// extract tries the pure Go reader first and falls back to pdftotext when it
// yields nothing (scanned layouts, unusual encodings).
func (l *PDFLoader) extract(ctx context.Context, path string) ([]string, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read PDF file: %w", err)
	}

	pages, goErr := extractWithGoPDF(content)
	if goErr == nil && hasText(pages) {
		return pages, "go-pdf", nil
	}

	if !hasBinary("pdftotext") {
		if goErr != nil {
			return nil, "", goErr
		}
		return pages, "go-pdf", nil
	}

	popplerPages, err := l.extractWithPoppler(ctx, content)
	if err != nil {
		if goErr != nil {
			return nil, "", fmt.Errorf("go-pdf: %v; poppler: %w", goErr, err)
		}
		return pages, "go-pdf", nil
	}
	return popplerPages, "poppler", nil
}

func extractWithGoPDF(content []byte) (pages []string, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	n := reader.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(make(map[string]*pdf.Font))
		if err != nil {
			logger.Debug("Failed to extract page text", "page", i, "error", err)
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func (l *PDFLoader) extractWithPoppler(ctx context.Context, content []byte) ([]string, error) {
	extractCtx, cancel := context.WithTimeout(ctx, l.popplerTimeout)
	defer cancel()

	cmd := exec.CommandContext(extractCtx, "pdftotext", "-layout", "-", "-")
	cmd.Stdin = bytes.NewReader(content)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext failed: %v, stderr: %s", err, stderr.String())
	}

	// pdftotext separates pages with form feeds
	pages := strings.Split(strings.TrimSuffix(stdout.String(), "\f"), "\f")
	if !hasText(pages) {
		return nil, fmt.Errorf("no text extracted by pdftotext")
	}
	return pages, nil
}

func hasText(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

// hasBinary checks if a binary executable exists in PATH
func hasBinary(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
