package services

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github/itish2003/docchat/logger"
	"github/itish2003/docchat/models"
)

// Supported mime types for file ingestion.
const (
	MimePDF      = "application/pdf"
	MimeText     = "text/plain"
	MimeMarkdown = "text/markdown"
)

// TextExtractor turns raw file bytes into plain text.
type TextExtractor interface {
	Extract(data []byte, mimeType string) (string, error)
}

// DocumentExtractor reads PDFs with UniPDF and falls back to a plain-text
// reader when UniPDF yields nothing. Text and markdown pass through.
type DocumentExtractor struct {
	licenseKey  string
	licenseOnce sync.Once
	licensed    bool
}

// NewDocumentExtractor creates an extractor. The UniPDF metered key is applied
// on first PDF use; with no key only the fallback reader is used.
func NewDocumentExtractor(licenseKey string) *DocumentExtractor {
	return &DocumentExtractor{licenseKey: licenseKey}
}

// Extract returns the text content of data.
func (e *DocumentExtractor) Extract(data []byte, mimeType string) (string, error) {
	switch normalizeMimeType(mimeType) {
	case MimeText, MimeMarkdown:
		return string(data), nil
	case MimePDF:
		return e.extractPDF(data)
	default:
		return "", fmt.Errorf("%w: unsupported file type: %s", models.ErrInvalidInput, mimeType)
	}
}

func (e *DocumentExtractor) extractPDF(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	e.licenseOnce.Do(func() {
		if e.licenseKey == "" {
			return
		}
		if err := license.SetMeteredKey(e.licenseKey); err != nil {
			logger.Warn("EXTRACTOR: failed to set Unidoc license key: %v", err)
			return
		}
		e.licensed = true
	})

	if e.licensed {
		text, err := extractWithUniPDF(data)
		if err == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		logger.Debug("EXTRACTOR: UniPDF extraction gave nothing (%v), trying fallback reader", err)
	}

	text, err := extractWithPlainReader(data)
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	return text, nil
}

func extractWithUniPDF(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", err
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func extractWithPlainReader(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// MimeTypeForPath maps a file extension to a supported mime type, or "".
func MimeTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return MimePDF
	case ".txt":
		return MimeText
	case ".md", ".markdown":
		return MimeMarkdown
	default:
		return ""
	}
}

// normalizeMimeType strips parameters such as "; charset=utf-8".
func normalizeMimeType(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// IsSupportedMimeType reports whether Extract accepts mimeType.
func IsSupportedMimeType(mimeType string) bool {
	switch normalizeMimeType(mimeType) {
	case MimePDF, MimeText, MimeMarkdown:
		return true
	}
	return false
}
