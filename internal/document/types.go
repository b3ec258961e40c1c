package document

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyDocument   = errors.New("document contains no readable text")
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrTooLarge        = errors.New("document exceeds size limit")
)

// Format identifies which reader produced the text.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
	FormatText Format = "text"
)

// Source is an uploaded or downloaded document.
type Source struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is the text read from a Source. UsingFallback is set when Text is
// FallbackText rather than the document's own contents; Cause then holds the
// reader error that triggered it.
type Result struct {
	Text          string `json:"text"`
	Format        Format `json:"format"`
	UsingFallback bool   `json:"using_fallback"`
	Chars         int    `json:"chars"`
	Cause         error  `json:"-"`
}

// FallbackText stands in for a care plan whose text could not be read.
const FallbackText = `Patient Care Plan - Dr. Smith

Daily Activity Goals:
- Patient should walk at least 5000 steps daily
- Maintain regular physical activity
- Monitor heart rate during exercise

Dietary Recommendations:
- Low sodium diet
- High fiber intake
- Stay hydrated

Follow-up: 4 weeks`

// DetectFormat picks a reader from the declared content type, then the file
// extension, then the leading bytes.
func DetectFormat(src Source) (Format, error) {
	ct := strings.ToLower(src.ContentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return FormatPDF, nil
	case strings.Contains(ct, "html"):
		return FormatHTML, nil
	case strings.HasPrefix(ct, "text/"):
		return FormatText, nil
	}

	switch strings.ToLower(filepath.Ext(src.Name)) {
	case ".pdf":
		return FormatPDF, nil
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	case ".txt", ".text", ".md":
		return FormatText, nil
	}

	head := src.Data
	if len(head) > 512 {
		head = head[:512]
	}
	if strings.HasPrefix(string(head), "%PDF-") {
		return FormatPDF, nil
	}
	lower := strings.ToLower(strings.TrimSpace(string(head)))
	if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
		return FormatHTML, nil
	}

	if ct != "" && !strings.HasPrefix(ct, "application/octet-stream") {
		return "", ErrUnsupportedType
	}
	if looksBinary(head) {
		return "", ErrUnsupportedType
	}
	return FormatText, nil
}

func looksBinary(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return true
		}
	}
	return false
}
