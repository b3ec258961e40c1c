package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
	rscpdf "rsc.io/pdf"
)

// readPDF extracts plain text page by page. The ledongthuc reader handles
// most encodings; rsc.io/pdf is tried when it fails or finds nothing.
func readPDF(data []byte) (string, error) {
	text, err := readPDFPrimary(data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	alt, altErr := readPDFSecondary(data)
	if altErr != nil {
		if err == nil {
			err = altErr
		}
		return "", fmt.Errorf("failed to read PDF: %w", err)
	}
	return alt, nil
}

func readPDFPrimary(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		s, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		b.WriteString(s)
		b.WriteString("\n")
	}
	if b.Len() > 0 {
		return b.String(), nil
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	all, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}
	return string(all), nil
}

func readPDFSecondary(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	r, err := rscpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		var prevY float64
		for j, t := range page.Content().Text {
			if j > 0 && t.Y != prevY {
				b.WriteString("\n")
			}
			b.WriteString(t.S)
			prevY = t.Y
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
