package service

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/AnTengye/brdlayout/model"
	"github.com/gen2brain/go-fitz"
)

// ErrInvalidUTF8 is returned when a plain-text document is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("invalid UTF-8 text")

// Extractor turns an uploaded requirement document into one text string.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads r once and returns the document text in reading order.
// The format comes from the filename suffix; unsupported suffixes yield "" and no error.
func (e *Extractor) Extract(r io.Reader, filename string) (string, error) {
	format := model.DetectFormat(filename)
	if format == model.FormatUnknown {
		return "", nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	switch format {
	case model.FormatPDF:
		return extractPDF(data)
	case model.FormatDOCX:
		return extractDOCX(data)
	default:
		return decodeUTF8(data)
	}
}

func extractPDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", n+1, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

func extractDOCX(data []byte) (string, error) {
	paragraphs, err := readDocxParagraphs(data)
	if err != nil {
		return "", fmt.Errorf("failed to read DOCX: %w", err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

func decodeUTF8(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	offset := 0
	for offset < len(data) {
		r, size := utf8.DecodeRune(data[offset:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		offset += size
	}
	return "", fmt.Errorf("%w at byte offset %d", ErrInvalidUTF8, offset)
}
