package model

import (
	"path/filepath"
	"strings"
)

// Format is the document type inferred from an uploaded file name.
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatText    Format = "txt"
	FormatUnknown Format = ""
)

// DetectFormat maps a filename suffix to a Format. Unrecognized suffixes yield FormatUnknown.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".txt":
		return FormatText
	default:
		return FormatUnknown
	}
}
