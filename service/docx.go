package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const wordprocessingNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var errNoDocumentPart = errors.New("missing word/document.xml")

// readDocxParagraphs returns the text of every top-level body paragraph in document order.
// Empty paragraphs are kept. Table cell paragraphs and text boxes are not body paragraphs.
func readDocxParagraphs(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return nil, errNoDocumentPart
	}

	rc, err := part.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document part: %w", err)
	}
	defer rc.Close()

	return parseBodyParagraphs(rc)
}

func parseBodyParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		stack      []xml.Name
		paragraphs []string
		buf        strings.Builder
		paraDepth  int // stack depth of the open body paragraph, 0 when none
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing document part: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name)
			if paraDepth == 0 && isWord(t.Name, "p") && len(stack) >= 2 && isWord(stack[len(stack)-2], "body") {
				paraDepth = len(stack)
				buf.Reset()
				continue
			}
			if paraDepth > 0 && inRun(stack, paraDepth) {
				switch t.Name.Local {
				case "tab":
					buf.WriteByte('\t')
				case "br":
					if breakType(t) == "" || breakType(t) == "textWrapping" {
						buf.WriteByte('\n')
					}
				case "cr":
					buf.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if paraDepth > 0 && len(stack) == paraDepth {
				paragraphs = append(paragraphs, buf.String())
				paraDepth = 0
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if paraDepth > 0 && inRun(stack, paraDepth) && isWord(stack[len(stack)-1], "t") {
				buf.Write(t)
			}
		}
	}

	return paragraphs, nil
}

// inRun reports whether the innermost element is a direct child of a run that belongs
// to the open paragraph, either directly or through a hyperlink.
func inRun(stack []xml.Name, paraDepth int) bool {
	rel := stack[paraDepth:]
	switch len(rel) {
	case 2:
		return isWord(rel[0], "r")
	case 3:
		return isWord(rel[0], "hyperlink") && isWord(rel[1], "r")
	}
	return false
}

func isWord(n xml.Name, local string) bool {
	return n.Space == wordprocessingNS && n.Local == local
}

func breakType(el xml.StartElement) string {
	for _, a := range el.Attr {
		if a.Name.Local == "type" {
			return a.Value
		}
	}
	return ""
}
