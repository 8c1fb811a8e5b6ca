package parser

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"

	"document-qa/internal/apperrors"
	"document-qa/internal/models"
)

// Extractor turns raw file bytes into plain text
type Extractor interface {
	ExtractText(data []byte, format string) (string, error)
}

// ExtractorFunc adapts a function to Extractor
type ExtractorFunc func(data []byte, format string) (string, error)

func (f ExtractorFunc) ExtractText(data []byte, format string) (string, error) {
	return f(data, format)
}

// Default is the extractor backed by the pdf and docx readers
var Default Extractor = ExtractorFunc(ExtractText)

var (
	docxParagraphRe = regexp.MustCompile(`(?s)<w:p[ >].*?</w:p>`)
	docxTextRe      = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
)

// ResolveFormat picks the format tag from an explicit value or the filename extension
func ResolveFormat(filename, format string) (string, error) {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "" {
		f = strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	}
	for _, supported := range models.SupportedFormats {
		if f == supported {
			return f, nil
		}
	}
	return "", apperrors.UnsupportedFormat(f)
}

// ExtractText extracts the plain text of a pdf or docx file held in memory
func ExtractText(data []byte, format string) (string, error) {
	switch strings.ToLower(format) {
	case models.FormatPDF:
		return parsePDF(data)
	case models.FormatDOCX:
		return parseDOCX(data)
	default:
		return "", apperrors.UnsupportedFormat(format)
	}
}

func parsePDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed cross reference tables
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = apperrors.Wrap(apperrors.KindExtraction, "failed to read pdf", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindExtraction, "failed to open pdf", err)
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", apperrors.Wrap(apperrors.KindExtraction, fmt.Sprintf("failed to read pdf page %d", i), err)
		}
		if pageText != "" {
			sb.WriteString(pageText)
			sb.WriteString("\n")
		}
	}
	log.Debug().Int("pages", numPages).Int("chars", sb.Len()).Msg("Extracted pdf text")
	return sb.String(), nil
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindExtraction, "failed to open docx", err)
	}
	defer r.Close()

	text := extractTextFromDocumentXML(r.Editable().GetContent())
	log.Debug().Int("chars", len(text)).Msg("Extracted docx text")
	return text, nil
}

// extractTextFromDocumentXML returns one line per <w:p> paragraph of a word/document.xml body
func extractTextFromDocumentXML(xmlContent string) string {
	paragraphs := docxParagraphRe.FindAllString(xmlContent, -1)
	lines := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		var line strings.Builder
		for _, m := range docxTextRe.FindAllStringSubmatch(p, -1) {
			line.WriteString(html.UnescapeString(m[1]))
		}
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
