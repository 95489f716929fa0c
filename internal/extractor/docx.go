package extractor

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"tamil-assistant/internal/domain"
)

var errNoDocumentXML = errors.New("word/document.xml missing")

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func readDOCX(path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", domain.E(domain.KindIO, "read docx", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", domain.E(domain.KindIO, "read docx", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", domain.E(domain.KindIO, "read docx", err)
		}
		return parseDocumentXML(content)
	}
	return "", domain.E(domain.KindIO, "read docx", errNoDocumentXML)
}

// parseDocumentXML joins paragraph text with newlines.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", domain.E(domain.KindIO, "parse docx", err)
	}
	paras := make([]string, len(doc.Body.Paragraphs))
	for i, para := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range para.Runs {
			for _, t := range r.Text {
				b.WriteString(t.Content)
			}
		}
		paras[i] = b.String()
	}
	return strings.Join(paras, "\n"), nil
}
