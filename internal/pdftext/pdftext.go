// Package pdftext turns invoice PDFs into the plain text the extractors
// consume.
package pdftext

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Extract returns the text layer of every page joined with blank lines.
// Non-breaking spaces are collapsed to regular spaces so the extractor
// regexes see uniform whitespace.
func Extract(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i+1, err)
		}
		pages = append(pages, strings.ReplaceAll(text, "\u00a0", " "))
	}
	return strings.TrimSpace(strings.Join(pages, "\n\n")), nil
}
