package pdftext

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PageBreak is the fixed separator between page texts in the joined output
const PageBreak = "\n\n---PAGE BREAK---\n\n"

// PageRecord is the per-page extraction result
type PageRecord struct {
	Text     string       `json:"text"`
	Metadata PageMetadata `json:"metadata"`
}

// PageMetadata labels a page record with its 1-based page number and source file
type PageMetadata struct {
	Page     int    `json:"page"`
	FileName string `json:"file_name"`
}

// document is the subset of the MuPDF document API the extractor needs.
// *fitz.Document satisfies it; tests substitute a fake.
type document interface {
	NumPage() int
	Text(page int) (string, error)
	Close() error
}

// opener opens PDF bytes as a pageable document
type opener func(data []byte) (document, error)

// fitzOpen is the production opener, backed by go-fitz (MuPDF)
func fitzOpen(data []byte) (document, error) {
	return fitz.NewFromMemory(data)
}

// extractPages pulls the text of every page, returning both the per-page
// records and the joined text. A zero-page document yields empty results,
// not an error. A failing page aborts the whole file: partial text is worse
// than a clear error for downstream consumers.
func extractPages(open opener, data []byte, filename string) ([]PageRecord, string, error) {
	doc, err := open(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() {
		_ = doc.Close()
	}()

	numPages := doc.NumPage()
	records := make([]PageRecord, 0, numPages)
	texts := make([]string, 0, numPages)

	for i := 0; i < numPages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			return nil, "", fmt.Errorf("failed to extract text from page %d: %w", i+1, err)
		}
		records = append(records, PageRecord{
			Text:     pageText,
			Metadata: PageMetadata{Page: i + 1, FileName: filename},
		})
		texts = append(texts, pageText)
	}

	return records, strings.Join(texts, PageBreak), nil
}
