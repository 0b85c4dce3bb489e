// Package pdftext implements the pdf_extract_text tool: resolve each input
// item to PDF bytes (embedded blob or a single timed GET), extract per-page
// text with MuPDF, and emit three parallel representations per file.
package pdftext

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfmill/pdfmill/internal/config"
	"github.com/pdfmill/pdfmill/internal/pdfsource"
	"github.com/pdfmill/pdfmill/internal/registry"
	"github.com/pdfmill/pdfmill/internal/tools"
	"github.com/sirupsen/logrus"
)

// ExtractTool implements PDF text extraction over go-fitz
type ExtractTool struct {
	open     opener
	resolver *pdfsource.Resolver
	once     sync.Once
}

// init registers the tool
func init() {
	registry.Register(&ExtractTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ExtractTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"pdf_extract_text",
		mcp.WithDescription(`Extract text from PDF files. Accepts an array of file objects, each carrying either base64 'blob' bytes or an absolute 'url'/'remote_url' (signed links included). For every file the tool returns the extracted text, a per-page JSON mapping, and the text as an embedded plain-text resource. Files are processed independently: one bad file never aborts the rest.`),
		mcp.WithArray("files",
			mcp.Required(),
			mcp.Description("PDF file objects to process"),
			mcp.Items(fileItemSchema()),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true), // may fetch remote URLs
	)
}

// fileItemSchema describes one entry of the files array
func fileItemSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"blob": map[string]any{
				"type":        "string",
				"description": "Base64-encoded PDF bytes (takes precedence over URLs)",
			},
			"url": map[string]any{
				"type":        "string",
				"description": "Absolute http(s) URL to a PDF",
			},
			"remote_url": map[string]any{
				"type":        "string",
				"description": "Alternative URL field, used when 'url' is absent",
			},
			"filename": map[string]any{
				"type":        "string",
				"description": "Display name for the output (optional)",
			},
			"mime_type": map[string]any{
				"type":        "string",
				"description": "Reported MIME type (optional, informational)",
			},
			"size": map[string]any{
				"type":        "number",
				"description": "Reported size in bytes (optional, informational)",
			},
		},
	}
}

// Execute processes each file item independently and accumulates result parts
func (t *ExtractTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	items, ok := args["files"].([]any)
	if !ok || len(items) == 0 {
		return mcp.NewToolResultText("No files provided. Please supply an array of PDF file objects."), nil
	}

	var parts []mcp.Content

	for _, raw := range items {
		item, ok := pdfsource.Parse(raw)
		if !ok {
			logger.WithField("item", fmt.Sprintf("%T", raw)).Error("File item is not an object")
			parts = append(parts, errorParts("unknown.pdf", fmt.Errorf("file item must be an object"))...)
			continue
		}

		filename := item.DisplayName()
		logger.WithField("filename", filename).Info("Processing PDF")

		records, joined, err := t.processItem(ctx, logger, item, filename)
		if err != nil {
			logger.WithError(err).WithField("filename", filename).Error("Error processing file")
			parts = append(parts, errorParts(filename, err)...)
			continue
		}

		logger.WithFields(logrus.Fields{
			"filename": filename,
			"pages":    len(records),
			"text_len": len(joined),
		}).Debug("PDF text extraction completed")

		// Three representations per file: human-readable text, structured
		// JSON, and the raw text as an embedded blob resource.
		parts = append(parts,
			mcp.NewTextContent(joined),
			jsonPart(map[string]any{filename: records}),
			mcp.NewEmbeddedResource(mcp.BlobResourceContents{
				URI:      "extracted://" + filename,
				MIMEType: "text/plain",
				Blob:     base64.StdEncoding.EncodeToString([]byte(joined)),
			}),
		)
	}

	return &mcp.CallToolResult{Content: parts}, nil
}

// processItem resolves an item to PDF bytes and extracts its pages
func (t *ExtractTool) processItem(ctx context.Context, logger *logrus.Logger, item *pdfsource.FileItem, filename string) ([]PageRecord, string, error) {
	data, err := t.sourceResolver().Resolve(ctx, logger, item)
	if err != nil {
		return nil, "", err
	}

	return extractPages(t.opener(), data, filename)
}

// opener returns the configured document opener, defaulting to go-fitz
func (t *ExtractTool) opener() opener {
	if t.open != nil {
		return t.open
	}
	return fitzOpen
}

// sourceResolver returns the configured resolver, building the default lazily
func (t *ExtractTool) sourceResolver() *pdfsource.Resolver {
	t.once.Do(func() {
		if t.resolver == nil {
			t.resolver = pdfsource.NewResolver(config.Get(), nil)
		}
	})
	return t.resolver
}

// errorParts builds the text and JSON error parts for a failed item
func errorParts(filename string, err error) []mcp.Content {
	return []mcp.Content{
		mcp.NewTextContent(fmt.Sprintf("Error processing file: %v", err)),
		jsonPart(map[string]any{filename: map[string]string{"error": err.Error()}}),
	}
}

// jsonPart renders a value as an indented JSON text part
func jsonPart(v any) mcp.Content {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewTextContent(fmt.Sprintf(`{"error": %q}`, "failed to marshal JSON: "+err.Error()))
	}
	return mcp.NewTextContent(string(data))
}

// ProvideExtendedInfo provides detailed usage information for the tool
func (t *ExtractTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Extract text from a remote PDF",
				Arguments: map[string]any{
					"files": []any{
						map[string]any{"url": "https://example.com/reports/q3.pdf"},
					},
				},
				ExpectedResult: "Returns the extracted text, a JSON mapping of q3.pdf to its per-page records, and the text as an embedded plain-text resource",
			},
			{
				Description: "Extract text from embedded bytes with a display name",
				Arguments: map[string]any{
					"files": []any{
						map[string]any{"blob": "<base64 PDF bytes>", "filename": "contract.pdf"},
					},
				},
				ExpectedResult: "Processes the embedded document without any network access",
			},
			{
				Description: "Process several files in one call",
				Arguments: map[string]any{
					"files": []any{
						map[string]any{"url": "https://example.com/a.pdf"},
						map[string]any{"remote_url": "https://example.com/signed/b.pdf?X-Amz-Signature=abc"},
					},
				},
				ExpectedResult: "Each file yields its own result parts; a failure on one file is reported inline and the other files are still processed",
			},
		},
		CommonPatterns: []string{
			"Pass 'filename' alongside 'url' when the URL leaf is unhelpful (signed links, opaque IDs)",
			"Prefer 'blob' over URLs when the host already holds the bytes: it avoids a network round-trip",
			"Pages are joined with the '---PAGE BREAK---' separator; split on it to recover per-page text from the plain output",
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Error processing file: no usable PDF source found",
				Solution: "Each file object needs either a base64 'blob' or an absolute 'url'/'remote_url'. Relative URLs and bare filenames are not fetchable.",
			},
			{
				Problem:  "Extracted text is empty for a scanned document",
				Solution: "Scanned PDFs contain images, not text. This tool does not OCR; run the document through an OCR pipeline first.",
			},
			{
				Problem:  "PDF size exceeds maximum allowed size",
				Solution: "The default limit is 200MB. Raise it with the PDF_MAX_FILE_SIZE environment variable (bytes), or split the document.",
			},
		},
		ParameterDetails: map[string]string{
			"files": "Array of file objects. Each needs 'blob' (base64 PDF bytes) or 'url'/'remote_url' (absolute http(s) link). Optional 'filename', 'mime_type' and 'size' improve output labelling only.",
		},
		WhenToUse:    "Use to pull the text content out of text-based PDFs supplied as bytes or links, including signed download links.",
		WhenNotToUse: "Not for scanned PDFs needing OCR, password-protected documents, or when you need layout, tables or images preserved.",
	}
}
