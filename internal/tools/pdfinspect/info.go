package pdfinspect

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfmill/pdfmill/internal/registry"
	"github.com/sirupsen/logrus"
)

// InfoTool reports page count and document metadata for a PDF
type InfoTool struct{}

// InfoResponse is the pdf_info result payload
type InfoResponse struct {
	FileName   string            `json:"file_name"`
	PageCount  int               `json:"page_count"`
	SizeBytes  int               `json:"size_bytes"`
	Format     string            `json:"format,omitempty"`
	Encryption string            `json:"encryption,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func init() {
	registry.Register(&InfoTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *InfoTool) Definition() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Report page count, PDF version and document metadata (title, author, dates) for a single PDF supplied as base64 'blob' bytes or an absolute 'url'/'remote_url'. Useful before extraction to size up a document."),
	}, itemOptions()...)
	return mcp.NewTool("pdf_info", opts...)
}

// Execute resolves the PDF and inspects it without extracting text
func (t *InfoTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	item, data, err := resolveArgs(ctx, logger, args)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}

	filename := item.DisplayName()
	logger.WithField("filename", filename).Debug("Inspecting PDF")

	// Page count via pdfcpu; it handles damaged cross-reference tables
	// more gracefully than a full document open.
	pageCount, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("failed to read page count: %w", err)
	}

	response := &InfoResponse{
		FileName:  filename,
		PageCount: pageCount,
		SizeBytes: len(data),
	}

	// Document metadata via MuPDF. Failure here is not fatal: the page
	// count alone is still useful.
	if doc, err := fitz.NewFromMemory(data); err == nil {
		meta := doc.Metadata()
		response.Format = meta["format"]
		response.Encryption = meta["encryption"]
		response.Metadata = documentMetadata(meta)
		_ = doc.Close()
	} else {
		logger.WithError(err).WithField("filename", filename).Debug("Failed to read document metadata")
	}

	logger.WithFields(logrus.Fields{
		"filename":   filename,
		"page_count": pageCount,
	}).Debug("PDF inspection completed")

	return jsonResult(response)
}

// documentMetadata filters the MuPDF metadata map down to the document
// information fields, dropping empty values.
func documentMetadata(meta map[string]string) map[string]string {
	keys := []string{"title", "author", "subject", "keywords", "creator", "producer", "creationDate", "modDate"}
	out := make(map[string]string)
	for _, key := range keys {
		if v := meta[key]; v != "" {
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
