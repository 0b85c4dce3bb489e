// Package pdfinspect implements the pdf_info and pdf_validate tools:
// lightweight pdfcpu-backed inspection of a single PDF supplied as embedded
// bytes or a remote URL, without extracting any text.
package pdfinspect

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfmill/pdfmill/internal/config"
	"github.com/pdfmill/pdfmill/internal/pdfsource"
	"github.com/sirupsen/logrus"
)

// sharedResolver is used by both inspection tools
var (
	sharedResolver *pdfsource.Resolver
	resolverOnce   sync.Once
)

// getResolver returns the package-wide resolver, building it lazily
func getResolver() *pdfsource.Resolver {
	resolverOnce.Do(func() {
		if sharedResolver == nil {
			sharedResolver = pdfsource.NewResolver(config.Get(), nil)
		}
	})
	return sharedResolver
}

// itemOptions are the shared tool parameters for a single PDF source
func itemOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("blob",
			mcp.Description("Base64-encoded PDF bytes (takes precedence over URLs)"),
		),
		mcp.WithString("url",
			mcp.Description("Absolute http(s) URL to a PDF"),
		),
		mcp.WithString("remote_url",
			mcp.Description("Alternative URL field, used when 'url' is absent"),
		),
		mcp.WithString("filename",
			mcp.Description("Display name for the output (optional)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	}
}

// resolveArgs parses the single-item arguments and resolves the PDF bytes
func resolveArgs(ctx context.Context, logger *logrus.Logger, args map[string]any) (*pdfsource.FileItem, []byte, error) {
	item, ok := pdfsource.Parse(args)
	if !ok {
		return nil, nil, fmt.Errorf("invalid arguments")
	}
	if item.Blob == "" && item.SourceURL() == "" {
		return nil, nil, fmt.Errorf("missing PDF source: provide 'blob' or 'url'/'remote_url'")
	}

	data, err := getResolver().Resolve(ctx, logger, item)
	if err != nil {
		return nil, nil, err
	}
	return item, data, nil
}

// jsonResult renders a response value as an indented JSON tool result
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
