// Package toolhelp implements the tool_help tool, which surfaces extended
// usage information (examples, troubleshooting, parameter details) for the
// pdfmill tools that provide it.
package toolhelp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfmill/pdfmill/internal/registry"
	"github.com/pdfmill/pdfmill/internal/tools"
	"github.com/sirupsen/logrus"
)

// ToolHelpTool serves extended help for registered tools
type ToolHelpTool struct{}

// HelpResponse is the tool_help result payload
type HelpResponse struct {
	ToolName     string              `json:"tool_name"`
	BasicInfo    map[string]any      `json:"basic_info"`
	ExtendedInfo *tools.ExtendedHelp `json:"extended_info,omitempty"`
}

func init() {
	registry.Register(&ToolHelpTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *ToolHelpTool) Definition() mcp.Tool {
	providers := registry.GetToolNamesWithExtendedHelp()

	description := "Get detailed usage examples and troubleshooting for pdfmill tools when encountering unexpected errors."
	if len(providers) == 0 {
		description = "No tools currently provide extended help information."
	}

	return mcp.NewTool(
		"tool_help",
		mcp.WithDescription(description),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Name of the tool to get help for"),
			mcp.Enum(providers...),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute looks up the named tool and returns its extended help
func (t *ToolHelpTool) Execute(ctx context.Context, logger *logrus.Logger, cache *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	toolName, ok := args["tool_name"].(string)
	if !ok || toolName == "" {
		return nil, fmt.Errorf("missing or invalid required parameter: tool_name")
	}

	tool, exists := registry.GetTool(toolName)
	if !exists {
		return nil, fmt.Errorf("tool %q not found or disabled. Tools with extended help: %s",
			toolName, strings.Join(registry.GetToolNamesWithExtendedHelp(), ", "))
	}

	provider, ok := tool.(tools.ExtendedHelpProvider)
	if !ok {
		return nil, fmt.Errorf("tool %q does not provide extended help. Tools with extended help: %s",
			toolName, strings.Join(registry.GetToolNamesWithExtendedHelp(), ", "))
	}

	definition := tool.Definition()
	response := &HelpResponse{
		ToolName: toolName,
		BasicInfo: map[string]any{
			"name":        definition.Name,
			"description": definition.Description,
		},
		ExtendedInfo: provider.ProvideExtendedInfo(),
	}

	data, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
