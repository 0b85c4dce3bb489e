// Package cli provides a direct command-line interface to pdfmill tools,
// bypassing the MCP server entirely. Tools are invoked in-process via the
// registry, so no server or network round-trip is needed.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfmill/pdfmill/internal/registry"
	"github.com/sirupsen/logrus"
)

// OutputFormat controls how tool results are rendered
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
)

// Runner executes CLI commands against the tool registry
type Runner struct {
	logger *logrus.Logger
	cache  *sync.Map
	output OutputFormat
}

// NewRunner creates a Runner using the given logger, cache, and output format
func NewRunner(logger *logrus.Logger, cache *sync.Map, output OutputFormat) *Runner {
	return &Runner{logger: logger, cache: cache, output: output}
}

// ListTools prints all registered tools with their descriptions
func (r *Runner) ListTools() error {
	if r.output == OutputJSON {
		type entry struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		var out []entry
		for _, name := range registry.GetToolNames() {
			tool, _ := registry.GetTool(name)
			out = append(out, entry{Name: name, Description: firstLine(tool.Definition().Description)})
		}
		return writeJSON(out)
	}

	nameColour := color.New(color.FgCyan, color.Bold)
	for _, name := range registry.GetToolNames() {
		tool, _ := registry.GetTool(name)
		fmt.Fprintf(os.Stdout, "%s  %s\n", nameColour.Sprint(name), firstLine(tool.Definition().Description))
	}
	return nil
}

// RunTool executes a tool by name. Arguments are either a single JSON object
// string or --key=value flags; flag values are coerced using the tool's
// input schema.
func (r *Runner) RunTool(ctx context.Context, name string, args []string) error {
	resolved := resolveToolName(name)
	tool, ok := registry.GetTool(resolved)
	if !ok {
		return fmt.Errorf("unknown tool: %s (run 'pdfmill tools' to see available tools)", name)
	}

	def := tool.Definition()
	params, err := parseArgs(args, def)
	if err != nil {
		return fmt.Errorf("argument error: %w", err)
	}

	result, err := tool.Execute(ctx, r.logger, r.cache, params)
	if err != nil {
		return fmt.Errorf("tool error: %w", err)
	}

	return r.renderResult(result)
}

// resolveToolName maps kebab-case input to the snake_case registered name
func resolveToolName(name string) string {
	if _, ok := registry.GetTool(name); ok {
		return name
	}
	return strings.ReplaceAll(name, "-", "_")
}

// parseArgs converts CLI arguments into the args map a tool expects
func parseArgs(args []string, def mcp.Tool) (map[string]any, error) {
	params := make(map[string]any)
	types := schemaTypes(def)

	for _, arg := range args {
		// A single JSON object argument carries everything at once
		if strings.HasPrefix(arg, "{") {
			var obj map[string]any
			if err := json.Unmarshal([]byte(arg), &obj); err != nil {
				return nil, fmt.Errorf("invalid JSON argument: %w", err)
			}
			for k, v := range obj {
				if _, exists := params[k]; !exists {
					params[k] = v
				}
			}
			continue
		}

		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument: %s (use --key=value flags or pass a JSON object)", arg)
		}

		key, rawVal, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		key = strings.ReplaceAll(key, "-", "_")
		if !found {
			// Bare --flag is boolean shorthand
			params[key] = true
			continue
		}
		params[key] = coerceValue(rawVal, types[key])
	}

	return params, nil
}

// schemaTypes maps parameter names to their JSON Schema types
func schemaTypes(def mcp.Tool) map[string]string {
	types := make(map[string]string, len(def.InputSchema.Properties))
	for name, prop := range def.InputSchema.Properties {
		if pm, ok := prop.(map[string]any); ok {
			if t, ok := pm["type"].(string); ok {
				types[name] = t
			}
		}
	}
	return types
}

// coerceValue converts a raw flag value per its JSON Schema type
func coerceValue(raw, schemaType string) any {
	switch schemaType {
	case "number", "integer":
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return raw
	case "boolean":
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
		return raw
	case "array", "object":
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			return v
		}
		if schemaType == "array" {
			// Comma-separated fallback for simple string arrays
			parts := strings.Split(raw, ",")
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out
		}
		return raw
	default:
		return raw
	}
}

// renderResult formats a CallToolResult for terminal output
func (r *Runner) renderResult(result *mcp.CallToolResult) error {
	if result == nil {
		return nil
	}

	if r.output == OutputJSON {
		return writeJSON(result)
	}

	for _, content := range result.Content {
		switch c := content.(type) {
		case mcp.TextContent:
			fmt.Fprintln(os.Stdout, c.Text)
		default:
			// Non-text content (embedded resources) renders as JSON
			data, err := json.MarshalIndent(c, "", "  ")
			if err != nil {
				fmt.Fprintf(os.Stdout, "%+v\n", c)
			} else {
				fmt.Fprintln(os.Stdout, string(data))
			}
		}
	}

	if result.IsError {
		return fmt.Errorf("tool returned an error")
	}
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstLine(s string) string {
	if before, _, found := strings.Cut(s, "\n"); found {
		return before
	}
	return s
}
