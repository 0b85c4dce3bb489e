// Package main generates Markdown reference documentation from the
// registered MCP tool definitions. Run from the repository root:
//
//	go run scripts/generate-api-docs.go -output docs/tools.md
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pdfmill/pdfmill/internal/registry"
	"github.com/pdfmill/pdfmill/internal/tools"

	// Import all tools to register them
	_ "github.com/pdfmill/pdfmill/internal/imports"
)

type parameterInfo struct {
	Name        string
	Type        string
	Required    bool
	Description string
	EnumValues  []string
}

func main() {
	var (
		outputPath = flag.String("output", "docs/tools.md", "Output file ('-' for stdout)")
		toolFilter = flag.String("tool", "", "Generate docs for a single tool only")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry.Init(logger)

	var out *os.File
	if *outputPath == "-" {
		out = os.Stdout
	} else {
		var err error
		out, err = os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", *outputPath, err)
			os.Exit(1)
		}
		defer func() { _ = out.Close() }()
	}

	names := registry.GetToolNames()
	if *toolFilter != "" {
		names = []string{*toolFilter}
	}

	fmt.Fprintln(out, "# pdfmill Tool Reference")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Generated from the registered tool definitions. Do not edit by hand.")

	count := 0
	for _, name := range names {
		tool, ok := registry.GetTool(name)
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown tool: %s\n", name)
			os.Exit(1)
		}
		writeToolSection(out, tool)
		count++
	}

	if *outputPath != "-" {
		fmt.Printf("Generated documentation for %d tools in %s\n", count, *outputPath)
	}
}

func writeToolSection(out *os.File, tool tools.Tool) {
	def := tool.Definition()

	fmt.Fprintf(out, "\n## %s\n\n", def.Name)
	fmt.Fprintf(out, "%s\n", def.Description)

	params := extractParameters(def.InputSchema.Properties, def.InputSchema.Required)
	if len(params) > 0 {
		fmt.Fprintln(out, "\n### Parameters")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "| Name | Type | Required | Description |")
		fmt.Fprintln(out, "|------|------|----------|-------------|")
		for _, p := range params {
			desc := p.Description
			if len(p.EnumValues) > 0 {
				desc += " One of: `" + strings.Join(p.EnumValues, "`, `") + "`."
			}
			fmt.Fprintf(out, "| `%s` | %s | %s | %s |\n", p.Name, p.Type, yesNo(p.Required), desc)
		}
	}

	provider, ok := tool.(tools.ExtendedHelpProvider)
	if !ok {
		return
	}
	help := provider.ProvideExtendedInfo()
	if help == nil {
		return
	}

	if help.WhenToUse != "" {
		fmt.Fprintf(out, "\n**When to use:** %s\n", help.WhenToUse)
	}
	if help.WhenNotToUse != "" {
		fmt.Fprintf(out, "\n**When not to use:** %s\n", help.WhenNotToUse)
	}

	if len(help.Examples) > 0 {
		fmt.Fprintln(out, "\n### Examples")
		for _, example := range help.Examples {
			fmt.Fprintf(out, "\n%s:\n\n", example.Description)
			args, err := json.MarshalIndent(example.Arguments, "", "  ")
			if err != nil {
				continue
			}
			fmt.Fprintf(out, "```json\n%s\n```\n", string(args))
			if example.ExpectedResult != "" {
				fmt.Fprintf(out, "\n%s\n", example.ExpectedResult)
			}
		}
	}

	if len(help.Troubleshooting) > 0 {
		fmt.Fprintln(out, "\n### Troubleshooting")
		fmt.Fprintln(out)
		for _, tip := range help.Troubleshooting {
			fmt.Fprintf(out, "- **%s** %s\n", tip.Problem, tip.Solution)
		}
	}
}

// extractParameters flattens the input schema properties into a sorted list
func extractParameters(properties map[string]any, required []string) []parameterInfo {
	requiredSet := make(map[string]bool, len(required))
	for _, name := range required {
		requiredSet[name] = true
	}

	var params []parameterInfo
	for name, raw := range properties {
		prop, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		p := parameterInfo{
			Name:     name,
			Type:     "string",
			Required: requiredSet[name],
		}
		if t, ok := prop["type"].(string); ok {
			p.Type = t
		}
		if d, ok := prop["description"].(string); ok {
			p.Description = d
		}
		if enum, ok := prop["enum"].([]string); ok {
			p.EnumValues = enum
		} else if enumAny, ok := prop["enum"].([]any); ok {
			for _, v := range enumAny {
				if s, ok := v.(string); ok {
					p.EnumValues = append(p.EnumValues, s)
				}
			}
		}

		params = append(params, p)
	}

	sort.Slice(params, func(i, j int) bool {
		// Required parameters first, then alphabetical
		if params[i].Required != params[j].Required {
			return params[i].Required
		}
		return params[i].Name < params[j].Name
	})
	return params
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
