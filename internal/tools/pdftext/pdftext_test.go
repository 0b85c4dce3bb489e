package pdftext

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfmill/pdfmill/internal/config"
	"github.com/pdfmill/pdfmill/internal/pdfsource"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned bytes for any URL, or an error
type fakeFetcher struct {
	data []byte
	err  error
}

func (f *fakeFetcher) FetchPDF(_ context.Context, _ *logrus.Logger, _ string) ([]byte, string, error) {
	return f.data, "application/pdf", f.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestTool wires an ExtractTool with a fake document and no real network
func newTestTool(doc *fakeDoc, fetcher pdfsource.Fetcher) *ExtractTool {
	if fetcher == nil {
		fetcher = &fakeFetcher{data: []byte("%PDF fetched")}
	}
	return &ExtractTool{
		open:     openerFor(doc),
		resolver: pdfsource.NewResolver(config.Default(), fetcher),
	}
}

func execute(t *testing.T, tool *ExtractTool, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := tool.Execute(context.Background(), testLogger(), &sync.Map{}, args)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func textOf(t *testing.T, part mcp.Content) string {
	t.Helper()
	tc, ok := part.(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", part)
	return tc.Text
}

func TestExtractTool_Definition(t *testing.T) {
	tool := &ExtractTool{}
	def := tool.Definition()

	assert.Equal(t, "pdf_extract_text", def.Name)
	assert.NotEmpty(t, def.Description)
	assert.Contains(t, def.InputSchema.Required, "files")
	assert.Contains(t, def.InputSchema.Properties, "files")
}

func TestExtractTool_Execute_NoFiles(t *testing.T) {
	tool := newTestTool(&fakeDoc{}, nil)

	for name, args := range map[string]map[string]any{
		"missing":    {},
		"empty":      {"files": []any{}},
		"not a list": {"files": "just-a-string"},
		"nil value":  {"files": nil},
	} {
		t.Run(name, func(t *testing.T) {
			result := execute(t, tool, args)
			require.Len(t, result.Content, 1)
			assert.Contains(t, textOf(t, result.Content[0]), "No files provided")
		})
	}
}

func TestExtractTool_Execute_Blob(t *testing.T) {
	doc := &fakeDoc{pages: []string{"alpha", "beta"}}
	tool := newTestTool(doc, nil)

	result := execute(t, tool, map[string]any{
		"files": []any{
			map[string]any{
				"blob":     base64.StdEncoding.EncodeToString([]byte("%PDF-1.4")),
				"filename": "notes.pdf",
			},
		},
	})

	// One file yields three parts: text, JSON mapping, embedded resource
	require.Len(t, result.Content, 3)

	expected := "alpha" + PageBreak + "beta"
	assert.Equal(t, expected, textOf(t, result.Content[0]))

	var mapping map[string][]PageRecord
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result.Content[1])), &mapping))
	records, ok := mapping["notes.pdf"]
	require.True(t, ok, "JSON must be keyed by the display filename")
	require.Len(t, records, 2)
	assert.Equal(t, "alpha", records[0].Text)
	assert.Equal(t, 1, records[0].Metadata.Page)
	assert.Equal(t, "notes.pdf", records[0].Metadata.FileName)
	assert.Equal(t, 2, records[1].Metadata.Page)

	embedded, ok := result.Content[2].(mcp.EmbeddedResource)
	require.True(t, ok, "third part must be an embedded resource, got %T", result.Content[2])
	blob, ok := embedded.Resource.(mcp.BlobResourceContents)
	require.True(t, ok)
	assert.Equal(t, "extracted://notes.pdf", blob.URI)
	assert.Equal(t, "text/plain", blob.MIMEType)
	decoded, err := base64.StdEncoding.DecodeString(blob.Blob)
	require.NoError(t, err)
	assert.Equal(t, expected, string(decoded))
}

func TestExtractTool_Execute_URLFilenameInference(t *testing.T) {
	doc := &fakeDoc{pages: []string{"remote text"}}
	tool := newTestTool(doc, &fakeFetcher{data: []byte("%PDF")})

	result := execute(t, tool, map[string]any{
		"files": []any{
			map[string]any{"url": "https://example.com/reports/q3.pdf?sig=abc"},
		},
	})

	require.Len(t, result.Content, 3)
	var mapping map[string][]PageRecord
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result.Content[1])), &mapping))
	assert.Contains(t, mapping, "q3.pdf", "filename must come from the URL leaf with the query stripped")
}

func TestExtractTool_Execute_NonObjectItem(t *testing.T) {
	tool := newTestTool(&fakeDoc{pages: []string{"x"}}, nil)

	result := execute(t, tool, map[string]any{
		"files": []any{"just-a-string"},
	})

	// A malformed item yields two error parts and no embedded resource
	require.Len(t, result.Content, 2)
	assert.Contains(t, textOf(t, result.Content[0]), "Error processing file")

	var mapping map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result.Content[1])), &mapping))
	require.Contains(t, mapping, "unknown.pdf")
	assert.NotEmpty(t, mapping["unknown.pdf"]["error"])
}

func TestExtractTool_Execute_PerFileErrorIsolation(t *testing.T) {
	doc := &fakeDoc{pages: []string{"good content"}}
	tool := newTestTool(doc, &fakeFetcher{err: fmt.Errorf("HTTP error 404: Not Found")})

	result := execute(t, tool, map[string]any{
		"files": []any{
			map[string]any{"url": "https://example.com/gone.pdf"},
			map[string]any{
				"blob":     base64.StdEncoding.EncodeToString([]byte("%PDF")),
				"filename": "survivor.pdf",
			},
		},
	})

	// First file fails (2 error parts), second succeeds (3 parts)
	require.Len(t, result.Content, 5)

	assert.Contains(t, textOf(t, result.Content[0]), "Error processing file")
	var errMapping map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result.Content[1])), &errMapping))
	require.Contains(t, errMapping, "gone.pdf")
	assert.Contains(t, errMapping["gone.pdf"]["error"], "404")

	assert.Equal(t, "good content", textOf(t, result.Content[2]))
	var okMapping map[string][]PageRecord
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result.Content[3])), &okMapping))
	assert.Contains(t, okMapping, "survivor.pdf")
}

func TestExtractTool_Execute_OpenFailure(t *testing.T) {
	doc := &fakeDoc{openErr: fmt.Errorf("not a PDF document")}
	tool := newTestTool(doc, nil)

	result := execute(t, tool, map[string]any{
		"files": []any{
			map[string]any{
				"blob":     base64.StdEncoding.EncodeToString([]byte("not pdf bytes")),
				"filename": "corrupt.pdf",
			},
		},
	})

	require.Len(t, result.Content, 2)
	assert.Contains(t, textOf(t, result.Content[0]), "failed to open PDF")

	var mapping map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result.Content[1])), &mapping))
	assert.Contains(t, mapping, "corrupt.pdf")
}

func TestExtractTool_ProvideExtendedInfo(t *testing.T) {
	tool := &ExtractTool{}
	info := tool.ProvideExtendedInfo()

	require.NotNil(t, info)
	assert.NotEmpty(t, info.Examples)
	assert.NotEmpty(t, info.Troubleshooting)
	assert.NotEmpty(t, info.WhenToUse)
}
