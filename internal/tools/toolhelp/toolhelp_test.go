package toolhelp

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/pdfmill/pdfmill/internal/registry"
	"github.com/pdfmill/pdfmill/internal/tools"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helpfulTool is a registered fixture with extended help
type helpfulTool struct{}

func (h *helpfulTool) Definition() mcp.Tool {
	return mcp.NewTool("helpful_fixture", mcp.WithDescription("a fixture that provides help"))
}

func (h *helpfulTool) Execute(_ context.Context, _ *logrus.Logger, _ *sync.Map, _ map[string]any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func (h *helpfulTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		WhenToUse: "in tests",
		Troubleshooting: []tools.TroubleshootingTip{
			{Problem: "it broke", Solution: "fix it"},
		},
	}
}

// plainTool has no extended help
type plainTool struct{}

func (p *plainTool) Definition() mcp.Tool {
	return mcp.NewTool("plain_fixture", mcp.WithDescription("no help here"))
}

func (p *plainTool) Execute(_ context.Context, _ *logrus.Logger, _ *sync.Map, _ map[string]any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("ok"), nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestToolHelp_Execute(t *testing.T) {
	registry.Init(testLogger())
	registry.Register(&helpfulTool{})
	registry.Register(&plainTool{})

	helpTool := &ToolHelpTool{}

	t.Run("known tool with help", func(t *testing.T) {
		result, err := helpTool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]any{
			"tool_name": "helpful_fixture",
		})
		require.NoError(t, err)
		require.Len(t, result.Content, 1)

		tc, ok := result.Content[0].(mcp.TextContent)
		require.True(t, ok)

		var response HelpResponse
		require.NoError(t, json.Unmarshal([]byte(tc.Text), &response))
		assert.Equal(t, "helpful_fixture", response.ToolName)
		assert.Equal(t, "helpful_fixture", response.BasicInfo["name"])
		require.NotNil(t, response.ExtendedInfo)
		assert.Equal(t, "in tests", response.ExtendedInfo.WhenToUse)
		require.Len(t, response.ExtendedInfo.Troubleshooting, 1)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := helpTool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]any{
			"tool_name": "no_such_tool",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("tool without extended help", func(t *testing.T) {
		_, err := helpTool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]any{
			"tool_name": "plain_fixture",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not provide extended help")
	})

	t.Run("missing tool_name", func(t *testing.T) {
		_, err := helpTool.Execute(context.Background(), testLogger(), &sync.Map{}, map[string]any{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tool_name")
	})
}

func TestToolHelp_Definition(t *testing.T) {
	def := (&ToolHelpTool{}).Definition()
	assert.Equal(t, "tool_help", def.Name)
	assert.Contains(t, def.InputSchema.Required, "tool_name")
}
