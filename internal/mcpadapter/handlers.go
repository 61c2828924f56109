package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/povarna/generative-ai-agents/chart-agent/internal/chart"
)

// GenerateChartInput is the MCP tool input schema for chart generation.
type GenerateChartInput struct {
	Prompt string `json:"prompt" jsonschema:"natural-language description of the chart"`
}

// UpdateChartInput is the MCP tool input schema for chart updates.
type UpdateChartInput struct {
	CurrentConfig any    `json:"current_config" jsonschema:"chart configuration object to modify"`
	Instruction   string `json:"instruction" jsonschema:"how the chart should change"`
}

// ChartOutput mirrors the HTTP response body. The configuration is decoded
// so the tool's structured content is an object rather than a string.
type ChartOutput struct {
	ChartJS any `json:"chartJs" jsonschema:"Highcharts chart configuration"`
}

// NewGenerateChartHandler returns a tool handler backed by the given adapter.
// Pass the returned function to mcp.AddTool.
func NewGenerateChartHandler(adapter *chart.Adapter) func(context.Context, *mcp.CallToolRequest, GenerateChartInput) (*mcp.CallToolResult, ChartOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GenerateChartInput) (*mcp.CallToolResult, ChartOutput, error) {
		return GenerateChart(ctx, adapter, req, input)
	}
}

// GenerateChart produces a new chart configuration from the prompt.
func GenerateChart(
	ctx context.Context,
	adapter *chart.Adapter,
	req *mcp.CallToolRequest,
	input GenerateChartInput,
) (*mcp.CallToolResult, ChartOutput, error) {
	config, err := adapter.Generate(ctx, input.Prompt)
	if err != nil {
		return nil, ChartOutput{}, toolError(err)
	}

	return toOutput(config)
}

// NewUpdateChartHandler returns a tool handler backed by the given adapter.
// Pass the returned function to mcp.AddTool.
func NewUpdateChartHandler(adapter *chart.Adapter) func(context.Context, *mcp.CallToolRequest, UpdateChartInput) (*mcp.CallToolResult, ChartOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input UpdateChartInput) (*mcp.CallToolResult, ChartOutput, error) {
		return UpdateChart(ctx, adapter, req, input)
	}
}

// UpdateChart modifies the supplied chart configuration per the instruction.
func UpdateChart(
	ctx context.Context,
	adapter *chart.Adapter,
	req *mcp.CallToolRequest,
	input UpdateChartInput,
) (*mcp.CallToolResult, ChartOutput, error) {
	var current json.RawMessage
	if input.CurrentConfig != nil {
		data, err := json.Marshal(input.CurrentConfig)
		if err != nil {
			return nil, ChartOutput{}, fmt.Errorf("failed to encode current_config: %w", err)
		}
		current = data
	}

	config, err := adapter.Update(ctx, current, input.Instruction)
	if err != nil {
		return nil, ChartOutput{}, toolError(err)
	}

	return toOutput(config)
}

func toOutput(config chart.Config) (*mcp.CallToolResult, ChartOutput, error) {
	var decoded any
	if err := json.Unmarshal(config, &decoded); err != nil {
		return nil, ChartOutput{}, fmt.Errorf("failed to decode chart config: %w", err)
	}
	return nil, ChartOutput{ChartJS: decoded}, nil
}

// toolError prefixes the failure kind so clients can tell bad input from
// upstream trouble.
func toolError(err error) error {
	return fmt.Errorf("%s: %w", chart.KindOf(err), err)
}
