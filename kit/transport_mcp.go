package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hojadevida/idgen"
)

// RegisterTool adds tool to srv. The call arguments are decoded into a new
// Req and passed to ep as *Req, under a fresh trace ID; the result goes
// back as JSON text. Bad arguments and endpoint errors become tool errors,
// not protocol errors.
func RegisterTool[Req any](srv *mcp.Server, tool *mcp.Tool, ep Endpoint) {
	srv.AddTool(tool, func(ctx context.Context, call *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := new(Req)
		if args := call.Params.Arguments; len(args) > 0 {
			if err := json.Unmarshal(args, req); err != nil {
				return toolError(fmt.Errorf("invalid arguments: %w", err)), nil
			}
		}
		ctx = WithTraceID(WithTransport(ctx, "mcp"), idgen.Trace())
		resp, err := ep(ctx, req)
		if err != nil {
			return toolError(err), nil
		}
		body, err := json.Marshal(resp)
		if err != nil {
			return toolError(fmt.Errorf("encode result: %w", err)), nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(body)}}}, nil
	})
}

func toolError(err error) *mcp.CallToolResult {
	res := &mcp.CallToolResult{}
	res.SetError(err)
	return res
}
