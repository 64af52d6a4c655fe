package cv

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// callTool runs one tool call against a fresh server over in-memory
// transports and decodes the JSON result into out.
func callTool(t *testing.T, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	impl := &mcp.Implementation{Name: "cv-test", Version: "0"}
	srv := mcp.NewServer(impl, nil)
	testService(fixture()).RegisterMCP(srv)

	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()
	go srv.Run(ctx, st)
	session, err := mcp.NewClient(impl, nil).Connect(ctx, ct, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer session.Close()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	if out != nil && !res.IsError {
		text := res.Content[0].(*mcp.TextContent).Text
		if err := json.Unmarshal([]byte(text), out); err != nil {
			t.Fatalf("%s: %v\n%s", name, err, text)
		}
	}
	return res
}

func TestMCP_ProfileFallsBackToActive(t *testing.T) {
	var got struct {
		Profile struct {
			ID    int64  `json:"id"`
			Names string `json:"names"`
		} `json:"profile"`
		Listings []struct {
			Attachment *struct {
				IsPDF bool `json:"is_pdf"`
			} `json:"attachment"`
		} `json:"listings"`
	}
	if res := callTool(t, "cv_profile", map[string]any{}, &got); res.IsError {
		t.Fatalf("tool error: %v", res.GetError())
	}
	if got.Profile.ID != 7 || got.Profile.Names != "Ana" {
		t.Fatalf("profile = %+v", got.Profile)
	}
	if len(got.Listings) != 1 || got.Listings[0].Attachment == nil || !got.Listings[0].Attachment.IsPDF {
		t.Fatalf("listings = %+v", got.Listings)
	}
}

func TestMCP_Attachments(t *testing.T) {
	type item struct {
		Section string `json:"section"`
	}
	tests := []struct {
		name      string
		sections  map[string]any
		wantCount int
		wantFirst Section
	}{
		{"print default leaves out the marketplace", nil, 3, SectionExperience},
		{"marketplace only", map[string]any{"garage": true}, 1, SectionMarketplace},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{"profile_id": 7}
			if tt.sections != nil {
				args["sections"] = tt.sections
			}
			var got struct {
				Attachments []item `json:"attachments"`
			}
			if res := callTool(t, "cv_attachments", args, &got); res.IsError {
				t.Fatalf("tool error: %v", res.GetError())
			}
			if len(got.Attachments) != tt.wantCount || got.Attachments[0].Section != string(tt.wantFirst) {
				t.Fatalf("attachments = %+v", got.Attachments)
			}
		})
	}
}

func TestMCP_UnknownProfileIsToolError(t *testing.T) {
	if res := callTool(t, "cv_profile", map[string]any{"profile_id": 404}, nil); !res.IsError {
		t.Fatal("expected a tool error")
	}
}
