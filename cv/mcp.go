package cv

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/hojadevida/kit"
)

// RegisterMCP registers the CV tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerProfileTool(srv)
	s.registerAttachmentsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

var selectionSchema = map[string]any{
	"type":        "object",
	"description": "Sections to include (exp, edu, acad, lab, rec, garage). Omit for the print default.",
	"properties": map[string]any{
		"exp":    map[string]any{"type": "boolean"},
		"edu":    map[string]any{"type": "boolean"},
		"acad":   map[string]any{"type": "boolean"},
		"lab":    map[string]any{"type": "boolean"},
		"rec":    map[string]any{"type": "boolean"},
		"garage": map[string]any{"type": "boolean"},
	},
}

type viewReq struct {
	ProfileID int64      `json:"profile_id"`
	Sections  *Selection `json:"sections"`
}

func (r *viewReq) selection(def Selection) Selection {
	if r.Sections == nil {
		return def
	}
	return *r.Sections
}

// profileID returns the requested profile, falling back to the active one.
func (s *Service) profileID(ctx context.Context, id int64) (int64, error) {
	if id > 0 {
		return id, nil
	}
	p, err := s.store.ActiveProfile(ctx)
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}

// --- profile ---

func (s *Service) registerProfileTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "cv_profile",
		Description: "Return a CV profile with its visible section records and resolved attachments.",
		InputSchema: inputSchema(map[string]any{
			"profile_id": map[string]any{"type": "integer", "description": "Profile ID (default: active profile)"},
			"sections":   selectionSchema,
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*viewReq)
		id, err := s.profileID(ctx, r.ProfileID)
		if err != nil {
			return nil, err
		}
		return s.View(ctx, id, r.selection(AllSections()))
	}

	kit.RegisterTool[viewReq](srv, tool, kit.Logging(s.logger, tool.Name)(endpoint))
}

// --- attachments ---

func (s *Service) registerAttachmentsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "cv_attachments",
		Description: "List the certificate documents that a CV export would append, in merge order.",
		InputSchema: inputSchema(map[string]any{
			"profile_id": map[string]any{"type": "integer", "description": "Profile ID (default: active profile)"},
			"sections":   selectionSchema,
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*viewReq)
		id, err := s.profileID(ctx, r.ProfileID)
		if err != nil {
			return nil, err
		}
		v, err := s.View(ctx, id, r.selection(DefaultSelection()))
		if err != nil {
			return nil, err
		}
		entries := v.Attachments()
		if entries == nil {
			entries = []AttachmentEntry{}
		}
		return map[string]any{"profile_id": id, "attachments": entries}, nil
	}

	kit.RegisterTool[viewReq](srv, tool, kit.Logging(s.logger, tool.Name)(endpoint))
}
