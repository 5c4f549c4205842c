// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the camroll library to LLM tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/camroll/internal/mediaservice"
	"github.com/starford/camroll/internal/models"
)

// Refresher reloads the gallery from the index.
type Refresher interface {
	RefreshGallery(ctx context.Context) (int, error)
}

// Server wraps the MCP server with camroll tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *mediaservice.Service
	refresher Refresher
	importDir string
}

// New creates a new MCP server with all camroll tools registered. Imported
// files land in importDir; refresher may be nil when no gallery is hosted.
func New(svc *mediaservice.Service, refresher Refresher, importDir string) *Server {
	s := &Server{svc: svc, refresher: refresher, importDir: importDir}

	s.mcp = server.NewMCPServer(
		"camroll",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_media",
		mcp.WithDescription("List indexed photos and videos, most recently added first."),
		mcp.WithString("kind", mcp.Description("Optional kind filter: image or video")),
		mcp.WithNumber("limit", mcp.Description("Page size (default 50)")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
	), s.listMedia)

	s.mcp.AddTool(mcp.NewTool("get_media",
		mcp.WithDescription("Read the index metadata of one item."),
		mcp.WithString("locator", mcp.Required(), mcp.Description("Media locator, e.g. media://images/12")),
	), s.getMedia)

	s.mcp.AddTool(mcp.NewTool("delete_media",
		mcp.WithDescription("Delete one item from the library and the index."),
		mcp.WithString("locator", mcp.Required(), mcp.Description("Media locator, e.g. media://images/12")),
	), s.deleteMedia)

	s.mcp.AddTool(mcp.NewTool("import_media",
		mcp.WithDescription("Import a photo or video from an http(s) URL or a base64 data URI. "+
			"The kind is taken from the content, not the name. Read camroll://library-layout first."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data: URI")),
		mcp.WithString("name", mcp.Description("Optional display name without extension")),
	), s.importMedia)

	s.mcp.AddTool(mcp.NewTool("refresh_gallery",
		mcp.WithDescription("Reload the hosted gallery from the index and return its item count."),
	), s.refreshGallery)

	s.mcp.AddResource(
		mcp.NewResource("camroll://library-layout", "Library Layout",
			mcp.WithResourceDescription("Where camroll keeps photos and videos and which formats it indexes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLayoutResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var kind models.Kind
	if k := req.GetString("kind", ""); k != "" {
		parsed, err := models.ParseKind(k)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind = parsed
	}
	items, total, err := s.svc.List(ctx, kind, req.GetInt("limit", 50), req.GetInt("offset", 0))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if items == nil {
		items = []models.Media{}
	}
	return jsonResult(map[string]any{"media": items, "total": total}), nil
}

func (s *Server) locator(req mcp.CallToolRequest) (models.Locator, *mcp.CallToolResult) {
	raw, err := req.RequireString("locator")
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	loc, err := models.ParseLocator(raw)
	if err != nil {
		return "", mcp.NewToolResultError(err.Error())
	}
	return loc, nil
}

func (s *Server) getMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc, bad := s.locator(req)
	if bad != nil {
		return bad, nil
	}
	m, err := s.svc.Get(ctx, loc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", loc)), nil
	}
	return jsonResult(m), nil
}

func (s *Server) deleteMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	loc, bad := s.locator(req)
	if bad != nil {
		return bad, nil
	}
	if err := s.svc.Delete(ctx, loc); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", loc)), nil
}

func (s *Server) refreshGallery(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.refresher == nil {
		return mcp.NewToolResultError("no gallery is hosted by this process"), nil
	}
	n, err := s.refresher.RefreshGallery(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("gallery items: %d", n)), nil
}

func (s *Server) readLayoutResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "camroll://library-layout",
			MIMEType: "text/markdown",
			Text:     LibraryLayout(s.importDir),
		},
	}, nil
}
