// Package mcp exposes storyforge projects to AI agents over the Model
// Context Protocol: listing projects, reading chapters, searching the world
// bible and exporting manuscripts.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/storyforge/internal/project"
	"github.com/ziadkadry99/storyforge/internal/recall"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes project tools.
type Server struct {
	store  *project.Store
	recall *recall.Index
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server. idx may be nil, in which case world
// bible search matches names and descriptions literally.
func NewServer(store *project.Store, idx *recall.Index) *Server {
	s := &Server{
		store:  store,
		recall: idx,
	}

	s.mcp = server.NewMCPServer(
		"storyforge",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(listProjectsTool, s.handleListProjects)
	s.mcp.AddTool(getProjectTool, s.handleGetProject)
	s.mcp.AddTool(getChapterTool, s.handleGetChapter)
	s.mcp.AddTool(searchWorldBibleTool, s.handleSearchWorldBible)
	s.mcp.AddTool(exportProjectTool, s.handleExportProject)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
