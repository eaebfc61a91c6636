package mcp

import "github.com/mark3labs/mcp-go/mcp"

// listProjectsTool defines the list_projects MCP tool.
var listProjectsTool = mcp.NewTool("list_projects",
	mcp.WithDescription("List every writing project with its genre, chapter count and word count."),
)

// getProjectTool defines the get_project MCP tool.
var getProjectTool = mcp.NewTool("get_project",
	mcp.WithDescription("Get a project's synopsis, outline, chapter list and AI memory notes."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project ID as returned by list_projects"),
	),
)

// getChapterTool defines the get_chapter MCP tool.
var getChapterTool = mcp.NewTool("get_chapter",
	mcp.WithDescription("Get the full text and notes of one chapter."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project ID as returned by list_projects"),
	),
	mcp.WithString("chapter_id",
		mcp.Description("Chapter ID; takes precedence over number"),
	),
	mcp.WithNumber("number",
		mcp.Description("1-based chapter position (default 1)"),
	),
)

// searchWorldBibleTool defines the search_world_bible MCP tool.
var searchWorldBibleTool = mcp.NewTool("search_world_bible",
	mcp.WithDescription("Search a project's characters, locations, items, lore and memory notes by meaning."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project ID as returned by list_projects"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
	mcp.WithString("kind",
		mcp.Description("Only return entries of this kind"),
		mcp.Enum("character", "location", "item", "lore", "memory"),
	),
)

// exportProjectTool defines the export_project MCP tool.
var exportProjectTool = mcp.NewTool("export_project",
	mcp.WithDescription("Render the whole manuscript as text."),
	mcp.WithString("project_id",
		mcp.Required(),
		mcp.Description("Project ID as returned by list_projects"),
	),
	mcp.WithString("format",
		mcp.Description("Output format (default markdown)"),
		mcp.Enum("markdown", "txt", "json"),
	),
)
