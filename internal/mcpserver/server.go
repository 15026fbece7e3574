// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Ansuz compile tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/compiler"
	"github.com/starford/ansuz/internal/parser"
)

const contractURI = "ansuz://criteria-contract"

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp *server.MCPServer
	svc *compiler.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(svc *compiler.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("compile_query",
		mcp.WithDescription("Compile a structured criteria document into a search query string. "+
			"The document MUST follow the criteria contract. Read it first via "+
			"the get_criteria_contract tool or the "+contractURI+" resource."),
		mcp.WithString("criteria", mcp.Required(), mcp.Description("Criteria document as JSON or YAML")),
		mcp.WithString("user", mcp.Description("Current user; overrides the document context")),
		mcp.WithString("folder", mcp.Description("Current folder; overrides the document context")),
		mcp.WithString("reference", mcp.Description("Reference instant (RFC 3339) for relative dates")),
	), s.compileQuery)

	s.mcp.AddTool(mcp.NewTool("validate_criteria",
		mcp.WithDescription("Check a criteria document without compiling it."),
		mcp.WithString("criteria", mcp.Required(), mcp.Description("Criteria document as JSON or YAML")),
	), s.validateCriteria)

	s.mcp.AddTool(mcp.NewTool("resolve_date",
		mcp.WithDescription("Resolve a natural-language date expression (e.g. \"last 2 weeks\", \"March 1st\") "+
			"to an instant or an inclusive range. Pass start and end instead of expression for an explicit range."),
		mcp.WithString("expression", mcp.Description("Date expression")),
		mcp.WithString("start", mcp.Description("Range start expression")),
		mcp.WithString("end", mcp.Description("Range end expression")),
		mcp.WithString("reference", mcp.Description("Reference instant (RFC 3339); defaults to now")),
	), s.resolveDate)

	s.mcp.AddTool(mcp.NewTool("get_criteria_contract",
		mcp.WithDescription("Returns the criteria document contract. "+
			"Call this before compile_query to ensure correct structure."),
	), s.getCriteriaContract)

	s.mcp.AddTool(mcp.NewTool("search_history",
		mcp.WithDescription("Full-text search through previously compiled queries and their titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchHistory)

	// Resource: criteria contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Criteria Contract",
			mcp.WithResourceDescription("Structured criteria document format accepted by compile_query."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) compileQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("criteria")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := parser.Parse([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rc := doc.Context
	if v := req.GetString("user", ""); v != "" {
		rc.User = v
	}
	if v := req.GetString("folder", ""); v != "" {
		rc.Folder = v
	}
	if v := req.GetString("reference", ""); v != "" {
		rc.Reference = v
	}

	res, err := s.svc.Compile(ctx, compiler.Request{
		Document: doc.Document,
		Context:  rc,
		Source:   compiler.SourceMCP,
		Title:    doc.Title,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) validateCriteria(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("criteria")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := parser.Parse([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Validate(ctx, doc.Document); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("valid"), nil
}

func (s *Server) resolveDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr := req.GetString("expression", "")
	start := req.GetString("start", "")
	end := req.GetString("end", "")
	reference := req.GetString("reference", "")

	var (
		res *compiler.Resolved
		err error
	)
	switch {
	case start != "" && end != "":
		res, err = s.svc.ResolveRange(ctx, start, end, reference)
	case expr != "":
		res, err = s.svc.Resolve(ctx, expr, reference)
	default:
		return mcp.NewToolResultError("expression, or both start and end, is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) searchHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getCriteriaContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CriteriaContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     CriteriaContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
