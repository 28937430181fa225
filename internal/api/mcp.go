package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Resolver ResolverService
	History  HistoryLister // optional
}

// NewMCPServer creates an MCP server exposing the lookup pipeline to
// assistants over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"deptline",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("deptline — resolves university department names and colloquial descriptions to phone numbers."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("lookup_phone",
			mcp.WithDescription("Resolve a department name or colloquial description to its phone number."),
			mcp.WithString("query", mcp.Description("Department name or description, e.g. \"where do I pay tuition\""), mcp.Required()),
		),
		mcpLookupPhone(deps),
	)

	s.AddTool(
		mcp.NewTool("add_department",
			mcp.WithDescription("Add or update a department record in the durable directory."),
			mcp.WithString("name", mcp.Description("Canonical department name"), mcp.Required()),
			mcp.WithString("phone", mcp.Description("Phone number (10 US digits, any common format)"), mcp.Required()),
			mcp.WithArray("aliases", mcp.Description("Optional alternative names")),
		),
		mcpAddDepartment(deps),
	)

	s.AddTool(
		mcp.NewTool("confirm_phone",
			mcp.WithDescription("Confirm a web-sourced answer so it is stored, or reject it so it is discarded."),
			mcp.WithString("query", mcp.Description("The original query"), mcp.Required()),
			mcp.WithString("department", mcp.Description("Department name"), mcp.Required()),
			mcp.WithString("phone", mcp.Description("Phone number to confirm"), mcp.Required()),
			mcp.WithBoolean("confirmed", mcp.Description("true to store, false to discard"), mcp.Required()),
		),
		mcpConfirmPhone(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"directory://departments",
			"Department Directory",
			mcp.WithResourceDescription("All known departments with phone numbers and aliases, as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDepartments(deps),
	)

	return s
}

func mcpLookupPhone(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		res := deps.Resolver.Resolve(ctx, query)
		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		if !res.Found {
			return mcpError(string(b)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddDepartment(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		phone, err := req.RequireString("phone")
		if err != nil {
			return mcpError("phone is required"), nil
		}
		aliases := req.GetStringSlice("aliases", nil)

		if err := deps.Resolver.Add(name, phone, aliases); err != nil {
			return mcpError(fmt.Sprintf("failed to add department: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Stored %s", name)), nil
	}
}

func mcpConfirmPhone(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		department, err := req.RequireString("department")
		if err != nil {
			return mcpError("department is required"), nil
		}
		phone, err := req.RequireString("phone")
		if err != nil {
			return mcpError("phone is required"), nil
		}
		confirmed, err := req.RequireBool("confirmed")
		if err != nil {
			return mcpError("confirmed is required"), nil
		}

		if err := deps.Resolver.Confirm(query, department, phone, confirmed); err != nil {
			return mcpError(fmt.Sprintf("confirmation failed: %v", err)), nil
		}
		if confirmed {
			return mcpText(fmt.Sprintf("Stored %s = %s", department, phone)), nil
		}
		return mcpText("Discarded"), nil
	}
}

func mcpResourceDepartments(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Resolver.Departments())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal departments: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
