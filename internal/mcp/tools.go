package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"datachat/internal/db"
)

func (s *Server) setupTools() {
	queryTool := mcp.NewTool("query_database",
		mcp.WithDescription("Query the employees and departments database using natural language. "+
			"Use this tool for ANY questions about employees (names, roles, salaries, locations), "+
			"departments (names, budgets, managers, locations), or the relationships between them."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural language question about employees or departments"),
		),
	)
	s.mcpServer.AddTool(queryTool, s.handleQueryDatabase)

	schemaTool := mcp.NewTool("get_database_schema",
		mcp.WithDescription("Get the database schema including all tables and their columns. "+
			"Use this tool when users want to see what tables exist, understand the database "+
			"structure, or learn about table relationships."),
	)
	s.mcpServer.AddTool(schemaTool, s.handleGetSchema)

	tableTool := mcp.NewTool("get_table_raw_data",
		mcp.WithDescription("Get all raw data from a specific database table. Use this tool when "+
			"users want to see all data in a table or review complete table contents."),
		mcp.WithString("table_name",
			mcp.Required(),
			mcp.Description("Name of the table (e.g. 'employees' or 'departments')"),
		),
	)
	s.mcpServer.AddTool(tableTool, s.handleGetTableData)
}

// handleQueryDatabase translates the question to SQL and runs it. Execution
// failures still produce a payload so the model can explain what happened.
func (s *Server) handleQueryDatabase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	generatedSQL := s.translator.Translate(ctx, question, s.schema.Prompt())

	rows, runErr := s.database.RunReadOnly(ctx, generatedSQL)
	if runErr != nil {
		return toolResult(map[string]any{
			"success":   true,
			"sql":       generatedSQL,
			"data":      []map[string]any{},
			"error":     db.QueryErrorText(runErr),
			"row_count": 0,
		})
	}

	return toolResult(map[string]any{
		"success":   true,
		"sql":       generatedSQL,
		"data":      rows,
		"error":     nil,
		"row_count": len(rows),
	})
}

func (s *Server) handleGetSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	detected, err := s.schema.Detect(ctx)
	if err != nil {
		return toolResult(map[string]any{
			"success": true,
			"schema":  []map[string]any{},
			"error":   err.Error(),
		})
	}

	schemaList := make([]map[string]any, 0, len(detected.Tables))
	for _, table := range detected.Tables {
		schemaList = append(schemaList, map[string]any{
			"table_name": table.Name,
			"columns":    table.Columns,
		})
	}

	return toolResult(map[string]any{
		"success": true,
		"schema":  schemaList,
		"error":   nil,
	})
}

func (s *Server) handleGetTableData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableName, err := request.RequireString("table_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rows, dataErr := s.database.TableData(ctx, tableName)
	if dataErr != nil {
		return toolResult(map[string]any{
			"success":    true,
			"table_name": tableName,
			"data":       []map[string]any{},
			"error":      db.QueryErrorText(dataErr),
			"row_count":  0,
		})
	}

	return toolResult(map[string]any{
		"success":    true,
		"table_name": tableName,
		"data":       rows,
		"error":      nil,
		"row_count":  len(rows),
	})
}

func toolResult(payload map[string]any) (*mcp.CallToolResult, error) {
	resultJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}
