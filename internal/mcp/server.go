package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ldi/taskboard/internal/db"
	"github.com/ldi/taskboard/pkg/models"
)

const (
	ServerName    = "Taskboard"
	ServerVersion = "0.1.0"
)

// NewServer creates an MCP server exposing the task store as tools.
func NewServer(database *db.DB) *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion)

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks ordered by due date. Only id, title and due_date are returned; use get_task for the rest."),
		mcp.WithString("q", mcp.Description("Keyword matched against title, description or location")),
		mcp.WithString("tag", mcp.Description("Exact tag name")),
	), listTasksHandler(database))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a single task with its tags."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), getTaskHandler(database))

	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Create a task. New tasks start as pending."),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("due_date", mcp.Description("Due date (YYYY-MM-DD)")),
		mcp.WithString("location", mcp.Description("Location")),
		mcp.WithString("tags", mcp.Description("Comma separated tag names")),
	), createTaskHandler(database))

	s.AddTool(mcp.NewTool("update_task",
		mcp.WithDescription("Replace a task's fields. Omitting tags leaves them as they are; an empty string clears them."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("status", mcp.Description("New status (pending|completed)"), mcp.Required()),
		mcp.WithString("due_date", mcp.Description("Due date (YYYY-MM-DD)")),
		mcp.WithString("location", mcp.Description("Location")),
		mcp.WithString("tags", mcp.Description("Comma separated tag names")),
	), updateTaskHandler(database))

	s.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task. Its tags stay in the catalog."),
		mcp.WithNumber("id", mcp.Description("Task id"), mcp.Required()),
	), deleteTaskHandler(database))

	s.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags with the number of tasks carrying each."),
	), listTagsHandler(database))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func storeError(err error, id int64) *mcp.CallToolResult {
	if errors.Is(err, db.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("task %d not found", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func optionalString(args map[string]any, key string) *string {
	s, ok := args[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// taskInput reads the shared create/update arguments. Tags stay nil when
// the argument is absent so that an update keeps the current set.
func taskInput(request mcp.CallToolRequest) models.TaskInput {
	args, _ := request.Params.Arguments.(map[string]any)
	in := models.TaskInput{
		Title:       mcp.ParseString(request, "title", ""),
		Description: mcp.ParseString(request, "description", ""),
		Status:      models.TaskStatus(mcp.ParseString(request, "status", "")),
		DueDate:     optionalString(args, "due_date"),
		Location:    optionalString(args, "location"),
	}
	if raw, ok := args["tags"].(string); ok {
		in.Tags = db.NormalizeTags(strings.Split(raw, ","))
	}
	return in
}

func listTasksHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := models.ListFilter{
			Query: mcp.ParseString(request, "q", ""),
			Tag:   mcp.ParseString(request, "tag", ""),
		}

		tasks, err := database.ListTasks(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(map[string]any{"tasks": tasks})
	}
}

func getTaskHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(mcp.ParseInt(request, "id", 0))

		task, err := database.GetTask(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if task == nil {
			return storeError(db.ErrNotFound, id), nil
		}

		return jsonResult(task)
	}
}

func createTaskHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in := taskInput(request)
		in.Status = ""

		task, err := database.CreateTask(ctx, in)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(task)
	}
}

func updateTaskHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(mcp.ParseInt(request, "id", 0))

		task, err := database.UpdateTask(ctx, id, taskInput(request))
		if err != nil {
			return storeError(err, id), nil
		}

		return jsonResult(task)
	}
}

func deleteTaskHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := int64(mcp.ParseInt(request, "id", 0))

		if err := database.DeleteTask(ctx, id); err != nil {
			return storeError(err, id), nil
		}

		return mcp.NewToolResultText("Task deleted successfully"), nil
	}
}

func listTagsHandler(database *db.DB) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tags, err := database.ListTags(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return jsonResult(map[string]any{"tags": tags})
	}
}
