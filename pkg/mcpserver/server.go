// Package mcpserver exposes the bridge's registered skills as MCP tools so
// local MCP clients can invoke them through the governance pipeline.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/openclaw/bridge/pkg/adapter"
)

// SkillInvoker is the slice of the bridge the server needs.
type SkillInvoker interface {
	ListSkills() []*adapter.AdaptedSkill
	InvokeSkill(ctx context.Context, name string, params map[string]any) adapter.Result
}

// Server wraps the mcp-go server around a skill invoker.
type Server struct {
	mcpServer *server.MCPServer
	invoker   SkillInvoker
	logger    *slog.Logger
}

// New creates an MCP server advertising under the given name and version.
func New(name, version string, invoker SkillInvoker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		mcpServer: server.NewMCPServer(name, version),
		invoker:   invoker,
		logger:    logger,
	}
}

// RegisterSkills adds one MCP tool per registered skill and reports how many
// were added. Call it again after registering more skills.
func (s *Server) RegisterSkills() int {
	registered := s.invoker.ListSkills()
	for _, skill := range registered {
		tool := mcp.NewTool(skill.ID, mcp.WithDescription(skill.Spec.Description))
		s.mcpServer.AddTool(tool, s.toolHandler(skill.ID))
		s.logger.Debug("mcp tool registered", "tool", skill.ID)
	}
	return len(registered)
}

func (s *Server) toolHandler(skillID string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})
		res := s.invoker.InvokeSkill(ctx, skillID, args)
		if !res.Success {
			return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", res.Code, res.Error)), nil
		}
		if res.Data == nil {
			return mcp.NewToolResultText("ok"), nil
		}
		data, err := json.Marshal(res.Data)
		if err != nil {
			return mcp.NewToolResultError("marshal skill result: " + err.Error()), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// ServeStdio blocks serving MCP over stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
