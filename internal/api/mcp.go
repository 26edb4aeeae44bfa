package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/edbot-dev/edbot/internal/pipeline"
	"github.com/edbot-dev/edbot/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Responder Responder
	Feedback  FeedbackService
}

// NewMCPServer creates an MCP server exposing the assistant over stdio, so
// editor and agent hosts can drive the same pipeline the HTTP surface does.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"edbot",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("edbot — conversational educational assistant with feedback-driven adaptation."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask",
			mcp.WithDescription("Ask the educational assistant a question and get the orchestrated answer."),
			mcp.WithString("text", mcp.Description("The user utterance"), mcp.Required()),
			mcp.WithNumber("session_id", mcp.Description("Conversation session id, enables feedback recovery")),
			mcp.WithBoolean("simplify", mcp.Description("Force a maximally simplified answer")),
		),
		mcpAsk(deps),
	)

	s.AddTool(
		mcp.NewTool("submit_feedback",
			mcp.WithDescription("Record or update a rating of a previous answer."),
			mcp.WithNumber("id", mcp.Description("Feedback record id to update; omit to create")),
			mcp.WithNumber("session_id", mcp.Description("Conversation session id")),
			mcp.WithString("user_question", mcp.Description("The question that was asked")),
			mcp.WithString("bot_answer", mcp.Description("The answer that was given")),
			mcp.WithBoolean("helpful", mcp.Description("Whether the answer helped")),
			mcp.WithString("detected_intent", mcp.Description("Intent label of the rated exchange")),
		),
		mcpSubmitFeedback(deps),
	)

	s.AddTool(
		mcp.NewTool("next_session",
			mcp.WithDescription("Allocate a fresh conversation session id."),
		),
		mcpNextSession(deps),
	)

	return s
}

func mcpAsk(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		var sessionID *int64
		if sid := req.GetInt("session_id", 0); sid > 0 {
			v := int64(sid)
			sessionID = &v
		}

		reply := deps.Responder.Respond(ctx, pipeline.Turn{
			SessionID: sessionID,
			Text:      text,
			Simplify:  req.GetBool("simplify", false),
		})

		b, err := json.Marshal(ChatResponse{
			Text:            reply.Text,
			DetectedIntent:  reply.Intent,
			FeedbackEnabled: true,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal reply: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSubmitFeedback(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var p storage.UpsertParams
		if id := req.GetInt("id", 0); id > 0 {
			v := int64(id)
			p.ID = &v
		}
		if sid := req.GetInt("session_id", 0); sid > 0 {
			v := int64(sid)
			p.SessionID = &v
		}
		if q := req.GetString("user_question", ""); q != "" {
			p.UserQuestion = &q
		}
		if a := req.GetString("bot_answer", ""); a != "" {
			p.BotAnswer = &a
		}
		if args := req.GetArguments(); args != nil {
			if raw, ok := args["helpful"]; ok {
				if helpful, ok := raw.(bool); ok {
					p.Helpful = &helpful
				}
			}
		}
		if di := req.GetString("detected_intent", ""); di != "" {
			p.DetectedIntent = &di
		}

		if p.ID == nil && p.UserQuestion == nil && p.BotAnswer == nil && p.Helpful == nil {
			return mcpError("at least one feedback field is required"), nil
		}

		rec, err := deps.Feedback.Submit(p)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to store feedback: %v", err)), nil
		}

		b, err := json.Marshal(toFeedbackResponse(rec))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal record: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpNextSession(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := deps.Feedback.NextSessionID()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to allocate session: %v", err)), nil
		}
		return mcpText(fmt.Sprintf(`{"session_id":%d}`, id)), nil
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
