// Package mcpadapter exposes the chat pipeline as Model Context Protocol tools
// so assistants can query the document corpus directly.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/grounded-chat/internal/core/domain"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
)

const (
	serverName    = "grounded-chat"
	serverVersion = "1.0.0"

	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

type Tools struct {
	chat    ports.ChatService
	search  ports.EvidenceSearch
	threads ports.ThreadService
}

func NewTools(chat ports.ChatService, search ports.EvidenceSearch, threads ports.ThreadService) *Tools {
	return &Tools{chat: chat, search: search, threads: threads}
}

// NewServer registers ask, search_documents and list_threads.
func NewServer(t *Tools) *server.MCPServer {
	s := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false), server.WithRecovery())

	s.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Ask a question answered from the uploaded documents and the web."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The user question.")),
		mcp.WithString("thread_id", mcp.Description("Existing thread to continue; a new thread is created when empty.")),
		mcp.WithString("document_id", mcp.Description("Restrict retrieval to one document.")),
		mcp.WithBoolean("web_search", mcp.Description("Consult web search results; set false for documents only."), mcp.DefaultBool(true)),
	), t.Ask)

	s.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Return document passages relevant to a query without generating an answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query.")),
		mcp.WithNumber("min_score", mcp.Description("Minimum relevance between 0 and 1."), mcp.Min(0), mcp.Max(1)),
		mcp.WithNumber("limit", mcp.Description("Maximum number of passages."), mcp.Min(1), mcp.Max(maxSearchLimit)),
	), t.SearchDocuments)

	s.AddTool(mcp.NewTool("list_threads",
		mcp.WithDescription("List conversation threads, most recently active first."),
		mcp.WithNumber("skip", mcp.Description("Threads to skip."), mcp.Min(0)),
		mcp.WithNumber("limit", mcp.Description("Page size."), mcp.Min(1), mcp.Max(100)),
	), t.ListThreads)

	return s
}

func ServeStdio(ctx context.Context, t *Tools) error {
	stdio := server.NewStdioServer(NewServer(t))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func (t *Tools) Ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := t.chat.Submit(ctx, domain.ChatRequest{
		Message:         question,
		ThreadID:        req.GetString("thread_id", ""),
		DocumentID:      req.GetString("document_id", ""),
		EnableWebSearch: req.GetBool("web_search", true),
	})
	if err != nil {
		return toolError("ask", err), nil
	}
	return jsonResult(resp)
}

func (t *Tools) SearchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := min(max(req.GetInt("limit", defaultSearchLimit), 1), maxSearchLimit)
	minScore := req.GetFloat("min_score", 0)

	bundle := t.search.RetrieveWithThreshold(ctx, query, minScore, limit)
	if bundle.Status == domain.EvidenceFailed {
		return toolError("search_documents", bundle.Err), nil
	}
	if len(bundle.Items) == 0 {
		return mcp.NewToolResultText("No relevant passages found."), nil
	}
	return jsonResult(bundle.Items)
}

func (t *Tools) ListThreads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page, err := t.threads.List(ctx, req.GetInt("skip", 0), req.GetInt("limit", 0))
	if err != nil {
		return toolError("list_threads", err), nil
	}
	return jsonResult(page)
}

// toolError reports failures in the tool result so the calling model can see
// them; transport-level errors are reserved for protocol problems.
func toolError(tool string, err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError(tool + " failed")
	case domain.IsKind(err, domain.ErrInvalidInput),
		domain.IsKind(err, domain.ErrThreadNotFound),
		domain.IsKind(err, domain.ErrDocumentNotFound):
		return mcp.NewToolResultError(err.Error())
	case domain.IsKind(err, domain.ErrTemporary):
		return mcp.NewToolResultError(fmt.Sprintf("%s is temporarily unavailable, retry later", tool))
	default:
		return mcp.NewToolResultErrorFromErr(tool+" failed", err)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
