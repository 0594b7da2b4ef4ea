package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/lo"

	"github.com/PodJamz/8gent-sub005/memory"
)

const (
	defaultContextLimit = 10
	defaultRecentLimit  = 10
	defaultImportance   = 0.5
	defaultConfidence   = 0.8
	defaultLearnSource  = "mcp"
	defaultIngestLabel  = "conversation"
)

var errIngestDisabled = errors.New("ingestion is not configured for this server")

type toolHandler func(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

type toolDef struct {
	tool    mcp.Tool
	handler toolHandler
}

var (
	episodicTypeNames = []string{
		string(memory.EpisodicInteraction),
		string(memory.EpisodicDecision),
		string(memory.EpisodicPreference),
		string(memory.EpisodicFeedback),
		string(memory.EpisodicMilestone),
	}
	categoryNames = []string{
		string(memory.CategoryPreference),
		string(memory.CategorySkill),
		string(memory.CategoryPattern),
		string(memory.CategoryFact),
	}
)

func userIDParam() mcp.ToolOption {
	return mcp.WithString("user_id", mcp.Description("User whose memories to use. Defaults to the configured user."))
}

func projectIDParam() mcp.ToolOption {
	return mcp.WithString("project_id", mcp.Description("Optional project scope"))
}

func (s *Server) tools() []toolDef {
	return []toolDef{
		{
			tool: mcp.NewTool("memory_context",
				mcp.WithDescription("Load memories relevant to a query and a summary ready for prompt injection"),
				mcp.WithString("query", mcp.Required(), mcp.Description("What the user is asking about")),
				mcp.WithNumber("limit", mcp.Description("Maximum episodic memories to return"), mcp.DefaultNumber(defaultContextLimit)),
				mcp.WithBoolean("include_episodic", mcp.Description("Search episodic memories"), mcp.DefaultBool(true)),
				mcp.WithBoolean("include_semantic", mcp.Description("Load semantic facts"), mcp.DefaultBool(true)),
				projectIDParam(),
				userIDParam(),
			),
			handler: s.handleContext,
		},
		{
			tool: mcp.NewTool("memory_remember",
				mcp.WithDescription("Record an episodic memory of something that happened"),
				mcp.WithString("content", mcp.Required(), mcp.Description("What happened")),
				mcp.WithString("memory_type", mcp.Description("Kind of event"), mcp.Enum(episodicTypeNames...)),
				mcp.WithNumber("importance", mcp.Description("Importance from 0 to 1"), mcp.DefaultNumber(defaultImportance)),
				projectIDParam(),
				userIDParam(),
			),
			handler: s.handleRemember,
		},
		{
			tool: mcp.NewTool("memory_learn",
				mcp.WithDescription("Create or replace a durable fact about the user"),
				mcp.WithString("category", mcp.Required(), mcp.Enum(categoryNames...)),
				mcp.WithString("key", mcp.Required(), mcp.Description("Fact key, normalized to snake_case")),
				mcp.WithString("value", mcp.Required(), mcp.Description("Fact value")),
				mcp.WithNumber("confidence", mcp.Description("Confidence from 0 to 1"), mcp.DefaultNumber(defaultConfidence)),
				mcp.WithString("source", mcp.Description("Where the fact came from")),
				userIDParam(),
			),
			handler: s.handleLearn,
		},
		{
			tool: mcp.NewTool("memory_process_interaction",
				mcp.WithDescription("Score an interaction and record it and any stated preferences or skills"),
				mcp.WithString("user_message", mcp.Required(), mcp.Description("The user's message")),
				mcp.WithArray("tools_used", mcp.Description("Tools invoked while answering"), mcp.Items(map[string]interface{}{"type": "string"})),
				projectIDParam(),
				userIDParam(),
			),
			handler: s.handleProcessInteraction,
		},
		{
			tool: mcp.NewTool("memory_ingest",
				mcp.WithDescription("Extract and store memories from a block of text such as a conversation transcript"),
				mcp.WithString("content", mcp.Required(), mcp.Description("Text to ingest")),
				mcp.WithString("label", mcp.Description("Source label used in summaries and fact sources")),
				userIDParam(),
			),
			handler: s.handleIngest,
		},
		{
			tool: mcp.NewTool("memory_recent",
				mcp.WithDescription("List the newest episodic memories"),
				mcp.WithNumber("limit", mcp.DefaultNumber(defaultRecentLimit)),
				projectIDParam(),
				userIDParam(),
			),
			handler: s.handleRecent,
		},
		{
			tool: mcp.NewTool("memory_stats",
				mcp.WithDescription("Count stored memories by type and category"),
				userIDParam(),
			),
			handler: s.handleStats,
		},
		{
			tool: mcp.NewTool("memory_facts",
				mcp.WithDescription("List semantic facts, optionally for one category"),
				mcp.WithString("category", mcp.Enum(categoryNames...)),
				userIDParam(),
			),
			handler: s.handleFacts,
		},
		{
			tool: mcp.NewTool("memory_forget",
				mcp.WithDescription("Delete one memory owned by the user"),
				mcp.WithString("memory_id", mcp.Required()),
				mcp.WithString("kind", mcp.Required(), mcp.Enum("episodic", "semantic")),
				userIDParam(),
			),
			handler: s.handleForget,
		},
	}
}

// requireText is RequireString that also rejects blank values.
func requireText(req mcp.CallToolRequest, name string) (string, error) {
	v, err := req.RequireString(name)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%s must not be empty", name)
	}
	return v, nil
}

func (s *Server) handleContext(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := requireText(req, "query")
	if err != nil {
		return nil, err
	}
	res, err := s.manager.LoadRelevantMemories(ctx, userID, query, memory.SearchOptions{
		Limit:           req.GetInt("limit", defaultContextLimit),
		IncludeEpisodic: lo.ToPtr(req.GetBool("include_episodic", true)),
		IncludeSemantic: lo.ToPtr(req.GetBool("include_semantic", true)),
		ProjectID:       req.GetString("project_id", ""),
	})
	if err != nil {
		return nil, err
	}
	return jsonResult(res)
}

func (s *Server) handleRemember(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := requireText(req, "content")
	if err != nil {
		return nil, err
	}
	id, err := s.manager.StoreEpisodicMemory(ctx, userID, content,
		memory.ParseEpisodicType(req.GetString("memory_type", "")),
		req.GetFloat("importance", defaultImportance),
		req.GetString("project_id", ""),
		map[string]interface{}{"source": defaultLearnSource},
	)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]string{"id": id})
}

func (s *Server) handleLearn(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := requireText(req, "category")
	if err != nil {
		return nil, err
	}
	key, err := requireText(req, "key")
	if err != nil {
		return nil, err
	}
	if strings.Trim(memory.NormalizeKey(key), "_") == "" {
		return nil, fmt.Errorf("key %q has no usable characters", key)
	}
	value, err := requireText(req, "value")
	if err != nil {
		return nil, err
	}
	id, err := s.manager.UpsertSemanticMemory(ctx, userID,
		memory.ParseSemanticCategory(category),
		key,
		value,
		req.GetFloat("confidence", defaultConfidence),
		req.GetString("source", defaultLearnSource),
	)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]string{"id": id, "key": memory.NormalizeKey(key)})
}

func (s *Server) handleProcessInteraction(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := requireText(req, "user_message")
	if err != nil {
		return nil, err
	}
	in := memory.Interaction{
		UserMessage: msg,
		ToolsUsed:   req.GetStringSlice("tools_used", nil),
	}
	if err := s.manager.ProcessInteraction(ctx, userID, in, req.GetString("project_id", "")); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText("Interaction processed"), nil
}

func (s *Server) handleIngest(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.importer == nil {
		return nil, errIngestDisabled
	}
	content, err := requireText(req, "content")
	if err != nil {
		return nil, err
	}
	report, err := s.importer.IngestText(ctx, userID, req.GetString("label", defaultIngestLabel), content)
	if err != nil {
		return nil, err
	}
	return jsonResult(report)
}

func (s *Server) handleRecent(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.manager.GetRecentMemories(ctx, userID, req.GetString("project_id", ""), req.GetInt("limit", defaultRecentLimit))
	if err != nil {
		return nil, err
	}
	return jsonResult(res)
}

func (s *Server) handleStats(ctx context.Context, userID string, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.manager.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return jsonResult(stats)
}

func (s *Server) handleFacts(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	facts, err := s.manager.GetAllSemanticMemories(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c := req.GetString("category", ""); c != "" {
		category := memory.ParseSemanticCategory(c)
		facts = lo.Filter(facts, func(f memory.SemanticMemory, _ int) bool { return f.Category == category })
	}
	return jsonResult(facts)
}

func (s *Server) handleForget(ctx context.Context, userID string, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireText(req, "memory_id")
	if err != nil {
		return nil, err
	}
	kind, err := requireText(req, "kind")
	if err != nil {
		return nil, err
	}
	switch kind {
	case "episodic":
		err = s.manager.DeleteEpisodicMemory(ctx, id, userID)
	case "semantic":
		err = s.manager.DeleteSemanticMemory(ctx, id, userID)
	default:
		return nil, fmt.Errorf("kind must be episodic or semantic, got %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %s memory %s", kind, id)), nil
}
