// Package mcp exposes the knowledge base to MCP clients.
//
// The server speaks the Model Context Protocol over stdio, so an operator can
// plug their clone's knowledge into any MCP-capable assistant. All tools are
// bound to a single configured owner; there is no per-call authentication.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/clonebrain/clonebrain/internal/knowledge"
)

// knowledgeStore is the subset of the knowledge store the tools need.
type knowledgeStore interface {
	Ingest(ctx context.Context, ownerID uuid.UUID, content string, metadata map[string]string) (uuid.UUID, error)
	Search(ctx context.Context, ownerID uuid.UUID, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	OwnerID uuid.UUID // the owner all tool calls act on behalf of
	Store   knowledgeStore
}

// Server wraps the MCP SDK server around the knowledge store.
type Server struct {
	mcpServer *mcp.Server
	store     knowledgeStore
	ownerID   uuid.UUID
}

// NewServer creates an MCP server with the knowledge tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.OwnerID == uuid.Nil {
		return nil, errors.New("owner ID is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("knowledge store is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		store:   cfg.Store,
		ownerID: cfg.OwnerID,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run starts the MCP server on the given transport.
// Blocks until the transport closes or ctx is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// SearchInput is the input schema for the search_knowledge tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"The question or topic to search the knowledge base for"`
	TopK  int    `json:"topK,omitempty" jsonschema:"Maximum number of results (default 5)"`
}

// IngestInput is the input schema for the ingest_knowledge tool.
type IngestInput struct {
	Content  string            `json:"content" jsonschema:"The text to store in the knowledge base"`
	Metadata map[string]string `json:"metadata,omitempty" jsonschema:"Optional key/value metadata, e.g. source or title"`
}

func (s *Server) registerTools() error {
	searchSchema, err := jsonschema.For[SearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for search_knowledge: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "search_knowledge",
		Description: "Search the clone's knowledge base using semantic similarity. " +
			"Returns the most relevant stored passages for a query.",
		InputSchema: searchSchema,
	}, s.searchKnowledge)

	ingestSchema, err := jsonschema.For[IngestInput](nil)
	if err != nil {
		return fmt.Errorf("schema for ingest_knowledge: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: "ingest_knowledge",
		Description: "Store a piece of text in the clone's knowledge base. " +
			"It becomes retrievable by future queries and searches.",
		InputSchema: ingestSchema,
	}, s.ingestKnowledge)

	return nil
}

// searchKnowledge handles the search_knowledge tool call.
// Build the MCP response inline, like net/http.Handler.
func (s *Server) searchKnowledge(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
	opts := []knowledge.SearchOption{}
	if input.TopK > 0 {
		opts = append(opts, knowledge.WithTopK(input.TopK))
	}

	results, err := s.store.Search(ctx, s.ownerID, input.Query, opts...)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyQuery) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error: query is required"}},
				IsError: true,
			}, nil, nil
		}
		return nil, nil, fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "No matching knowledge found."}},
		}, nil, nil
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] (similarity %.2f) %s", i+1, r.Similarity, r.Record.Content)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, nil, nil
}

// ingestKnowledge handles the ingest_knowledge tool call.
func (s *Server) ingestKnowledge(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, any, error) {
	id, err := s.store.Ingest(ctx, s.ownerID, input.Content, input.Metadata)
	if err != nil {
		if errors.Is(err, knowledge.ErrEmptyContent) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "Error: content is required"}},
				IsError: true,
			}, nil, nil
		}
		return nil, nil, fmt.Errorf("ingest failed: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Stored knowledge record " + id.String()}},
	}, nil, nil
}
