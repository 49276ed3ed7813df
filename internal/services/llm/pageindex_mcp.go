package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/paperextractor/internal/common"
)

// PageIndex MCP tool names
const (
	toolProcessDocument = "process_document"
	toolGetDocument     = "get_document"
	toolQueryDocument   = "query_document"
)

// ToolCaller is the part of an MCP client the PageIndex provider needs.
// *client.Client satisfies it for both stdio and in-process transports.
type ToolCaller interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// ConnectFunc opens an MCP session. Initialization is done by the caller.
type ConnectFunc func(ctx context.Context) (ToolCaller, error)

// StdioConnector launches command with args as an MCP stdio server
func StdioConnector(command string, args []string) ConnectFunc {
	return func(ctx context.Context) (ToolCaller, error) {
		c, err := client.NewStdioMCPClient(command, os.Environ(), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", command, err)
		}
		return c, nil
	}
}

// NewPageIndexMCPProvider creates a PageIndex provider talking MCP
func NewPageIndexMCPProvider(connect ConnectFunc, options PageIndexOptions, logger arbor.ILogger) *PageIndexProvider {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	backend := &mcpBackend{
		connect: connect,
		logger:  logger,
	}
	return newPageIndexProvider(backend, options, logger)
}

type mcpBackend struct {
	connect ConnectFunc
	logger  arbor.ILogger

	mu             sync.Mutex
	client         ToolCaller
	hasGetDocument bool
}

// mcpDocumentReply is the JSON text returned by process_document and get_document
type mcpDocumentReply struct {
	DocID      string `json:"doc_id"`
	DocumentID string `json:"document_id"`
	ID         string `json:"id"`
	DocName    string `json:"doc_name"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func (b *mcpBackend) Transport() string { return TransportMCP }

func (b *mcpBackend) ensureConnected(ctx context.Context) (ToolCaller, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}

	c, err := b.connect(ctx)
	if err != nil {
		return nil, providerError(ProviderPageIndex, PhaseConnect, "PAGEINDEX_MCP_CONNECT_FAILED", 0, "", err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "paperextractor",
		Version: common.GetVersion(),
	}
	if _, err := c.Initialize(ctx, initRequest); err != nil {
		_ = c.Close()
		return nil, providerError(ProviderPageIndex, PhaseConnect, "PAGEINDEX_MCP_CONNECT_FAILED", 0, "initialize", err)
	}

	// get_document is optional; without it status is re-read via process_document
	if tools, err := c.ListTools(ctx, mcp.ListToolsRequest{}); err == nil {
		for _, tool := range tools.Tools {
			if tool.Name == toolGetDocument {
				b.hasGetDocument = true
				break
			}
		}
	} else {
		b.logger.Warn().Err(err).Msg("Failed to list PageIndex tools")
	}

	b.client = c
	return c, nil
}

func (b *mcpBackend) Submit(ctx context.Context, documentURL string) (*DocumentHandle, error) {
	text, err := b.callTool(ctx, toolProcessDocument, map[string]any{"url": documentURL})
	if err != nil {
		return nil, b.toolError(PhaseUpload, "PAGEINDEX_UPLOAD_FAILED", err)
	}

	handle := handleFromReply(text, &DocumentHandle{SourceURL: documentURL})
	if handle.Status == StatusUnknown && handle.ID == "" && handle.Name == "" {
		return nil, providerError(ProviderPageIndex, PhaseUpload, "PAGEINDEX_RESPONSE_INVALID", 0, truncate(text, 200), nil)
	}
	return handle, nil
}

func (b *mcpBackend) Status(ctx context.Context, handle *DocumentHandle) (*DocumentHandle, error) {
	var (
		text string
		err  error
	)
	if b.hasGetDocument && handle.Name != "" {
		text, err = b.callTool(ctx, toolGetDocument, map[string]any{
			"doc_name":            handle.Name,
			"wait_for_completion": false,
		})
	} else {
		text, err = b.callTool(ctx, toolProcessDocument, map[string]any{"url": handle.SourceURL})
	}
	if err != nil {
		return nil, b.toolError(PhaseStatus, "PAGEINDEX_STATUS_FAILED", err)
	}

	return handleFromReply(text, handle), nil
}

func (b *mcpBackend) Query(ctx context.Context, handle *DocumentHandle, query string) (string, error) {
	text, err := b.callTool(ctx, toolQueryDocument, map[string]any{
		"doc_id": handle.ID,
		"query":  query,
	})
	if err != nil {
		return "", b.toolError(PhaseQuery, "PAGEINDEX_QUERY_FAILED", err)
	}
	return text, nil
}

func (b *mcpBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return nil
	}
	err := b.client.Close()
	b.client = nil
	return err
}

// toolFailure is a tool result flagged IsError by the server
type toolFailure struct {
	tool string
	text string
}

func (e *toolFailure) Error() string {
	return fmt.Sprintf("tool %s failed: %s", e.tool, truncate(e.text, 200))
}

func (b *mcpBackend) toolError(phase Phase, code string, err error) error {
	if pe, ok := err.(*ProviderError); ok {
		return pe
	}
	return providerError(ProviderPageIndex, phase, code, 0, "", err)
}

// callTool invokes a tool and returns its first text content
func (b *mcpBackend) callTool(ctx context.Context, name string, args map[string]any) (string, error) {
	c, err := b.ensureConnected(ctx)
	if err != nil {
		return "", err
	}

	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := c.CallTool(ctx, request)
	if err != nil {
		return "", err
	}

	text := firstText(result.Content)
	if result.IsError {
		return "", &toolFailure{tool: name, text: text}
	}
	if text == "" {
		return "", fmt.Errorf("tool %s returned no text content", name)
	}
	return text, nil
}

func firstText(contents []mcp.Content) string {
	for _, content := range contents {
		switch c := content.(type) {
		case mcp.TextContent:
			return c.Text
		case *mcp.TextContent:
			return c.Text
		}
	}
	return ""
}

// handleFromReply merges a tool reply into the previous handle. A reply that
// is not JSON leaves the handle in StatusUnknown so polling continues.
func handleFromReply(text string, previous *DocumentHandle) *DocumentHandle {
	next := *previous

	var reply mcpDocumentReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		next.Status = StatusUnknown
		next.RawStatus = truncate(text, 80)
		return &next
	}

	for _, id := range []string{reply.DocID, reply.DocumentID, reply.ID} {
		if id != "" {
			next.ID = id
			break
		}
	}
	if reply.DocName != "" {
		next.Name = reply.DocName
	}

	next.RawStatus = reply.Status
	next.Message = firstNonEmpty(reply.Error, reply.Message)

	switch {
	case reply.Error != "":
		next.Status = StatusFailed
	case reply.Status == "" && next.ID != "":
		next.Status = StatusReady
	default:
		next.Status = NormalizeStatus(reply.Status)
	}
	return &next
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
