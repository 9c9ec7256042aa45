package types

import "strings"

// ToolSpec is the provider-neutral tool specification handed to an LLM tool-calling layer.
// Every tool, built-in or discovered from an MCP server, is described in this shape:
//
//	{"toolSpec": {"name": "...", "description": "...", "inputSchema": {"json": {...}}}}
type ToolSpec struct {
	ToolSpec ToolSpecBody `json:"toolSpec"`
}

type ToolSpecBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

// ToolInputSchema wraps the JSON schema of a tool's input.
// JSON always holds a plain value tree (maps, slices, strings, numbers, bools, nil).
type ToolInputSchema struct {
	JSON any `json:"json"`
}

// Name is a shortcut for ToolSpec.Name.
func (t ToolSpec) Name() string {
	return t.ToolSpec.Name
}

// ContentBlockType is the type of a single block in a tool call result.
type ContentBlockType string

const (
	ContentTypeText  ContentBlockType = "text"
	ContentTypeImage ContentBlockType = "image"
)

// ContentBlock is one unit of a tool call result: either text or base64 image data.
type ContentBlock struct {
	Type ContentBlockType `json:"type"`

	// Text is set for text blocks.
	Text string `json:"text,omitempty"`

	// Data (base64) and MimeType are set for image blocks.
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// CallResult is the outcome of a successful tool call.
// It is exactly one of ParsedContent or RawFallback.
// Callers are expected to type-switch on it.
type CallResult interface {
	isCallResult()
}

// ParsedContent is a tool call result whose content matched the text/image block union.
type ParsedContent struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// RawFallback holds the verbatim serialization of a tool call result that
// did not match the text/image block union.
type RawFallback struct {
	Serialized string `json:"serialized"`
}

func (ParsedContent) isCallResult() {}
func (RawFallback) isCallResult()   {}

// ToolInvokeInput is the body of a tool invocation request made to the mcpbridge API.
type ToolInvokeInput struct {
	// Name is the canonical tool name, ie, "<server>__<tool>"
	Name string `json:"name"`

	Input map[string]any `json:"input"`
}

// ToolInvokeResult is the API representation of a CallResult.
// Exactly one of Content or Fallback is populated.
type ToolInvokeResult struct {
	IsError  bool           `json:"isError,omitempty"`
	Content  []ContentBlock `json:"content,omitempty"`
	Fallback string         `json:"fallback,omitempty"`
}

// NewToolInvokeResult converts a CallResult into its API representation.
func NewToolInvokeResult(r CallResult) *ToolInvokeResult {
	switch v := r.(type) {
	case ParsedContent:
		content := v.Content
		if content == nil {
			content = []ContentBlock{}
		}
		return &ToolInvokeResult{IsError: v.IsError, Content: content}
	case RawFallback:
		return &ToolInvokeResult{Fallback: v.Serialized}
	default:
		return &ToolInvokeResult{}
	}
}

// CallResult converts the API representation back into a CallResult.
func (r *ToolInvokeResult) CallResult() CallResult {
	if r.Fallback != "" {
		return RawFallback{Serialized: r.Fallback}
	}
	return ParsedContent{Content: r.Content, IsError: r.IsError}
}

// String renders a CallResult as plain text, which is what most agents feed back to the model.
// Text blocks are joined by newlines, images are represented by a marker.
func String(r CallResult) string {
	switch v := r.(type) {
	case RawFallback:
		return v.Serialized
	case ParsedContent:
		parts := make([]string, 0, len(v.Content))
		for _, b := range v.Content {
			switch b.Type {
			case ContentTypeText:
				parts = append(parts, b.Text)
			case ContentTypeImage:
				parts = append(parts, "[image "+b.MimeType+"]")
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// ToolCallRecord is the API representation of a logged tool invocation.
type ToolCallRecord struct {
	RequestID  string `json:"request_id"`
	Server     string `json:"server"`
	Tool       string `json:"tool"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// ToolToggleInput is the body of a request to enable or disable tools.
// Entity is either a canonical tool name or a server name, in which case all its tools are affected.
type ToolToggleInput struct {
	Entity string `json:"entity"`
}

// ToolToggleResult lists the canonical names of the tools affected by an enable or disable request.
type ToolToggleResult struct {
	Tools []string `json:"tools"`
}
