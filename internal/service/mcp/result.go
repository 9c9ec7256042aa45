package mcp

import (
	"bytes"
	"encoding/json"

	"github.com/mcpjungle/mcpbridge/pkg/types"
)

// ParseCallResult classifies the raw result of a tools/call request.
//
// If the result's content is a list made only of text blocks (with a string "text") and
// image blocks (with string "data" and "mimeType"), the blocks are returned as types.ParsedContent.
// A bare content list, not wrapped in a result object, is accepted as well.
// Anything else is returned as types.RawFallback holding the compact JSON of the whole result.
func ParseCallResult(raw json.RawMessage) types.CallResult {
	if content, isError, ok := parseContent(raw); ok {
		return types.ParsedContent{Content: content, IsError: isError}
	}
	return types.RawFallback{Serialized: serializeRaw(raw)}
}

func parseContent(raw json.RawMessage) ([]types.ContentBlock, bool, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false, false
	}

	var (
		blocksRaw json.RawMessage
		isError   bool
	)
	switch trimmed[0] {
	case '[':
		blocksRaw = trimmed
	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, false, false
		}
		c, ok := envelope["content"]
		if !ok {
			return nil, false, false
		}
		blocksRaw = c
		if e, ok := envelope["isError"]; ok {
			if err := json.Unmarshal(e, &isError); err != nil {
				return nil, false, false
			}
		}
	default:
		return nil, false, false
	}

	var blocks []map[string]json.RawMessage
	if err := json.Unmarshal(blocksRaw, &blocks); err != nil || blocks == nil {
		return nil, false, false
	}

	content := make([]types.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		block, ok := parseBlock(b)
		if !ok {
			return nil, false, false
		}
		content = append(content, block)
	}
	return content, isError, true
}

func parseBlock(b map[string]json.RawMessage) (types.ContentBlock, bool) {
	var kind string
	if !stringField(b, "type", &kind) {
		return types.ContentBlock{}, false
	}

	switch types.ContentBlockType(kind) {
	case types.ContentTypeText:
		var text string
		if !stringField(b, "text", &text) {
			return types.ContentBlock{}, false
		}
		return types.ContentBlock{Type: types.ContentTypeText, Text: text}, true
	case types.ContentTypeImage:
		var data, mimeType string
		if !stringField(b, "data", &data) || !stringField(b, "mimeType", &mimeType) {
			return types.ContentBlock{}, false
		}
		return types.ContentBlock{Type: types.ContentTypeImage, Data: data, MimeType: mimeType}, true
	default:
		return types.ContentBlock{}, false
	}
}

// stringField decodes b[key] into dst. It reports false if the key is missing or not a JSON string.
func stringField(b map[string]json.RawMessage, key string, dst *string) bool {
	v, ok := b[key]
	if !ok {
		return false
	}
	v = bytes.TrimSpace(v)
	if len(v) == 0 || v[0] != '"' {
		return false
	}
	return json.Unmarshal(v, dst) == nil
}

func serializeRaw(raw json.RawMessage) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
