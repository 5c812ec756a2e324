// Package transport defines the MCP transport capability set (§4.4) and the
// dynamic-JSON-safe data model shared by every concrete transport: stdio
// (subprocess pipes) and HTTP (single-endpoint POST/JSON-RPC).
package transport

import (
	"context"
	"encoding/json"
	"strings"
)

// ProtocolVersionStdio is the protocolVersion string sent by the stdio
// transport's initialize request (§4.2).
const ProtocolVersionStdio = "2024-11-05"

// ProtocolVersionHTTP is the protocolVersion string sent by the HTTP
// transport's initialize request (§4.3).
const ProtocolVersionHTTP = "2025-03-26"

// ClientName and ClientVersion identify this implementation in the
// initialize handshake's clientInfo.
const (
	ClientName    = "mcplug"
	ClientVersion = "0.1.0"
)

// ServerInfo is the parsed result of the initialize handshake.
type ServerInfo struct {
	Name         string                 `json:"name"`
	Version      string                 `json:"version"`
	Capabilities map[string]interface{} `json:"capabilities"`
}

// ToolDefinition describes one tool exposed by a server, as returned by
// tools/list.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// ContentBlock is the tagged-union payload carried by a CallResult: exactly
// one of Text, Image, or Resource data is meaningful, selected by Type.
type ContentBlock struct {
	Type string `json:"type"`

	// Text carries the block's text payload, on the wire under "text" for
	// both Type == "text" and Type == "resource" (a resource block's body
	// is a flat {type, uri, text}, not a nested object).
	Text string `json:"text,omitempty"`

	// Data/MimeType are populated when Type == "image". Data is base64.
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mime_type,omitempty"`

	// URI is populated when Type == "resource".
	URI string `json:"uri,omitempty"`
}

const (
	ContentText     = "text"
	ContentImage    = "image"
	ContentResource = "resource"
)

// CallResult is the outcome of tools/call.
type CallResult struct {
	Content     []ContentBlock  `json:"content"`
	IsError     bool            `json:"isError"`
	RawResponse json.RawMessage `json:"-"`
}

// Text concatenates every Text and Resource content block with newlines,
// eliding Image blocks, per spec §3.
func (r CallResult) Text() string {
	var parts []string
	for _, block := range r.Content {
		switch block.Type {
		case ContentText, ContentResource:
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Transport is the capability set every MCP connection exposes (§4.4).
// Initialize is destructive and MUST be called exactly once, before any
// other method.
type Transport interface {
	Initialize(ctx context.Context) (ServerInfo, error)
	ListTools(ctx context.Context) ([]ToolDefinition, error)
	CallTool(ctx context.Context, name string, args map[string]interface{}) (CallResult, error)
	Close() error
}

// initializeParams is the shared request shape for initialize, differing
// only in the protocolVersion string each transport supplies.
type initializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ClientInfo      clientInfo             `json:"clientInfo"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
	Capabilities map[string]interface{} `json:"capabilities"`
}

func (r initializeResult) toServerInfo(fallbackName string) ServerInfo {
	name := r.ServerInfo.Name
	if name == "" {
		name = fallbackName
	}
	version := r.ServerInfo.Version
	if version == "" {
		version = "unknown"
	}
	caps := r.Capabilities
	if caps == nil {
		caps = map[string]interface{}{}
	}
	return ServerInfo{Name: name, Version: version, Capabilities: caps}
}

type listToolsParams struct {
	Cursor string `json:"cursor,omitempty"`
}

type listToolsResult struct {
	Tools      []ToolDefinition `json:"tools"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

type callToolParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}
