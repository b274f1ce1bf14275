package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xlog "eclreports/internal/log"
)

var errEmptyLine = errors.New("empty line")

// Request represents a minimal JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a minimal JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is a JSON-RPC error payload.
type ResponseError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      map[string]interface{} `json:"serverInfo"`
}

// Tool describes an MCP tool.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

type ListToolsResult struct {
	Tools      []Tool  `json:"tools"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ContentItem represents a piece of tool output.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type ToolCallResult struct {
	Content []ContentItem `json:"content"`
}

// MCPServer handles MCP requests over stdio and answers tool calls from the
// HTTP API.
type MCPServer struct {
	baseURL string
	client  *http.Client
	in      *bufio.Reader
	out     *bufio.Writer
	outMu   sync.Mutex
	wg      sync.WaitGroup
	tools   []Tool
	logger  zerolog.Logger
}

func NewMCPServer(baseURL string, client *http.Client, in *bufio.Reader, out *bufio.Writer) *MCPServer {
	return &MCPServer{
		baseURL: baseURL,
		client:  client,
		in:      in,
		out:     out,
		tools:   toolList(),
		logger:  xlog.WithComponent("mcp"),
	}
}

// Serve reads newline delimited requests until EOF and answers them
// concurrently.
func (s *MCPServer) Serve() error {
	defer s.wg.Wait()
	for {
		req, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			if !errors.Is(err, errEmptyLine) {
				s.logger.Warn().Err(err).Msg("failed to read message")
			}
			continue
		}

		s.wg.Add(1)
		go func(r Request) {
			defer s.wg.Done()
			resp := s.handleRequest(r)
			// notifications get no answer
			if resp == nil {
				return
			}
			if err := s.writeMessage(*resp); err != nil {
				s.logger.Error().Err(err).Msg("failed to write message")
			}
		}(req)
	}
}

func (s *MCPServer) handleRequest(req Request) *Response {
	switch req.Method {
	case "initialize":
		return s.reply(req, InitializeResult{
			ProtocolVersion: "2024-11-05",
			Capabilities: map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			ServerInfo: map[string]interface{}{
				"name":    "eclreports-mcp",
				"version": "1.0.0",
			},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.reply(req, ListToolsResult{Tools: s.tools})
	case "tools/call":
		return s.handleToolCall(req)
	case "ping":
		return s.reply(req, map[string]interface{}{})
	case "shutdown":
		go func() {
			time.Sleep(500 * time.Millisecond)
			os.Exit(0)
		}()
		return s.reply(req, nil)
	case "notifications/exit":
		os.Exit(0)
		return nil
	}

	// requests without an id are notifications and never get a reply
	if isNotification(req) {
		return nil
	}
	return s.error(req, -32601, fmt.Sprintf("method not found: %s", req.Method), nil)
}

func isNotification(req Request) bool {
	id := bytes.TrimSpace(req.ID)
	return len(id) == 0 || bytes.Equal(id, []byte("null"))
}

func (s *MCPServer) reply(req Request, result interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *MCPServer) error(req Request, code int, message string, data interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error: &ResponseError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// readMessage reads one JSON message per line.
func (s *MCPServer) readMessage() (Request, error) {
	line, err := s.in.ReadBytes('\n')
	if err != nil && (err != io.EOF || len(bytes.TrimSpace(line)) == 0) {
		return Request{}, err
	}

	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Request{}, errEmptyLine
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("json parse error: %w", err)
	}
	return req, nil
}

func (s *MCPServer) writeMessage(resp Response) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := s.out.Write(payload); err != nil {
		return err
	}
	if _, err := s.out.Write([]byte("\n")); err != nil {
		return err
	}
	return s.out.Flush()
}
