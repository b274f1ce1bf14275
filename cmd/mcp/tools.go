package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eclreports/internal/pkg/ecl"
	"eclreports/internal/pkg/period"
)

func toolList() []Tool {
	return []Tool{
		{
			Name:        "unbalanced_rows",
			Description: "List loss stage rows of a report whose closing balance does not equal opening plus movements, with any advisory reviews.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"report": map[string]interface{}{
						"type":        "string",
						"description": "Report id such as 1T22 (quarter, T, two digit year).",
					},
					"stage": map[string]interface{}{
						"type":        "string",
						"description": "Optional stage: Estágio1, Estágio2, Estágio3 or Consolidado.",
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"minimum":     1,
						"maximum":     100,
						"description": "Number of rows to return (default 20).",
					},
				},
				"required": []string{"report"},
			},
		},
		{
			Name:        "documents_by_report",
			Description: "List the OCR pages stored for a report.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"report": map[string]interface{}{
						"type":        "string",
						"description": "Report id such as 1T22.",
					},
				},
				"required": []string{"report"},
			},
		},
	}
}

func (s *MCPServer) handleToolCall(req Request) *Response {
	var params ToolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.error(req, -32602, "invalid params", err.Error())
		}
	}

	var (
		result *ToolCallResult
		rpcErr *ResponseError
	)
	switch params.Name {
	case "unbalanced_rows":
		result, rpcErr = s.callUnbalancedRows(params.Arguments)
	case "documents_by_report":
		result, rpcErr = s.callDocumentsByReport(params.Arguments)
	default:
		return s.error(req, -32601, fmt.Sprintf("tool not found: %s", params.Name), nil)
	}

	if rpcErr != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return s.reply(req, result)
}

func (s *MCPServer) callUnbalancedRows(args map[string]interface{}) (*ToolCallResult, *ResponseError) {
	report, rpcErr := reportArg(args)
	if rpcErr != nil {
		return nil, rpcErr
	}

	q := url.Values{}
	q.Set("report", report)
	q.Set("unbalanced", "true")
	q.Set("limit", strconv.Itoa(limitArg(args, 20)))

	if raw, ok := args["stage"].(string); ok && strings.TrimSpace(raw) != "" {
		stage := ecl.ParseStage(raw)
		if stage == ecl.StageUnknown {
			return nil, &ResponseError{Code: -32602, Message: "unknown stage: " + raw}
		}
		q.Set("stage", string(stage))
	}

	return s.get("/reconciliations?" + q.Encode())
}

func (s *MCPServer) callDocumentsByReport(args map[string]interface{}) (*ToolCallResult, *ResponseError) {
	report, rpcErr := reportArg(args)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return s.get("/documents?report=" + url.QueryEscape(report))
}

func (s *MCPServer) get(path string) (*ToolCallResult, *ResponseError) {
	urlStr := s.baseURL + path
	s.logger.Debug().Str("url", urlStr).Msg("calling upstream")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &ResponseError{Code: -32000, Message: "failed to build request", Data: err.Error()}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ResponseError{Code: -32000, Message: "request failed", Data: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ResponseError{Code: -32000, Message: "failed to read response", Data: err.Error()}
	}
	if resp.StatusCode >= 300 {
		return nil, &ResponseError{Code: -32000, Message: fmt.Sprintf("upstream error: %s", resp.Status), Data: string(body)}
	}

	return &ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: string(body)}},
	}, nil
}

func reportArg(args map[string]interface{}) (string, *ResponseError) {
	raw, ok := args["report"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return "", &ResponseError{Code: -32602, Message: "report must be a non-empty string"}
	}
	report := strings.ToUpper(strings.TrimSpace(raw))
	if _, err := period.Parse(report); err != nil {
		return "", &ResponseError{Code: -32602, Message: err.Error()}
	}
	return report, nil
}

func limitArg(args map[string]interface{}, fallback int) int {
	limit := fallback
	switch v := args["limit"].(type) {
	case float64:
		limit = int(v)
	case int:
		limit = v
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			limit = i
		}
	}
	if limit <= 0 {
		limit = fallback
	}
	if limit > 100 {
		limit = 100
	}
	return limit
}
