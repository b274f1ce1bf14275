package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const (
	defaultModel     = shared.ResponsesModel("gpt-5.1")
	previewByteLimit = 32 * 1024 // cap what we send to the model
)

var (
	// ErrMissingAPIKey is returned when OPENAI_API_KEY was not configured.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")
)

// Request describes one unbalanced row and the table it came from.
type Request struct {
	Report        string
	Stage         string
	Category      string
	TableMarkdown string
	Opening       string
	Movements     string
	Closing       string
	Expected      string
	Difference    string
	Problems      string
}

// Suggestion is the model's guess at which cell OCR misread. It is advisory
// and never written back to the table.
type Suggestion struct {
	SuspectedColumn string  `json:"suspected_column"`
	ReadValue       string  `json:"read_value"`
	LikelyValue     string  `json:"likely_value"`
	Rationale       string  `json:"rationale"`
	Confidence      float64 `json:"confidence"` // 0.0-1.0
}

type Result struct {
	Suggestion Suggestion
	Raw        json.RawMessage
	Model      string
	UsedTokens int64
}

// Reviewer asks the OpenAI Responses API to explain unbalanced rows.
type Reviewer struct {
	client *openai.Client
	model  shared.ResponsesModel
}

func NewReviewer(apiKey string, opts ...option.RequestOption) (*Reviewer, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &Reviewer{client: &client, model: defaultModel}, nil
}

func (r *Reviewer) Model() string {
	return string(r.model)
}

// Review sends the table and the failed identity to the model and parses its
// JSON answer.
func (r *Reviewer) Review(ctx context.Context, req Request) (*Result, error) {
	if r == nil || r.client == nil {
		return nil, errors.New("reviewer is not initialized")
	}

	resp, err := r.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: r.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(systemPrompt+suggestionSchema, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(buildPrompt(req), responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("call OpenAI: %w", err)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return nil, errors.New("model returned an empty response")
	}
	output = strings.TrimSuffix(strings.TrimPrefix(output, "```json"), "```")
	output = strings.TrimSpace(output)

	result := &Result{
		Raw:        json.RawMessage(output),
		Model:      string(resp.Model),
		UsedTokens: resp.Usage.TotalTokens,
	}
	if result.Model == "" {
		result.Model = string(r.model)
	}
	if err := json.Unmarshal([]byte(output), &result.Suggestion); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return result, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func buildPrompt(req Request) string {
	table := req.TableMarkdown
	if len(table) > previewByteLimit {
		table = truncateUTF8(table, previewByteLimit) + "\n\n[...truncado...]"
	}

	var b strings.Builder
	b.WriteString("Relatório: ")
	b.WriteString(req.Report)
	b.WriteString("\nEstágio: ")
	b.WriteString(req.Stage)
	b.WriteString("\n\nTabela extraída por OCR:\n")
	b.WriteString(table)
	b.WriteString("\n\nLinha com divergência: ")
	b.WriteString(req.Category)
	fmt.Fprintf(&b, "\nSaldo inicial: %s\nSoma dos movimentos: %s\nSaldo final esperado: %s\nSaldo final lido: %s\nDiferença: %s\n",
		req.Opening, req.Movements, req.Expected, req.Closing, req.Difference)
	if req.Problems != "" {
		b.WriteString("Células ilegíveis: ")
		b.WriteString(req.Problems)
		b.WriteString("\n")
	}
	return b.String()
}
