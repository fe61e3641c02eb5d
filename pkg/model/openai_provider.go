package model

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/classroomai/gateway/pkg/httpclient"
)

// OpenAIProvider is the one concrete reference Provider: an OpenAI
// chat-completions-compatible HTTP adapter built on httpclient.Client
// (pkg/httpclient/client.go) for retry/backoff. Any OpenAI-protocol-
// compatible endpoint (vendor, gateway, or local server) can be targeted
// via BaseURL.
type OpenAIProvider struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *httpclient.Client
	model      string
}

// OpenAIConfig configures the adapter.
type OpenAIConfig struct {
	Name    string
	BaseURL string // default "https://api.openai.com/v1"
	APIKey  string
	Model   string
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		name:    cfg.Name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: httpclient.New(
			httpclient.WithMaxRetries(2),
			httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy { return httpclient.SmartRetry }),
		),
	}
}

func (p *OpenAIProvider) Name() string {
	if p.name == "" {
		return "openai:" + p.model
	}
	return p.name
}

// CountTokens is unsupported: OpenAI's chat-completions endpoint does not
// expose a client-side tokenizer call, so the runtime falls back to the
// BPE/heuristic tiers.
func (p *OpenAIProvider) CountTokens(string) (int, bool) { return 0, false }

type chatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function toolCallFunc `json:"function"`
}

type toolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatToolFunc `json:"function"`
}

type chatToolFunc struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// streamChunk is one SSE data frame of the OpenAI chat-completions
// streaming protocol.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *OpenAIProvider) RunStream(ctx context.Context, messages []Message, tools []ToolSchema, settings Settings) (<-chan StreamEvent, error) {
	req := chatRequest{
		Model:       p.model,
		Stream:      true,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, chatTool{
			Type: "function",
			Function: chatToolFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("model: encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("model: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("model: call %s: %w", p.baseURL, err)
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, fmt.Errorf("model: %s returned status %d", p.baseURL, resp.StatusCode)
	}

	ch := make(chan StreamEvent, 8)
	go p.consumeSSE(resp.Body, ch)
	return ch, nil
}

func (p *OpenAIProvider) consumeSSE(body io.ReadCloser, ch chan<- StreamEvent) {
	defer close(ch)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	textPartOpen := false
	argBuf := map[string]*strings.Builder{}
	toolNames := map[string]string{}
	var usage struct{ in, out int }

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			ch <- StreamEvent{Kind: EventProviderError, Err: fmt.Errorf("model: decode chunk: %w", err)}
			return
		}
		if chunk.Usage != nil {
			usage.in = chunk.Usage.PromptTokens
			usage.out = chunk.Usage.CompletionTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]

		if choice.Delta.Content != "" {
			if !textPartOpen {
				ch <- StreamEvent{Kind: EventTextStart, PartID: "t-1"}
				textPartOpen = true
			}
			ch <- StreamEvent{Kind: EventTextDelta, PartID: "t-1", Delta: choice.Delta.Content}
		}

		for _, tc := range choice.Delta.ToolCalls {
			id := tc.ID
			if id == "" {
				id = fmt.Sprintf("idx-%d", tc.Index)
			}
			if tc.Function.Name != "" {
				toolNames[id] = tc.Function.Name
				ch <- StreamEvent{Kind: EventToolCallStart, ToolCallID: id, ToolName: tc.Function.Name}
			}
			if tc.Function.Arguments != "" {
				if argBuf[id] == nil {
					argBuf[id] = &strings.Builder{}
				}
				argBuf[id].WriteString(tc.Function.Arguments)
			}
		}

		if choice.FinishReason != nil {
			if textPartOpen {
				ch <- StreamEvent{Kind: EventTextEnd, PartID: "t-1"}
			}
			for id, buf := range argBuf {
				ch <- StreamEvent{Kind: EventToolCallEnd, ToolCallID: id, ToolName: toolNames[id], ToolArgsJSON: buf.String()}
			}
			ch <- StreamEvent{Kind: EventStreamEnd, InputTokens: usage.in, OutputTokens: usage.out}
			return
		}
	}
	if err := scanner.Err(); err != nil {
		ch <- StreamEvent{Kind: EventProviderError, Err: err}
	}
}
