package providers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cali-dev/cali/internal/schema"
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	name         string
	defaultModel string
	client       anthropic.Client
}

func NewAnthropicProvider(name string, p Params) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(p.APIKey),
		option.WithMaxRetries(p.MaxRetries),
	}
	if p.APIBase != "" {
		opts = append(opts, option.WithBaseURL(p.APIBase))
	}
	if p.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(p.HTTPClient))
	}
	for k, v := range p.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}
	return &AnthropicProvider{
		name:         name,
		defaultModel: p.DefaultModel,
		client:       anthropic.NewClient(opts...),
	}
}

func (p *AnthropicProvider) Name() string         { return p.name }
func (p *AnthropicProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider.
func (p *AnthropicProvider) Chat(ctx context.Context, req schema.ChatRequest) (schema.LLMResponse, error) {
	model := req.Options.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	system, messages := toAnthropicMessages(req.System, req.Turns)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    messages,
		Temperature: anthropic.Float(req.Options.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return schema.LLMResponse{}, apiError(p.name, err)
	}

	out := schema.LLMResponse{
		FinishReason: finishReason(msg.StopReason),
		Usage: schema.Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			raw, _ := b.Input.MarshalJSON()
			args, err := repairJSON(string(raw))
			if err != nil {
				slog.Warn("Failed to parse tool arguments", "tool", b.Name, "err", err)
			}
			id := b.ID
			if id == "" {
				id = newCallID()
			}
			out.ToolCalls = append(out.ToolCalls, schema.ToolCall{ID: id, Name: b.Name, Arguments: args})
		}
	}
	out.Content = text.String()
	return out, nil
}

func finishReason(r anthropic.StopReason) string {
	switch r {
	case anthropic.StopReasonToolUse:
		return "tool_calls"
	case anthropic.StopReasonEndTurn, "":
		return "stop"
	}
	return string(r)
}

// toAnthropicMessages folds system turns that precede the first user turn
// into the system prompt and merges consecutive same-role turns, since tool
// results must share the user message that follows the tool_use blocks.
// Later system turns become user text so the conversation never ends on an
// assistant message.
func toAnthropicMessages(system string, turns []schema.Turn) (string, []anthropic.MessageParam) {
	var sys []string
	if system != "" {
		sys = append(sys, system)
	}

	var out []anthropic.MessageParam
	add := func(role anthropic.MessageParamRole, blocks ...anthropic.ContentBlockParamUnion) {
		if len(blocks) == 0 {
			return
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			return
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}

	for _, t := range turns {
		switch t.Role {
		case schema.RoleSystem:
			if len(out) == 0 {
				sys = append(sys, t.Text)
				continue
			}
			add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(t.Text))
		case schema.RoleUser:
			add(anthropic.MessageParamRoleUser, anthropic.NewTextBlock(t.Text))
		case schema.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if t.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(t.Text))
			}
			for _, tc := range t.ToolCalls {
				args := tc.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{ID: tc.ID, Name: tc.Name, Input: args},
				})
			}
			add(anthropic.MessageParamRoleAssistant, blocks...)
		case schema.RoleTool:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(t.ToolResults))
			for _, r := range t.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(r.CallID, r.Content(), r.IsError()))
			}
			add(anthropic.MessageParamRoleUser, blocks...)
		}
	}
	return strings.Join(sys, "\n\n"), out
}

func toAnthropicTools(defs []schema.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: d.Parameters["properties"],
					Required:   requiredFields(d.Parameters),
				},
			},
		})
	}
	return out
}

func requiredFields(params map[string]any) []string {
	switch req := params["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
