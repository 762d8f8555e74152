package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/cali-dev/cali/internal/schema"
)

// OpenAIProvider talks to OpenAI and any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	name         string
	defaultModel string
	client       openai.Client
}

func NewOpenAIProvider(name string, p Params) *OpenAIProvider {
	opts := []option.RequestOption{option.WithMaxRetries(p.MaxRetries)}
	if p.APIKey != "" {
		opts = append(opts, option.WithAPIKey(p.APIKey))
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
	return &OpenAIProvider{
		name:         name,
		defaultModel: p.DefaultModel,
		client:       openai.NewClient(opts...),
	}
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider.
func (p *OpenAIProvider) Chat(ctx context.Context, req schema.ChatRequest) (schema.LLMResponse, error) {
	model := req.Options.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		Messages:            toOpenAIMessages(req.System, req.Turns),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
		Temperature:         openai.Float(req.Options.Temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return schema.LLMResponse{}, apiError(p.name, err)
	}
	if len(resp.Choices) == 0 {
		return schema.LLMResponse{}, fmt.Errorf("%s: empty choices in response", p.name)
	}

	choice := resp.Choices[0]
	out := schema.LLMResponse{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: schema.Usage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
		},
	}
	if out.FinishReason == "" {
		out.FinishReason = "stop"
	}
	for _, tc := range choice.Message.ToolCalls {
		args, err := repairJSON(tc.Function.Arguments)
		if err != nil {
			slog.Warn("Failed to parse tool arguments", "tool", tc.Function.Name, "err", err)
		}
		id := tc.ID
		if id == "" {
			id = newCallID()
		}
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{ID: id, Name: tc.Function.Name, Arguments: args})
	}
	return out, nil
}

func toOpenAIMessages(system string, turns []schema.Turn) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, t := range turns {
		switch t.Role {
		case schema.RoleSystem:
			out = append(out, openai.SystemMessage(t.Text))
		case schema.RoleUser:
			out = append(out, openai.UserMessage(t.Text))
		case schema.RoleAssistant:
			if len(t.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(t.Text))
				continue
			}
			calls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(t.ToolCalls))
			for _, tc := range t.ToolCalls {
				calls = append(calls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.ArgumentsJSON(),
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{ToolCalls: calls},
			})
		case schema.RoleTool:
			for _, r := range t.ToolResults {
				out = append(out, openai.ToolMessage(r.Content(), r.CallID))
			}
		}
	}
	return out
}

func toOpenAITools(defs []schema.ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, d := range defs {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        d.Name,
					Description: openai.String(d.Description),
					Parameters:  openai.FunctionParameters(d.Parameters),
				},
			},
		})
	}
	return out
}
