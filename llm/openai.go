package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/logger"
	"github.com/nanoagent/nanoagent/session"
	"github.com/nanoagent/nanoagent/tools"
)

// OpenAIClient talks to the OpenAI Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient requires OPENAI_API_KEY; OPENAI_BASE_URL points it at a
// compatible endpoint.
func NewOpenAIClient(ctx context.Context, model string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(opts...)
	return &OpenAIClient{client: &c, model: model}, nil
}

// newCompletionsClient builds an OpenAI-protocol client against an
// arbitrary endpoint. Shared with the ollama provider.
func newCompletionsClient(model, baseURL, apiKey string) *OpenAIClient {
	c := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &OpenAIClient{client: &c, model: model}
}

func (o *OpenAIClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool, opts Options) (*Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages, opts.SystemPrompt),
		Tools:    toOpenAITools(availableTools),
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "chat completion request failed")
	}
	return fromOpenAIResponse(resp)
}

func fromOpenAIResponse(resp *openai.ChatCompletion) (*Reply, error) {
	reply := &Reply{
		Message: session.Message{Role: "assistant"},
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.PromptTokens),
			OutputTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:  int(resp.Usage.TotalTokens),
		},
	}
	if len(resp.Choices) == 0 {
		return reply, nil
	}

	choice := resp.Choices[0].Message
	reply.Message.Content = choice.Content

	for _, tc := range choice.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return nil, errors.Wrapf(err, "malformed tool call arguments for %s", tc.Function.Name)
		}
		reply.Message.ToolCalls = append(reply.Message.ToolCalls, session.ToolCall{
			ToolCallID: tc.ID,
			Name:       tc.Function.Name,
			Args:       args,
		})
	}
	return reply, nil
}

func toOpenAIMessages(messages []session.Message, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	var out []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			out = append(out, openai.SystemMessage(msg.Content))
		case "assistant":
			assistant := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Content,
			}
			for _, tc := range msg.ToolCalls {
				argsBytes, err := json.Marshal(tc.Args)
				if err != nil {
					logger.Warn().Str("tool", tc.Name).Err(err).Msg("dropping unmarshalable tool call from history")
					continue
				}
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnion{
					ID:   tc.ToolCallID,
					Type: "function",
					Function: openai.ChatCompletionMessageFunctionToolCallFunction{
						Name:      tc.Name,
						Arguments: string(argsBytes),
					},
				})
			}
			out = append(out, assistant.ToParam())
		case "tool":
			if len(msg.ToolCalls) != 1 {
				logger.Warn().Int("tool_calls", len(msg.ToolCalls)).Msg("dropping malformed tool message from history")
				continue
			}
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCalls[0].ToolCallID))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	var out []openai.ChatCompletionToolUnionParam
	for _, t := range ts {
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": map[string]any{},
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        t.Name(),
			Description: openai.String(t.Description()),
			Parameters:  params,
		}))
	}
	return out
}
