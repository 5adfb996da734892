package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/logger"
	"github.com/nanoagent/nanoagent/session"
	"github.com/nanoagent/nanoagent/tools"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient requires ANTHROPIC_API_KEY.
func NewAnthropicClient(ctx context.Context, model string) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{client: &client, model: model}, nil
}

func (a *AnthropicClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool, opts Options) (*Reply, error) {
	anthropicMessages, historySystem := toAnthropicMessages(messages)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(maxTokens),
		Messages:  anthropicMessages,
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = historySystem
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	anthropicTools := toAnthropicTools(availableTools)
	params.Tools = make([]anthropic.ToolUnionParam, len(anthropicTools))
	for i := range anthropicTools {
		params.Tools[i] = anthropic.ToolUnionParam{OfTool: &anthropicTools[i]}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "messages request failed")
	}
	return fromAnthropicResponse(resp)
}

func toAnthropicMessages(messages []session.Message) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var blocks []anthropic.ContentBlockParamUnion
				for _, tc := range msg.ToolCalls {
					argsBytes, err := json.Marshal(tc.Args)
					if err != nil {
						logger.Warn().Str("tool", tc.Name).Err(err).Msg("dropping unmarshalable tool call from history")
						continue
					}
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							Type:  "tool_use",
							ID:    tc.ToolCallID,
							Name:  tc.Name,
							Input: argsBytes,
						},
					})
				}
				out = append(out, anthropic.MessageParam{
					Role:    anthropic.MessageParamRoleAssistant,
					Content: blocks,
				})
			} else if msg.Content != "" {
				out = append(out, anthropic.MessageParam{
					Role: anthropic.MessageParamRoleAssistant,
					Content: []anthropic.ContentBlockParamUnion{{
						OfText: &anthropic.TextBlockParam{Text: msg.Content},
					}},
				})
			}
		case "tool":
			if len(msg.ToolCalls) == 0 {
				continue
			}
			out = append(out, anthropic.MessageParam{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{{
					OfToolResult: &anthropic.ToolResultBlockParam{
						ToolUseID: msg.ToolCalls[0].ToolCallID,
						Content: []anthropic.ToolResultBlockParamContentUnion{{
							OfText: &anthropic.TextBlockParam{Text: msg.Content},
						}},
					},
				}},
			})
		case "system":
			systemPrompt = msg.Content
		}
	}
	return out, systemPrompt
}

func toAnthropicTools(ts []tools.Tool) []anthropic.ToolParam {
	if len(ts) == 0 {
		return nil
	}
	var out []anthropic.ToolParam
	for _, t := range ts {
		out = append(out, anthropic.ToolParam{
			Name:        t.Name(),
			Description: anthropic.String(t.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: map[string]interface{}{},
			},
		})
	}
	return out
}

func fromAnthropicResponse(resp *anthropic.Message) (*Reply, error) {
	reply := &Reply{
		Message: session.Message{Role: "assistant"},
		Usage: TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}

	for _, content := range resp.Content {
		switch c := content.AsAny().(type) {
		case anthropic.TextBlock:
			reply.Message.Content += c.Text
		case anthropic.ToolUseBlock:
			var args map[string]interface{}
			if err := json.Unmarshal(c.Input, &args); err != nil {
				return nil, errors.Wrapf(err, "malformed tool call input for %s", c.Name)
			}
			reply.Message.ToolCalls = append(reply.Message.ToolCalls, session.ToolCall{
				ToolCallID: c.ID,
				Name:       c.Name,
				Args:       args,
			})
		}
	}
	return reply, nil
}
