package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/session"
	"github.com/nanoagent/nanoagent/tools"
)

// BedrockClient talks to Anthropic models hosted on AWS Bedrock through
// the InvokeModel API.
type BedrockClient struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockClient requires AWS credentials in the environment.
func NewBedrockClient(ctx context.Context, modelID string) (*BedrockClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load AWS config")
	}
	return &BedrockClient{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

func (b *BedrockClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool, opts Options) (*Reply, error) {
	body, err := bedrockRequestBody(messages, availableTools, opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request body")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrap(err, "invoke model request failed")
	}
	return fromBedrockResponse(resp.Body)
}

// bedrockRequestBody builds the Anthropic-on-Bedrock JSON payload. The
// wire shape is fixed by the Bedrock contract, so it is assembled as
// maps rather than typed SDK params.
func bedrockRequestBody(messages []session.Message, availableTools []tools.Tool, opts Options) ([]byte, error) {
	wire, historySystem := toBedrockMessages(messages)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          wire,
	}
	if opts.Temperature != nil {
		request["temperature"] = *opts.Temperature
	}

	systemPrompt := opts.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = historySystem
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}

	if len(availableTools) > 0 {
		var toolDefs []map[string]interface{}
		for _, t := range availableTools {
			toolDefs = append(toolDefs, map[string]interface{}{
				"name":        t.Name(),
				"description": t.Description(),
				"input_schema": map[string]interface{}{
					"type":       "object",
					"properties": map[string]interface{}{},
				},
			})
		}
		request["tools"] = toolDefs
	}

	return json.Marshal(request)
}

func toBedrockMessages(messages []session.Message) ([]map[string]interface{}, string) {
	var out []map[string]interface{}
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case "user":
			out = append(out, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": msg.Content},
				},
			})
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var toolUses []map[string]interface{}
				for _, tc := range msg.ToolCalls {
					toolUses = append(toolUses, map[string]interface{}{
						"type":  "tool_use",
						"id":    tc.ToolCallID,
						"name":  tc.Name,
						"input": tc.Args,
					})
				}
				out = append(out, map[string]interface{}{
					"role":    "assistant",
					"content": toolUses,
				})
			} else if msg.Content != "" {
				out = append(out, map[string]interface{}{
					"role": "assistant",
					"content": []map[string]interface{}{
						{"type": "text", "text": msg.Content},
					},
				})
			}
		case "tool":
			if len(msg.ToolCalls) == 0 {
				continue
			}
			out = append(out, map[string]interface{}{
				"role": "user",
				"content": []map[string]interface{}{
					{
						"type":        "tool_result",
						"tool_use_id": msg.ToolCalls[0].ToolCallID,
						"content":     msg.Content,
					},
				},
			})
		case "system":
			systemPrompt = msg.Content
		}
	}
	return out, systemPrompt
}

func fromBedrockResponse(body []byte) (*Reply, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}
	if errMsg, ok := response["error"]; ok {
		return nil, errors.New("bedrock API error: %v", errMsg)
	}

	reply := &Reply{Message: session.Message{Role: "assistant"}}
	if usage, ok := response["usage"].(map[string]interface{}); ok {
		if v, ok := usage["input_tokens"].(float64); ok {
			reply.Usage.InputTokens = int(v)
		}
		if v, ok := usage["output_tokens"].(float64); ok {
			reply.Usage.OutputTokens = int(v)
		}
		reply.Usage.TotalTokens = reply.Usage.InputTokens + reply.Usage.OutputTokens
	}

	contentArray, ok := response["content"].([]interface{})
	if !ok {
		return reply, nil
	}

	for i, item := range contentArray {
		block, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		switch block["type"] {
		case "text":
			if text, ok := block["text"].(string); ok {
				reply.Message.Content += text
			}
		case "tool_use":
			name, _ := block["name"].(string)
			input, ok := block["input"].(map[string]interface{})
			if name == "" || !ok {
				continue
			}
			id, _ := block["id"].(string)
			if id == "" {
				id = fmt.Sprintf("call_%d_%s", i, name)
			}
			reply.Message.ToolCalls = append(reply.Message.ToolCalls, session.ToolCall{
				ToolCallID: id,
				Name:       name,
				Args:       input,
			})
		}
	}
	return reply, nil
}
