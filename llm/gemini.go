package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nanoagent/nanoagent/errors"
	"github.com/nanoagent/nanoagent/session"
	"github.com/nanoagent/nanoagent/tools"
)

// GeminiClient talks to the Google Gemini API.
type GeminiClient struct {
	model *genai.GenerativeModel
}

// NewGeminiClient requires GEMINI_API_KEY.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}
	return &GeminiClient{model: client.GenerativeModel(modelName)}, nil
}

func (g *GeminiClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool, opts Options) (*Reply, error) {
	history := toGeminiContent(messages)
	if len(history) == 0 {
		return nil, errors.New("no messages to send")
	}

	g.model.Tools = toGeminiTools(availableTools)
	if opts.Temperature != nil {
		g.model.SetTemperature(float32(*opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		g.model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if opts.SystemPrompt != "" {
		g.model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(opts.SystemPrompt)},
		}
	}

	last := history[len(history)-1]
	chat := g.model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, errors.Wrap(err, "generate content request failed")
	}
	return fromGeminiResponse(resp)
}

func toGeminiContent(messages []session.Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return contents
}

func toGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var decls []*genai.FunctionDeclaration
	for _, t := range ts {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"args": {
						Type:        genai.TypeObject,
						Description: "Arguments for the function call, as a map.",
					},
				},
				Required: []string{"args"},
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*Reply, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("received an empty response from Gemini")
	}

	reply := &Reply{Message: session.Message{Role: "assistant"}}
	if resp.UsageMetadata != nil {
		reply.Usage = TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	for i, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			reply.Message.Content += string(v)
		case genai.FunctionCall:
			// Arguments are nested under "args" per the declared schema.
			args, ok := v.Args["args"].(map[string]interface{})
			if !ok {
				args = v.Args
			}
			reply.Message.ToolCalls = append(reply.Message.ToolCalls, session.ToolCall{
				ToolCallID: fmt.Sprintf("call_%d_%s", i, v.Name),
				Name:       v.Name,
				Args:       args,
			})
		default:
			return nil, errors.New("unsupported part type in Gemini response: %T", v)
		}
	}
	return reply, nil
}
