package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoagent/nanoagent/session"
)

func TestBedrockRequestBody(t *testing.T) {
	temp := 0.2
	messages := []session.Message{
		{Role: "system", Content: "be terse"},
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
	}

	body, err := bedrockRequestBody(messages, nil, Options{Temperature: &temp, MaxTokens: 512})
	require.NoError(t, err)

	var request map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &request))

	assert.Equal(t, "bedrock-2023-05-31", request["anthropic_version"])
	assert.Equal(t, float64(512), request["max_tokens"])
	assert.Equal(t, 0.2, request["temperature"])
	assert.Equal(t, "be terse", request["system"])

	wire, ok := request["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, wire, 2, "system message moves to the system field")
}

func TestBedrockRequestBodySystemOptionWins(t *testing.T) {
	messages := []session.Message{
		{Role: "system", Content: "from history"},
		{Role: "user", Content: "hi"},
	}
	body, err := bedrockRequestBody(messages, nil, Options{SystemPrompt: "from options"})
	require.NoError(t, err)

	var request map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &request))
	assert.Equal(t, "from options", request["system"])
}

func TestFromBedrockResponseText(t *testing.T) {
	reply, err := fromBedrockResponse([]byte(`{
		"content": [{"type": "text", "text": "hello there"}],
		"usage": {"input_tokens": 12, "output_tokens": 4}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "assistant", reply.Message.Role)
	assert.Equal(t, "hello there", reply.Message.Content)
	assert.Equal(t, 12, reply.Usage.InputTokens)
	assert.Equal(t, 4, reply.Usage.OutputTokens)
	assert.Equal(t, 16, reply.Usage.TotalTokens)
}

func TestFromBedrockResponseToolUse(t *testing.T) {
	reply, err := fromBedrockResponse([]byte(`{
		"content": [
			{"type": "text", "text": "writing the file"},
			{"type": "tool_use", "id": "toolu_1", "name": "write_file",
			 "input": {"file_path": "a.txt", "content": "x"}}
		]
	}`))
	require.NoError(t, err)

	require.Len(t, reply.Message.ToolCalls, 1)
	tc := reply.Message.ToolCalls[0]
	assert.Equal(t, "toolu_1", tc.ToolCallID)
	assert.Equal(t, "write_file", tc.Name)
	assert.Equal(t, "a.txt", tc.Args["file_path"])
}

func TestFromBedrockResponseError(t *testing.T) {
	_, err := fromBedrockResponse([]byte(`{"error": "throttled"}`))
	assert.Error(t, err)
}
