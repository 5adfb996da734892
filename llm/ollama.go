package llm

import (
	"os"
	"strings"
)

const defaultOllamaBaseURL = "http://localhost:11434/v1"

// NewOllamaClient talks to a local Ollama server through its
// OpenAI-compatible endpoint. OLLAMA_HOST overrides the default address;
// no API key is required, the placeholder satisfies the SDK.
func NewOllamaClient(model string) (*OpenAIClient, error) {
	baseURL := defaultOllamaBaseURL
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if !strings.Contains(host, "://") {
			host = "http://" + host
		}
		baseURL = strings.TrimSuffix(host, "/") + "/v1"
	}
	return newCompletionsClient(model, baseURL, "ollama"), nil
}
