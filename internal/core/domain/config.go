package domain

// ProviderConfig holds configuration for the generation providers
type ProviderConfig struct {
	LLM   LLMProviderConfig   `json:"llm"`
	Image ImageProviderConfig `json:"image"`
}

// LLMProviderConfig configures the newsletter text provider
type LLMProviderConfig struct {
	Mode         string `json:"mode"`          // "local" or "remote"
	LocalURL     string `json:"local_url"`     // "http://localhost:11434"
	RemoteURL    string `json:"remote_url"`    // "https://api.openai.com/v1"
	APIKey       string `json:"api_key"`
	DefaultModel string `json:"default_model"` // "gemma3:12b" or "gpt-4o-mini"
}

// ImageProviderConfig configures cover-image generation
type ImageProviderConfig struct {
	Mode         string `json:"mode"`       // "remote" only for now; "none" disables covers
	RemoteURL    string `json:"remote_url"` // OpenAI-compatible images endpoint
	APIKey       string `json:"api_key"`
	DefaultModel string `json:"default_model"`
	Size         string `json:"size"` // e.g. "1024x1024", "1536x1024"
}

// DefaultProviderConfig returns safe defaults
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		LLM: LLMProviderConfig{
			Mode:         "local",
			LocalURL:     "http://localhost:11434",
			DefaultModel: "gemma3:12b",
		},
		Image: ImageProviderConfig{
			Mode:         "none",
			DefaultModel: "gpt-image-1",
		},
	}
}
